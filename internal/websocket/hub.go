// Package websocket fans session events out to connected clients.
//
// A single Hub goroutine owns all connection state and processes commands
// from a channel (actor pattern). Each connection gets its own writer
// goroutine; clients that cannot keep up with the event stream are evicted.
package websocket

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pscheid92/coplay/internal/metrics"
)

const writeTimeout = 5 * time.Second

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	channelID string
	conn      *websocket.Conn
	errCh     chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	channelID string
	conn      *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	channelID string
	data      []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdGetClientCount struct {
	channelID string
	replyCh   chan int
}

func (cmdGetClientCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	cw.conn.Close()
}

// --- Hub ---

// Hub routes event frames to every client watching a channel.
type Hub struct {
	cmdCh      chan hubCmd
	clients    map[string]map[*websocket.Conn]*clientWriter
	maxClients int
}

// NewHub creates and starts a Hub. maxClientsPerChannel caps the number of
// concurrent clients on one channel; 0 means unlimited.
func NewHub(maxClientsPerChannel int) *Hub {
	hub := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		clients:    make(map[string]map[*websocket.Conn]*clientWriter),
		maxClients: maxClientsPerChannel,
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.channelID, c.conn)
		case cmdBroadcast:
			h.handleBroadcast(c)
		case cmdGetClientCount:
			c.replyCh <- len(h.clients[c.channelID])
		case cmdStop:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	clients, exists := h.clients[c.channelID]
	if !exists {
		clients = make(map[*websocket.Conn]*clientWriter)
		h.clients[c.channelID] = clients
	}

	if h.maxClients > 0 && len(clients) >= h.maxClients {
		slog.Warn("Rejecting client: channel full",
			"channel_id", c.channelID,
			"max_clients", h.maxClients,
		)
		c.conn.Close()
		c.errCh <- fmt.Errorf("max clients per channel (%d) reached", h.maxClients)
		return
	}

	clients[c.conn] = newClientWriter(c.conn)
	metrics.WebSocketConnectedClients.Inc()
	slog.Debug("Client registered", "channel_id", c.channelID, "clients", len(clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(channelID string, conn *websocket.Conn) {
	clients, exists := h.clients[channelID]
	if !exists {
		return
	}

	cw, exists := clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(clients, conn)
	metrics.WebSocketConnectedClients.Dec()

	if len(clients) == 0 {
		delete(h.clients, channelID)
	}
	slog.Debug("Client unregistered", "channel_id", channelID, "clients", len(clients))
}

func (h *Hub) handleBroadcast(c cmdBroadcast) {
	clients, exists := h.clients[c.channelID]
	if !exists {
		return
	}

	var slow []*websocket.Conn
	for conn, cw := range clients {
		select {
		case cw.sendCh <- c.data:
			// sent successfully
		default:
			// client is slow, mark for removal
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "channel_id", c.channelID)
		metrics.WebSocketSlowClientsTotal.Inc()
		h.handleUnregister(c.channelID, conn)
	}
}

func (h *Hub) handleStop() {
	for channelID, clients := range h.clients {
		for _, cw := range clients {
			cw.stop()
			metrics.WebSocketConnectedClients.Dec()
		}
		delete(h.clients, channelID)
	}
}

// --- Public API ---

// Register adds a connection to a channel. Returns an error and closes the
// connection when the channel is full.
func (h *Hub) Register(channelID string, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- cmdRegister{channelID: channelID, conn: conn, errCh: errCh}
	return <-errCh
}

// Unregister removes a connection from a channel.
func (h *Hub) Unregister(channelID string, conn *websocket.Conn) {
	h.cmdCh <- cmdUnregister{channelID: channelID, conn: conn}
}

// Broadcast queues an already-serialized frame for every client on the channel.
func (h *Hub) Broadcast(channelID string, data []byte) {
	h.cmdCh <- cmdBroadcast{channelID: channelID, data: data}
}

// GetClientCount returns the number of clients watching a channel.
func (h *Hub) GetClientCount(channelID string) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- cmdGetClientCount{channelID: channelID, replyCh: replyCh}
	return <-replyCh
}

// Stop disconnects all clients and shuts the hub down.
func (h *Hub) Stop() {
	h.cmdCh <- cmdStop{}
}
