package server

import (
	"log/slog"
	"net/http"

	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/coplay/internal/errors"
	"github.com/pscheid92/coplay/internal/relay"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // clients connect from arbitrary LAN hosts
	},
}

func (s *Server) handleRelayReply(c echo.Context) error {
	requestID := c.Param("id")
	if requestID == "" {
		return apperrors.ValidationError("missing request ID")
	}

	var reply relay.Reply
	if err := c.Bind(&reply); err != nil {
		return apperrors.ValidationError("malformed reply body").WithField("request_id", requestID)
	}

	s.replies.HandleReply(requestID, reply)
	return c.NoContent(204)
}

func (s *Server) handleWebSocket(c echo.Context) error {
	channelID := c.Param("channel")
	if channelID == "" {
		return apperrors.ValidationError("missing channel")
	}

	if !s.wsLimiter.Acquire() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "connection limit reached")
	}
	defer s.wsLimiter.Release()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("Failed to upgrade websocket", "channel_id", channelID, "error", err)
		return nil
	}

	if err := s.hub.Register(channelID, conn); err != nil {
		// Connection already closed by the hub.
		return nil
	}

	// Read pump; clients only listen, so this just detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(channelID, conn)
	return nil
}
