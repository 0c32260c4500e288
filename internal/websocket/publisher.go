package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/coplay/internal/domain"
)

// Bridge forwards serialized event frames to other instances.
type Bridge interface {
	Publish(ctx context.Context, channelID string, data []byte) error
}

// Envelope is the wire format of one event frame.
type Envelope struct {
	Event     string    `json:"event"`
	ChannelID string    `json:"channel_id"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// Publisher delivers session events to local websocket clients and, when a
// bridge is configured, to clients connected to other instances.
type Publisher struct {
	hub    *Hub
	bridge Bridge
}

var _ domain.Publisher = (*Publisher)(nil)

// NewPublisher creates a Publisher. bridge may be nil for single-instance
// deployments.
func NewPublisher(hub *Hub, bridge Bridge) *Publisher {
	return &Publisher{hub: hub, bridge: bridge}
}

// Publish serializes the event once and fans it out. Local delivery never
// fails; a bridge failure is returned but leaves local clients served.
func (p *Publisher) Publish(ctx context.Context, channelID, event string, payload any) error {
	env := Envelope{
		Event:     event,
		ChannelID: channelID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event, err)
	}

	p.hub.Broadcast(channelID, data)

	if p.bridge != nil {
		if err := p.bridge.Publish(ctx, channelID, data); err != nil {
			return fmt.Errorf("failed to bridge event %s: %w", event, err)
		}
	}
	return nil
}

// DeliverRemote replays a frame received from another instance to local
// clients. Wired as the EventBridge handler.
func (p *Publisher) DeliverRemote(channelID string, data []byte) {
	if !json.Valid(data) {
		slog.Warn("Dropping malformed remote event frame", "channel_id", channelID)
		return
	}
	p.hub.Broadcast(channelID, data)
}
