package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
)

const eventChannelPrefix = "coplay:events:"

// envelope wraps an event payload with the originating instance so each
// instance can suppress its own loopback deliveries.
type envelope struct {
	InstanceID string          `json:"instance_id"`
	Data       json.RawMessage `json:"data"`
}

// EventBridge fans session events out to other instances via Redis Pub/Sub.
// Every instance publishes locally delivered events; every instance replays
// events published elsewhere to its own websocket clients.
type EventBridge struct {
	rdb        *goredis.Client
	instanceID string
}

// NewEventBridge creates an EventBridge identified by instanceID.
func NewEventBridge(rdb *goredis.Client, instanceID string) *EventBridge {
	return &EventBridge{rdb: rdb, instanceID: instanceID}
}

// Publish sends an already-serialized event frame to all instances serving
// the channel.
func (b *EventBridge) Publish(ctx context.Context, channelID string, data []byte) error {
	env := envelope{InstanceID: b.instanceID, Data: data}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	if err := b.rdb.Publish(ctx, eventChannelPrefix+channelID, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Run subscribes to all channel event topics and invokes handler for every
// event originating from another instance. Blocks until ctx is cancelled.
func (b *EventBridge) Run(ctx context.Context, handler func(channelID string, data []byte)) error {
	sub := b.rdb.PSubscribe(ctx, eventChannelPrefix+"*")
	defer func() { _ = sub.Close() }()

	msgCh := sub.Channel()
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Warn("Failed to unmarshal event envelope", "error", err)
				continue
			}
			if env.InstanceID == b.instanceID {
				continue
			}
			handler(msg.Channel[len(eventChannelPrefix):], env.Data)
		case <-ctx.Done():
			return nil
		}
	}
}
