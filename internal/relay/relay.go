// Package relay implements the emulator collaborator by forwarding commands
// to the channel's hosting client over the event stream.
//
// Fire-and-forget commands (input frames, pause toggles) are published and
// forgotten. Commands that need an answer get an entry in a pending-request
// table keyed by request ID; the hosting client answers via an HTTP callback
// and the waiting caller is released. Requests expire after a timeout.
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coplay/internal/domain"
	"github.com/pscheid92/coplay/internal/metrics"
)

// Command is the frame published to the hosting client.
type Command struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	ChannelID string `json:"channel_id"`
	SlotIndex int    `json:"slot_index,omitempty"`
	Input     []byte `json:"input,omitempty"`
	Game      string `json:"game,omitempty"`
	State     []byte `json:"state,omitempty"`
	Paused    bool   `json:"paused,omitempty"`
}

// Command kinds understood by hosting clients.
const (
	KindApplyInput   = "apply_input"
	KindLoadGame     = "load_game"
	KindCaptureState = "capture_state"
	KindRestoreState = "restore_state"
	KindSetPaused    = "set_paused"
)

// Reply is the callback body a hosting client posts for an awaited command.
type Reply struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	State  []byte `json:"state,omitempty"`
}

// ReplyStatusOK marks a successfully executed command.
const ReplyStatusOK = "ok"

// Relay implements domain.Emulator on top of the event stream.
type Relay struct {
	pub     domain.Publisher
	vault   domain.StateVault
	clock   clockwork.Clock
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan Reply
}

var _ domain.Emulator = (*Relay)(nil)

// New creates a Relay. timeout bounds how long awaited commands wait for the
// hosting client's reply.
func New(pub domain.Publisher, vault domain.StateVault, clock clockwork.Clock, timeout time.Duration) *Relay {
	return &Relay{
		pub:     pub,
		vault:   vault,
		clock:   clock,
		timeout: timeout,
		pending: make(map[string]chan Reply),
	}
}

// ApplyInput forwards one input frame. Fire-and-forget: frames are never
// awaited or retried.
func (r *Relay) ApplyInput(ctx context.Context, channelID string, slotIndex int, payload []byte) error {
	cmd := Command{
		ID:        uuid.NewString(),
		Kind:      KindApplyInput,
		ChannelID: channelID,
		SlotIndex: slotIndex,
		Input:     payload,
	}
	return r.publish(ctx, cmd)
}

// SetPaused forwards a pause flip. Fire-and-forget.
func (r *Relay) SetPaused(ctx context.Context, channelID string, paused bool) error {
	cmd := Command{
		ID:        uuid.NewString(),
		Kind:      KindSetPaused,
		ChannelID: channelID,
		Paused:    paused,
	}
	return r.publish(ctx, cmd)
}

// LoadGame asks the hosting client to load a game and waits for its reply.
func (r *Relay) LoadGame(ctx context.Context, channelID, gameRef string) error {
	cmd := Command{
		ID:        uuid.NewString(),
		Kind:      KindLoadGame,
		ChannelID: channelID,
		Game:      gameRef,
	}
	_, err := r.await(ctx, cmd)
	return err
}

// CaptureState asks the hosting client for a state snapshot, stores the blob
// in the vault, and returns the new ref.
func (r *Relay) CaptureState(ctx context.Context, channelID string) (domain.StateRef, error) {
	cmd := Command{
		ID:        uuid.NewString(),
		Kind:      KindCaptureState,
		ChannelID: channelID,
	}
	reply, err := r.await(ctx, cmd)
	if err != nil {
		return "", err
	}
	if len(reply.State) == 0 {
		return "", fmt.Errorf("capture state reply carried no state data")
	}

	ref := domain.StateRef(uuid.NewString())
	if err := r.vault.Put(ctx, ref, reply.State); err != nil {
		return "", err
	}
	return ref, nil
}

// RestoreState loads the blob for ref from the vault and ships it to the
// hosting client, waiting for confirmation.
func (r *Relay) RestoreState(ctx context.Context, channelID string, ref domain.StateRef) error {
	blob, err := r.vault.Get(ctx, ref)
	if err != nil {
		return err
	}

	cmd := Command{
		ID:        uuid.NewString(),
		Kind:      KindRestoreState,
		ChannelID: channelID,
		State:     blob,
	}
	_, err = r.await(ctx, cmd)
	return err
}

// HandleReply ingests a callback for an awaited command. Replies for unknown
// or already-expired request IDs are counted and dropped.
func (r *Relay) HandleReply(requestID string, reply Reply) {
	r.mu.Lock()
	ch, ok := r.pending[requestID]
	if ok {
		delete(r.pending, requestID)
	}
	r.mu.Unlock()

	if !ok {
		metrics.RelayRepliesTotal.WithLabelValues("unknown").Inc()
		return
	}

	status := ReplyStatusOK
	if reply.Status != ReplyStatusOK {
		status = "error"
	}
	metrics.RelayRepliesTotal.WithLabelValues(status).Inc()
	ch <- reply
}

// PendingCount returns the number of in-flight awaited commands.
func (r *Relay) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Relay) publish(ctx context.Context, cmd Command) error {
	if err := r.pub.Publish(ctx, cmd.ChannelID, domain.EventEmulatorCommand, cmd); err != nil {
		return fmt.Errorf("failed to publish %s command: %w", cmd.Kind, err)
	}
	return nil
}

func (r *Relay) await(ctx context.Context, cmd Command) (Reply, error) {
	ch := make(chan Reply, 1)

	r.mu.Lock()
	r.pending[cmd.ID] = ch
	metrics.RelayPendingRequests.Set(float64(len(r.pending)))
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, cmd.ID)
		metrics.RelayPendingRequests.Set(float64(len(r.pending)))
		r.mu.Unlock()
	}()

	if err := r.publish(ctx, cmd); err != nil {
		return Reply{}, err
	}

	select {
	case reply := <-ch:
		if reply.Status != ReplyStatusOK {
			return Reply{}, fmt.Errorf("%s command failed: %s", cmd.Kind, reply.Error)
		}
		return reply, nil
	case <-r.clock.After(r.timeout):
		metrics.RelayTimeoutsTotal.Inc()
		return Reply{}, fmt.Errorf("%s command timed out after %s", cmd.Kind, r.timeout)
	case <-ctx.Done():
		return Reply{}, fmt.Errorf("%s command cancelled: %w", cmd.Kind, ctx.Err())
	}
}
