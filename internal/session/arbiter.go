package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pscheid92/coplay/internal/domain"
	"github.com/pscheid92/coplay/internal/metrics"
)

var errInputQueueFull = errors.New("input dispatch queue full")

// HandleInput validates and admits one input frame from userID.
//
// Validation order: session Active (not paused/terminated), caller holds a
// slot, payload matches the target's frame size. Admission happens under the
// session mutex: the event gets the next sequence number and is enqueued on
// the dispatch queue, so the emulator observes events in admission order and
// two events from the same user are never reordered. Delivery itself runs on
// the session's forwarder goroutine, outside the lock.
func (s *Session) HandleInput(ctx context.Context, userID string, payload []byte) error {
	s.mu.Lock()
	switch s.state {
	case domain.StateTerminated:
		s.mu.Unlock()
		metrics.InputRejectedTotal.WithLabelValues("session_ended").Inc()
		return domain.ErrSessionEnded
	case domain.StatePaused:
		s.mu.Unlock()
		metrics.InputRejectedTotal.WithLabelValues("session_paused").Inc()
		return domain.ErrSessionPaused
	}

	slotIndex := 0
	for _, slot := range s.slots {
		if slot.Occupant == userID {
			slotIndex = slot.SlotIndex
			break
		}
	}
	if slotIndex == 0 {
		s.mu.Unlock()
		metrics.InputRejectedTotal.WithLabelValues("not_a_player").Inc()
		return domain.ErrNotAPlayer
	}

	if len(payload) != s.mapping.FrameBytes {
		s.mu.Unlock()
		metrics.InputRejectedTotal.WithLabelValues("invalid_payload").Inc()
		return domain.ErrInvalidPayload
	}

	s.seq++
	event := domain.InputEvent{
		ChannelID:  s.channelID,
		UserID:     userID,
		SlotIndex:  slotIndex,
		Payload:    payload,
		Seq:        s.seq,
		ReceivedAt: s.clock.Now(),
	}
	select {
	case s.inputCh <- event:
	default:
		s.seq--
		s.mu.Unlock()
		metrics.InputRejectedTotal.WithLabelValues("queue_full").Inc()
		return errInputQueueFull
	}
	s.lastInputAt = event.ReceivedAt
	s.mu.Unlock()

	metrics.InputEventsTotal.WithLabelValues(string(s.target)).Inc()
	return nil
}

// forward drains the dispatch queue in admission order, delivering each event
// to the emulator and echoing it to the channel (spectators and the acting
// player's own client). Runs until the session terminates; events still
// queued at termination are dropped.
func (s *Session) forward() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.inputCh:
			ctx := context.Background()
			if err := s.emu.ApplyInput(ctx, event.ChannelID, event.SlotIndex, event.Payload); err != nil {
				slog.Warn("Emulator rejected input", "channel_id", event.ChannelID, "slot", event.SlotIndex, "seq", event.Seq, "error", err)
			}
			s.publish(ctx, domain.EventInput, event)
		}
	}
}
