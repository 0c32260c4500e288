package session

import (
	"context"

	"github.com/pscheid92/coplay/internal/domain"
	"github.com/pscheid92/coplay/internal/metrics"
)

// JoinPlayer claims a player slot for userID and returns the slot index.
// requestedSlot 0 means no preference: the lowest-numbered free slot is
// assigned. A requested slot that is occupied fails with ErrSlotTaken rather
// than silently reassigning. A user already seated or spectating is rejected
// with ErrAlreadyJoined and must leave first, so a duplicate request can
// never steal the user's own slot.
func (s *Session) JoinPlayer(ctx context.Context, userID string, requestedSlot int) (int, error) {
	if userID == "" {
		return 0, domain.ErrInvalidPayload
	}

	s.mu.Lock()
	if s.state == domain.StateTerminated {
		s.mu.Unlock()
		return 0, domain.ErrSessionEnded
	}
	if requestedSlot < 0 || requestedSlot > len(s.slots) {
		s.mu.Unlock()
		return 0, domain.ErrInvalidPayload
	}
	if _, ok := s.spectators[userID]; ok {
		s.mu.Unlock()
		return 0, domain.ErrAlreadyJoined
	}
	for _, slot := range s.slots {
		if slot.Occupant == userID {
			s.mu.Unlock()
			return 0, domain.ErrAlreadyJoined
		}
	}

	assigned := 0
	if requestedSlot > 0 {
		if s.slots[requestedSlot-1].Occupant != "" {
			s.mu.Unlock()
			return 0, domain.ErrSlotTaken
		}
		assigned = requestedSlot
	} else {
		for i := range s.slots {
			if s.slots[i].Occupant == "" {
				assigned = i + 1
				break
			}
		}
		if assigned == 0 {
			s.mu.Unlock()
			return 0, domain.ErrSessionFull
		}
	}
	s.slots[assigned-1].Occupant = userID
	s.mu.Unlock()

	metrics.PlayersJoinedTotal.Inc()
	s.publish(ctx, domain.EventPlayerJoined, map[string]any{"user_id": userID, "slot": assigned})
	return assigned, nil
}

// LeavePlayer frees the slot held by userID. Other occupants keep their
// slot numbers. Calling it again for a user who already left returns
// ErrNotAPlayer with no state change.
func (s *Session) LeavePlayer(ctx context.Context, userID string) error {
	s.mu.Lock()
	if s.state == domain.StateTerminated {
		s.mu.Unlock()
		return domain.ErrSessionEnded
	}
	freed := 0
	for i := range s.slots {
		if s.slots[i].Occupant == userID {
			s.slots[i].Occupant = ""
			freed = i + 1
			break
		}
	}
	s.mu.Unlock()
	if freed == 0 {
		return domain.ErrNotAPlayer
	}

	s.publish(ctx, domain.EventPlayerLeft, map[string]any{"user_id": userID, "slot": freed})
	return nil
}

// JoinSpectator adds userID to the spectator set. A user holding a player
// slot may not simultaneously spectate.
func (s *Session) JoinSpectator(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrInvalidPayload
	}

	s.mu.Lock()
	if s.state == domain.StateTerminated {
		s.mu.Unlock()
		return domain.ErrSessionEnded
	}
	if _, ok := s.spectators[userID]; ok {
		s.mu.Unlock()
		return domain.ErrAlreadyJoined
	}
	for _, slot := range s.slots {
		if slot.Occupant == userID {
			s.mu.Unlock()
			return domain.ErrAlreadyJoined
		}
	}
	s.spectators[userID] = struct{}{}
	s.mu.Unlock()

	s.publish(ctx, domain.EventSpectatorJoined, map[string]any{"user_id": userID})
	return nil
}

// LeaveSpectator removes userID from the spectator set.
func (s *Session) LeaveSpectator(ctx context.Context, userID string) error {
	s.mu.Lock()
	if s.state == domain.StateTerminated {
		s.mu.Unlock()
		return domain.ErrSessionEnded
	}
	if _, ok := s.spectators[userID]; !ok {
		s.mu.Unlock()
		return domain.ErrNotASpectator
	}
	delete(s.spectators, userID)
	s.mu.Unlock()

	s.publish(ctx, domain.EventSpectatorLeft, map[string]any{"user_id": userID})
	return nil
}
