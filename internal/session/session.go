package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coplay/internal/domain"
	"github.com/pscheid92/coplay/internal/metrics"
)

const (
	maxSaveSlots    = 10
	inputQueueDepth = 1024
)

// Session is one coordinated multi-user play instance scoped to a channel.
// All mutation goes through its methods; the mutex covers bookkeeping only,
// never calls to the emulator or publisher.
type Session struct {
	channelID string
	target    domain.TargetKind
	mapping   domain.ControllerMapping
	createdBy string

	emu   domain.Emulator
	pub   domain.Publisher
	clock clockwork.Clock

	mu          sync.Mutex
	state       domain.SessionState
	game        string
	slots       []domain.SlotRecord
	spectators  map[string]struct{}
	saveSlots   map[int]domain.SaveSlot
	createdAt   time.Time
	lastInputAt time.Time
	seq         uint64

	inputCh chan domain.InputEvent
	done    chan struct{}
}

func newSession(channelID string, mapping domain.ControllerMapping, cfg domain.StartConfig, emu domain.Emulator, pub domain.Publisher, clock clockwork.Clock) *Session {
	now := clock.Now()
	s := &Session{
		channelID:   channelID,
		target:      mapping.Target,
		mapping:     mapping,
		createdBy:   cfg.RequestedBy,
		emu:         emu,
		pub:         pub,
		clock:       clock,
		state:       domain.StateActive,
		game:        cfg.Game,
		slots:       make([]domain.SlotRecord, mapping.SlotCapacity),
		spectators:  make(map[string]struct{}),
		saveSlots:   make(map[int]domain.SaveSlot),
		createdAt:   now,
		lastInputAt: now,
		inputCh:     make(chan domain.InputEvent, inputQueueDepth),
		done:        make(chan struct{}),
	}
	for i := range s.slots {
		s.slots[i].SlotIndex = i + 1
	}
	go s.forward()
	return s
}

// ChannelID returns the immutable channel key of this session.
func (s *Session) ChannelID() string { return s.channelID }

// Target returns the immutable target kind of this session.
func (s *Session) Target() domain.TargetKind { return s.target }

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TogglePause flips Active <-> Paused and returns the new state. The
// bookkeeping flip is the commit point; the emulator pause call happens
// afterwards and a failure there does not roll the state back.
func (s *Session) TogglePause(ctx context.Context, userID string) (domain.SessionState, error) {
	s.mu.Lock()
	if s.state == domain.StateTerminated {
		s.mu.Unlock()
		return "", domain.ErrSessionEnded
	}
	if s.state == domain.StateActive {
		s.state = domain.StatePaused
	} else {
		s.state = domain.StateActive
	}
	newState := s.state
	s.mu.Unlock()

	paused := newState == domain.StatePaused
	if err := s.emu.SetPaused(ctx, s.channelID, paused); err != nil {
		slog.Warn("Emulator pause call failed", "channel_id", s.channelID, "paused", paused, "error", err)
	}

	event := domain.EventSessionResumed
	if paused {
		event = domain.EventSessionPaused
	}
	s.publish(ctx, event, map[string]any{"user_id": userID, "state": newState})
	return newState, nil
}

// LoadGame swaps the loaded game. The emulator call runs first; on failure
// the session is left untouched. On success every save-state slot is cleared:
// a state captured against one game must never be restorable against another.
func (s *Session) LoadGame(ctx context.Context, userID, gameRef string) error {
	if gameRef == "" {
		return domain.ErrInvalidPayload
	}

	s.mu.Lock()
	if s.state == domain.StateTerminated {
		s.mu.Unlock()
		return domain.ErrSessionEnded
	}
	s.mu.Unlock()

	if err := s.emu.LoadGame(ctx, s.channelID, gameRef); err != nil {
		return fmt.Errorf("emulator load game: %w", err)
	}

	s.mu.Lock()
	if s.state == domain.StateTerminated {
		s.mu.Unlock()
		return domain.ErrSessionEnded
	}
	s.game = gameRef
	s.saveSlots = make(map[int]domain.SaveSlot)
	s.mu.Unlock()

	s.publish(ctx, domain.EventGameLoaded, map[string]any{"user_id": userID, "game": gameRef})
	return nil
}

// SaveState captures the emulator state into the given slot index,
// overwriting any prior occupant of that index.
func (s *Session) SaveState(ctx context.Context, userID string, slot int) (domain.StateRef, error) {
	if slot < 1 || slot > maxSaveSlots {
		return "", domain.ErrInvalidPayload
	}

	s.mu.Lock()
	if s.state == domain.StateTerminated {
		s.mu.Unlock()
		return "", domain.ErrSessionEnded
	}
	s.mu.Unlock()

	ref, err := s.emu.CaptureState(ctx, s.channelID)
	if err != nil {
		return "", fmt.Errorf("emulator capture state: %w", err)
	}

	s.mu.Lock()
	if s.state == domain.StateTerminated {
		s.mu.Unlock()
		return "", domain.ErrSessionEnded
	}
	s.saveSlots[slot] = domain.SaveSlot{Slot: slot, Ref: ref, SavedBy: userID, SavedAt: s.clock.Now()}
	s.mu.Unlock()

	metrics.SaveStatesTotal.WithLabelValues("save").Inc()
	s.publish(ctx, domain.EventStateSaved, map[string]any{"user_id": userID, "slot": slot})
	return ref, nil
}

// LoadState restores the state saved under the given slot index. A failed
// restore leaves the save-slot map unchanged.
func (s *Session) LoadState(ctx context.Context, userID string, slot int) error {
	if slot < 1 || slot > maxSaveSlots {
		return domain.ErrInvalidPayload
	}

	s.mu.Lock()
	if s.state == domain.StateTerminated {
		s.mu.Unlock()
		return domain.ErrSessionEnded
	}
	entry, ok := s.saveSlots[slot]
	s.mu.Unlock()
	if !ok {
		return domain.ErrEmptySlot
	}

	if err := s.emu.RestoreState(ctx, s.channelID, entry.Ref); err != nil {
		return fmt.Errorf("emulator restore state: %w", err)
	}

	metrics.SaveStatesTotal.WithLabelValues("load").Inc()
	s.publish(ctx, domain.EventStateLoaded, map[string]any{"user_id": userID, "slot": slot})
	return nil
}

// terminate moves the session into the absorbing Terminated state and frees
// all slots and spectators. Only the first caller succeeds; every later
// operation observes ErrSessionEnded.
func (s *Session) terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.StateTerminated {
		return domain.ErrSessionEnded
	}
	s.state = domain.StateTerminated
	for i := range s.slots {
		s.slots[i].Occupant = ""
	}
	s.spectators = make(map[string]struct{})
	close(s.done)
	return nil
}

// isIdle reports whether the session has no seated players and has seen no
// input within the given window.
func (s *Session) isIdle(now time.Time, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.StateTerminated {
		return false
	}
	for _, slot := range s.slots {
		if slot.Occupant != "" {
			return false
		}
	}
	return now.Sub(s.lastInputAt) >= window
}

// Summary returns a point-in-time snapshot of the session.
func (s *Session) Summary() domain.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := make([]domain.SlotRecord, len(s.slots))
	copy(slots, s.slots)

	saves := make([]domain.SaveSlot, 0, len(s.saveSlots))
	for _, entry := range s.saveSlots {
		saves = append(saves, entry)
	}
	sort.Slice(saves, func(i, j int) bool { return saves[i].Slot < saves[j].Slot })

	return domain.SessionSummary{
		ChannelID:      s.channelID,
		Target:         s.target,
		State:          s.state,
		Game:           s.game,
		Slots:          slots,
		SpectatorCount: len(s.spectators),
		SaveSlots:      saves,
		CreatedBy:      s.createdBy,
		CreatedAt:      s.createdAt,
		LastInputAt:    s.lastInputAt,
	}
}

func (s *Session) publish(ctx context.Context, event string, payload any) {
	if err := s.pub.Publish(ctx, s.channelID, event, payload); err != nil {
		slog.Warn("Failed to publish session event", "channel_id", s.channelID, "event", event, "error", err)
	}
}
