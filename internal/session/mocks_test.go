package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/coplay/internal/domain"
)

// --- Mock implementations ---

type appliedInput struct {
	channelID string
	slotIndex int
	payload   []byte
}

type mockEmulator struct {
	mu       sync.Mutex
	applied  []appliedInput
	loaded   []string
	restored []domain.StateRef
	paused   []bool

	applyInputFn   func(ctx context.Context, channelID string, slotIndex int, payload []byte) error
	loadGameFn     func(ctx context.Context, channelID, gameRef string) error
	captureStateFn func(ctx context.Context, channelID string) (domain.StateRef, error)
	restoreStateFn func(ctx context.Context, channelID string, ref domain.StateRef) error
	setPausedFn    func(ctx context.Context, channelID string, paused bool) error
}

func (m *mockEmulator) ApplyInput(ctx context.Context, channelID string, slotIndex int, payload []byte) error {
	if m.applyInputFn != nil {
		return m.applyInputFn(ctx, channelID, slotIndex, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, appliedInput{channelID: channelID, slotIndex: slotIndex, payload: payload})
	return nil
}

func (m *mockEmulator) LoadGame(ctx context.Context, channelID, gameRef string) error {
	if m.loadGameFn != nil {
		return m.loadGameFn(ctx, channelID, gameRef)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = append(m.loaded, gameRef)
	return nil
}

func (m *mockEmulator) CaptureState(ctx context.Context, channelID string) (domain.StateRef, error) {
	if m.captureStateFn != nil {
		return m.captureStateFn(ctx, channelID)
	}
	return domain.StateRef(uuid.NewString()), nil
}

func (m *mockEmulator) RestoreState(ctx context.Context, channelID string, ref domain.StateRef) error {
	if m.restoreStateFn != nil {
		return m.restoreStateFn(ctx, channelID, ref)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restored = append(m.restored, ref)
	return nil
}

func (m *mockEmulator) SetPaused(ctx context.Context, channelID string, paused bool) error {
	if m.setPausedFn != nil {
		return m.setPausedFn(ctx, channelID, paused)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = append(m.paused, paused)
	return nil
}

func (m *mockEmulator) appliedInputs() []appliedInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]appliedInput, len(m.applied))
	copy(out, m.applied)
	return out
}

type publishedEvent struct {
	channelID string
	event     string
	payload   any
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent

	publishFn func(ctx context.Context, channelID, event string, payload any) error
}

func (m *mockPublisher) Publish(ctx context.Context, channelID, event string, payload any) error {
	if m.publishFn != nil {
		return m.publishFn(ctx, channelID, event, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{channelID: channelID, event: event, payload: payload})
	return nil
}

func (m *mockPublisher) published() []publishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]publishedEvent, len(m.events))
	copy(out, m.events)
	return out
}

type mockAuthorizer struct {
	canStopFn func(ctx context.Context, channelID, userID string) bool
}

func (m *mockAuthorizer) CanStopSession(ctx context.Context, channelID, userID string) bool {
	if m.canStopFn != nil {
		return m.canStopFn(ctx, channelID, userID)
	}
	return true
}

// waitFor polls cond for up to a second.
func waitFor(cond func() bool) bool {
	for range 1000 {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}
