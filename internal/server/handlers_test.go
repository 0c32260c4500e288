package server

import (
	"context"
	"testing"

	"github.com/pscheid92/coplay/internal/domain"
	"github.com/pscheid92/coplay/internal/platform/config"
	"github.com/pscheid92/coplay/internal/relay"
	"github.com/pscheid92/coplay/internal/websocket"
)

// --- Mock implementations ---

type mockAppService struct {
	startSessionFn      func(ctx context.Context, channelID string, target domain.TargetKind, cfg domain.StartConfig) (domain.SessionSummary, error)
	stopSessionFn       func(ctx context.Context, channelID, requesterID string) error
	getSessionFn        func(ctx context.Context, channelID string) (domain.SessionSummary, bool)
	statusFn            func(ctx context.Context) domain.Status
	joinPlayerFn        func(ctx context.Context, channelID, userID string, requestedSlot int) (int, error)
	leavePlayerFn       func(ctx context.Context, channelID, userID string) error
	joinSpectatorFn     func(ctx context.Context, channelID, userID string) error
	leaveSpectatorFn    func(ctx context.Context, channelID, userID string) error
	handleInputFn       func(ctx context.Context, channelID, userID string, payload []byte) error
	togglePauseFn       func(ctx context.Context, channelID, userID string) (domain.SessionState, error)
	loadGameFn          func(ctx context.Context, channelID, userID, gameRef string) error
	saveStateFn         func(ctx context.Context, channelID, userID string, slot int) (domain.StateRef, error)
	loadStateFn         func(ctx context.Context, channelID, userID string, slot int) error
	controllerMappingFn func(target domain.TargetKind) (domain.ControllerMapping, error)
}

func (m *mockAppService) StartSession(ctx context.Context, channelID string, target domain.TargetKind, cfg domain.StartConfig) (domain.SessionSummary, error) {
	if m.startSessionFn != nil {
		return m.startSessionFn(ctx, channelID, target, cfg)
	}
	return domain.SessionSummary{ChannelID: channelID, Target: target, State: domain.StateActive}, nil
}

func (m *mockAppService) StopSession(ctx context.Context, channelID, requesterID string) error {
	if m.stopSessionFn != nil {
		return m.stopSessionFn(ctx, channelID, requesterID)
	}
	return nil
}

func (m *mockAppService) GetSession(ctx context.Context, channelID string) (domain.SessionSummary, bool) {
	if m.getSessionFn != nil {
		return m.getSessionFn(ctx, channelID)
	}
	return domain.SessionSummary{}, false
}

func (m *mockAppService) Status(ctx context.Context) domain.Status {
	if m.statusFn != nil {
		return m.statusFn(ctx)
	}
	return domain.Status{Enabled: true}
}

func (m *mockAppService) JoinPlayer(ctx context.Context, channelID, userID string, requestedSlot int) (int, error) {
	if m.joinPlayerFn != nil {
		return m.joinPlayerFn(ctx, channelID, userID, requestedSlot)
	}
	return 1, nil
}

func (m *mockAppService) LeavePlayer(ctx context.Context, channelID, userID string) error {
	if m.leavePlayerFn != nil {
		return m.leavePlayerFn(ctx, channelID, userID)
	}
	return nil
}

func (m *mockAppService) JoinSpectator(ctx context.Context, channelID, userID string) error {
	if m.joinSpectatorFn != nil {
		return m.joinSpectatorFn(ctx, channelID, userID)
	}
	return nil
}

func (m *mockAppService) LeaveSpectator(ctx context.Context, channelID, userID string) error {
	if m.leaveSpectatorFn != nil {
		return m.leaveSpectatorFn(ctx, channelID, userID)
	}
	return nil
}

func (m *mockAppService) HandleInput(ctx context.Context, channelID, userID string, payload []byte) error {
	if m.handleInputFn != nil {
		return m.handleInputFn(ctx, channelID, userID, payload)
	}
	return nil
}

func (m *mockAppService) TogglePause(ctx context.Context, channelID, userID string) (domain.SessionState, error) {
	if m.togglePauseFn != nil {
		return m.togglePauseFn(ctx, channelID, userID)
	}
	return domain.StatePaused, nil
}

func (m *mockAppService) LoadGame(ctx context.Context, channelID, userID, gameRef string) error {
	if m.loadGameFn != nil {
		return m.loadGameFn(ctx, channelID, userID, gameRef)
	}
	return nil
}

func (m *mockAppService) SaveState(ctx context.Context, channelID, userID string, slot int) (domain.StateRef, error) {
	if m.saveStateFn != nil {
		return m.saveStateFn(ctx, channelID, userID, slot)
	}
	return "state-ref", nil
}

func (m *mockAppService) LoadState(ctx context.Context, channelID, userID string, slot int) error {
	if m.loadStateFn != nil {
		return m.loadStateFn(ctx, channelID, userID, slot)
	}
	return nil
}

func (m *mockAppService) ControllerMapping(target domain.TargetKind) (domain.ControllerMapping, error) {
	if m.controllerMappingFn != nil {
		return m.controllerMappingFn(target)
	}
	return domain.ControllerMapping{Target: target, SlotCapacity: 2, FrameBytes: 8}, nil
}

type replyCall struct {
	requestID string
	reply     relay.Reply
}

type mockReplySink struct {
	calls []replyCall
}

func (m *mockReplySink) HandleReply(requestID string, reply relay.Reply) {
	m.calls = append(m.calls, replyCall{requestID, reply})
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                  "test",
		Port:                    "0",
		MaxWebSocketConnections: 16,
		InputRatePerSecond:      1000,
		InputRateBurst:          1000,
	}
}

func newTestServer(t *testing.T, app domain.AppService) (*Server, *mockReplySink) {
	t.Helper()

	hub := websocket.NewHub(0)
	t.Cleanup(func() { hub.Stop() })

	replies := &mockReplySink{}
	srv := NewServer(testConfig(), app, hub, replies, nil, nil)
	return srv, replies
}
