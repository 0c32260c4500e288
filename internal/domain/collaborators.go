package domain

import "context"

// Emulator is the emulation backend collaborator. Calls may be slow; the
// coordinator never holds a session lock across them and never retries them.
type Emulator interface {
	ApplyInput(ctx context.Context, channelID string, slotIndex int, payload []byte) error
	LoadGame(ctx context.Context, channelID, gameRef string) error
	CaptureState(ctx context.Context, channelID string) (StateRef, error)
	RestoreState(ctx context.Context, channelID string, ref StateRef) error
	SetPaused(ctx context.Context, channelID string, paused bool) error
}

// Publisher delivers session events to every client subscribed to a channel.
// Fire-and-forget, at-least-once; the coordinator does not retry publishes.
type Publisher interface {
	Publish(ctx context.Context, channelID, event string, payload any) error
}

// Authorizer decides whether a caller may stop a session. A nil Authorizer
// means the coordinator trusts the caller (authorization enforced upstream).
type Authorizer interface {
	CanStopSession(ctx context.Context, channelID, userID string) bool
}

// StateVault stores opaque save-state blobs keyed by ref.
type StateVault interface {
	Put(ctx context.Context, ref StateRef, blob []byte) error
	Get(ctx context.Context, ref StateRef) ([]byte, error)
	Delete(ctx context.Context, ref StateRef) error
}

// HistoryRepository persists the session start/stop audit trail.
type HistoryRepository interface {
	RecordStarted(ctx context.Context, channelID string, target TargetKind, actor, game string) error
	RecordStopped(ctx context.Context, channelID string, target TargetKind, actor, reason string) error
	ListRecent(ctx context.Context, limit int) ([]HistoryEntry, error)
}

// AppService is the application layer contract. Handlers route all
// operations through here.
type AppService interface {
	StartSession(ctx context.Context, channelID string, target TargetKind, cfg StartConfig) (SessionSummary, error)
	StopSession(ctx context.Context, channelID, requesterID string) error
	GetSession(ctx context.Context, channelID string) (SessionSummary, bool)
	Status(ctx context.Context) Status

	JoinPlayer(ctx context.Context, channelID, userID string, requestedSlot int) (int, error)
	LeavePlayer(ctx context.Context, channelID, userID string) error
	JoinSpectator(ctx context.Context, channelID, userID string) error
	LeaveSpectator(ctx context.Context, channelID, userID string) error

	HandleInput(ctx context.Context, channelID, userID string, payload []byte) error
	TogglePause(ctx context.Context, channelID, userID string) (SessionState, error)
	LoadGame(ctx context.Context, channelID, userID, gameRef string) error
	SaveState(ctx context.Context, channelID, userID string, slot int) (StateRef, error)
	LoadState(ctx context.Context, channelID, userID string, slot int) error

	ControllerMapping(target TargetKind) (ControllerMapping, error)
}
