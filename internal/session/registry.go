package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coplay/internal/domain"
	"github.com/pscheid92/coplay/internal/metrics"
)

// Stop reasons recorded in lifecycle notifications and metrics.
const (
	StopReasonRequested = "stopped"
	StopReasonIdle      = "idle"
)

// Registry is the process-wide channel -> Session table. It is the only
// component with creation and teardown authority; the insert-on-start and
// remove-on-stop steps are atomic with respect to concurrent callers for the
// same channel key.
type Registry struct {
	emu   domain.Emulator
	pub   domain.Publisher
	auth  domain.Authorizer // nil means trust the caller
	clock clockwork.Clock

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry with constructor-injected collaborators.
// auth may be nil; stop requests are then trusted.
func NewRegistry(emu domain.Emulator, pub domain.Publisher, auth domain.Authorizer, clock clockwork.Clock) *Registry {
	return &Registry{
		emu:      emu,
		pub:      pub,
		auth:     auth,
		clock:    clock,
		sessions: make(map[string]*Session),
	}
}

// Start creates the session for channelID. At most one live session per
// channel: the check-and-insert runs under the registry lock, so of two
// concurrent starts exactly one wins and the other gets ErrSessionActive.
// The started notification is published only after the insert commits.
func (r *Registry) Start(ctx context.Context, channelID string, target domain.TargetKind, cfg domain.StartConfig) (*Session, error) {
	if channelID == "" {
		return nil, domain.ErrInvalidPayload
	}
	mapping, err := Mapping(target)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.sessions[channelID]; ok && existing.State() != domain.StateTerminated {
		r.mu.Unlock()
		return nil, domain.ErrSessionActive
	}
	sess := newSession(channelID, mapping, cfg, r.emu, r.pub, r.clock)
	r.sessions[channelID] = sess
	r.mu.Unlock()

	metrics.SessionsActive.Inc()
	metrics.SessionsStartedTotal.WithLabelValues(string(target)).Inc()
	r.publish(ctx, channelID, domain.EventSessionStarted, sess.Summary())

	if cfg.Game != "" {
		if err := r.emu.LoadGame(ctx, channelID, cfg.Game); err != nil {
			slog.Warn("Initial game load failed", "channel_id", channelID, "game", cfg.Game, "error", err)
		}
	}
	return sess, nil
}

// Stop terminates and removes the session for channelID. When an authorizer
// is configured it is consulted first; otherwise the caller is trusted.
// A racing explicit stop and idle stop cannot both succeed: termination is
// exclusive and the loser observes ErrSessionEnded.
func (r *Registry) Stop(ctx context.Context, channelID, requesterID string) error {
	if r.auth != nil && !r.auth.CanStopSession(ctx, channelID, requesterID) {
		return domain.ErrNotAuthorized
	}
	return r.stop(ctx, channelID, requesterID, StopReasonRequested)
}

func (r *Registry) stop(ctx context.Context, channelID, requesterID, reason string) error {
	sess, err := r.Resolve(channelID)
	if err != nil {
		return err
	}
	if err := sess.terminate(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.sessions[channelID] == sess {
		delete(r.sessions, channelID)
	}
	r.mu.Unlock()

	metrics.SessionsActive.Dec()
	metrics.SessionsStoppedTotal.WithLabelValues(reason).Inc()
	r.publish(ctx, channelID, domain.EventSessionStopped, map[string]any{
		"channel_id": channelID,
		"user_id":    requesterID,
		"reason":     reason,
	})
	return nil
}

// Get returns the live session for channelID, if any.
func (r *Registry) Get(channelID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[channelID]
	return sess, ok
}

// Resolve returns the session for channelID or ErrSessionNotFound. It never
// creates a session as a side effect.
func (r *Registry) Resolve(channelID string) (*Session, error) {
	sess, ok := r.Get(channelID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// StopIdle tears down every session with no seated players and no input for
// the given window. It uses the same exclusive stop path as an explicit stop
// and returns the channels it stopped.
func (r *Registry) StopIdle(ctx context.Context, window time.Duration) []string {
	now := r.clock.Now()

	r.mu.RLock()
	candidates := make([]*Session, 0)
	for _, sess := range r.sessions {
		candidates = append(candidates, sess)
	}
	r.mu.RUnlock()

	var stopped []string
	for _, sess := range candidates {
		if !sess.isIdle(now, window) {
			continue
		}
		if err := r.stop(ctx, sess.ChannelID(), "", StopReasonIdle); err != nil {
			// Lost the race to an explicit stop; nothing to do.
			continue
		}
		metrics.IdleSessionsStoppedTotal.Inc()
		stopped = append(stopped, sess.ChannelID())
	}
	return stopped
}

// Summaries returns snapshots of all live sessions, ordered by channel.
func (r *Registry) Summaries() []domain.SessionSummary {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.mu.RUnlock()

	summaries := make([]domain.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, sess.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ChannelID < summaries[j].ChannelID })
	return summaries
}

func (r *Registry) publish(ctx context.Context, channelID, event string, payload any) {
	if err := r.pub.Publish(ctx, channelID, event, payload); err != nil {
		slog.Warn("Failed to publish registry event", "channel_id", channelID, "event", event, "error", err)
	}
}
