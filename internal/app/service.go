// Package app wires the session registry, the emulator relay, and the audit
// trail into the application service the HTTP layer talks to. It also owns
// the background loops: idle session cleanup and leader-gated history pruning.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coplay/internal/domain"
	"github.com/pscheid92/coplay/internal/metrics"
	"github.com/pscheid92/coplay/internal/session"
)

// historyPruneInterval is how often the retention loop attempts a prune run.
const historyPruneInterval = time.Hour

// InstanceLister reports the instance IDs currently heartbeating.
type InstanceLister interface {
	GetActiveInstances(ctx context.Context) ([]string, error)
}

// LeaderElector gates cluster-wide background jobs to a single instance.
type LeaderElector interface {
	TryBecomeLeader(ctx context.Context) (bool, error)
	RenewLease(ctx context.Context) error
	ReleaseLease(ctx context.Context) error
}

// HistoryPruner deletes audit rows older than the retention window.
type HistoryPruner interface {
	PruneOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// Options carries the service's tunables and optional collaborators.
// Instances, Leader, and Pruner may be nil; the matching feature is then off.
type Options struct {
	Enabled              bool
	IdleSessionTimeout   time.Duration
	IdleScanInterval     time.Duration
	HistoryRetentionDays int

	Instances InstanceLister
	Leader    LeaderElector
	Pruner    HistoryPruner
}

// Service implements domain.AppService on top of the session registry.
// History writes are best-effort: a failed audit row never blocks or rolls
// back a lifecycle transition.
type Service struct {
	registry *session.Registry
	history  domain.HistoryRepository
	clock    clockwork.Clock
	opts     Options
}

var _ domain.AppService = (*Service)(nil)

// New creates the application service. history may be nil to disable the
// audit trail entirely.
func New(registry *session.Registry, history domain.HistoryRepository, clock clockwork.Clock, opts Options) *Service {
	return &Service{
		registry: registry,
		history:  history,
		clock:    clock,
		opts:     opts,
	}
}

// StartSession creates a session for the channel and records the start in the
// audit trail.
func (s *Service) StartSession(ctx context.Context, channelID string, target domain.TargetKind, cfg domain.StartConfig) (domain.SessionSummary, error) {
	if !s.opts.Enabled {
		return domain.SessionSummary{}, domain.ErrDisabled
	}

	sess, err := s.registry.Start(ctx, channelID, target, cfg)
	if err != nil {
		return domain.SessionSummary{}, err
	}

	s.recordStarted(ctx, channelID, sess.Target(), cfg.RequestedBy, cfg.Game)
	return sess.Summary(), nil
}

// StopSession stops the channel's session on behalf of requesterID.
func (s *Service) StopSession(ctx context.Context, channelID, requesterID string) error {
	sess, ok := s.registry.Get(channelID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	target := sess.Target()

	if err := s.registry.Stop(ctx, channelID, requesterID); err != nil {
		return err
	}

	s.recordStopped(ctx, channelID, target, requesterID, session.StopReasonRequested)
	return nil
}

// GetSession returns a snapshot of the channel's session, if one is live.
func (s *Service) GetSession(_ context.Context, channelID string) (domain.SessionSummary, bool) {
	sess, ok := s.registry.Get(channelID)
	if !ok {
		return domain.SessionSummary{}, false
	}
	return sess.Summary(), true
}

// Status returns the service-level view: the enabled flag, all live sessions
// on this instance, and the active instances cluster-wide.
func (s *Service) Status(ctx context.Context) domain.Status {
	status := domain.Status{
		Enabled:  s.opts.Enabled,
		Sessions: s.registry.Summaries(),
	}

	if s.opts.Instances != nil {
		instances, err := s.opts.Instances.GetActiveInstances(ctx)
		if err != nil {
			slog.Warn("Failed to list active instances", "error", err)
		} else {
			status.Instances = instances
		}
	}
	return status
}

// JoinPlayer claims a player slot in the channel's session.
func (s *Service) JoinPlayer(ctx context.Context, channelID, userID string, requestedSlot int) (int, error) {
	sess, err := s.registry.Resolve(channelID)
	if err != nil {
		return 0, err
	}
	return sess.JoinPlayer(ctx, userID, requestedSlot)
}

// LeavePlayer frees the slot held by userID.
func (s *Service) LeavePlayer(ctx context.Context, channelID, userID string) error {
	sess, err := s.registry.Resolve(channelID)
	if err != nil {
		return err
	}
	return sess.LeavePlayer(ctx, userID)
}

// JoinSpectator adds userID to the session's spectator set.
func (s *Service) JoinSpectator(ctx context.Context, channelID, userID string) error {
	sess, err := s.registry.Resolve(channelID)
	if err != nil {
		return err
	}
	return sess.JoinSpectator(ctx, userID)
}

// LeaveSpectator removes userID from the session's spectator set.
func (s *Service) LeaveSpectator(ctx context.Context, channelID, userID string) error {
	sess, err := s.registry.Resolve(channelID)
	if err != nil {
		return err
	}
	return sess.LeaveSpectator(ctx, userID)
}

// HandleInput admits one input frame from userID.
func (s *Service) HandleInput(ctx context.Context, channelID, userID string, payload []byte) error {
	sess, err := s.registry.Resolve(channelID)
	if err != nil {
		return err
	}
	return sess.HandleInput(ctx, userID, payload)
}

// TogglePause flips the session between Active and Paused.
func (s *Service) TogglePause(ctx context.Context, channelID, userID string) (domain.SessionState, error) {
	sess, err := s.registry.Resolve(channelID)
	if err != nil {
		return "", err
	}
	return sess.TogglePause(ctx, userID)
}

// LoadGame swaps the loaded game in the channel's session.
func (s *Service) LoadGame(ctx context.Context, channelID, userID, gameRef string) error {
	sess, err := s.registry.Resolve(channelID)
	if err != nil {
		return err
	}
	return sess.LoadGame(ctx, userID, gameRef)
}

// SaveState captures the emulator state into the given slot.
func (s *Service) SaveState(ctx context.Context, channelID, userID string, slot int) (domain.StateRef, error) {
	sess, err := s.registry.Resolve(channelID)
	if err != nil {
		return "", err
	}
	return sess.SaveState(ctx, userID, slot)
}

// LoadState restores the state saved under the given slot.
func (s *Service) LoadState(ctx context.Context, channelID, userID string, slot int) error {
	sess, err := s.registry.Resolve(channelID)
	if err != nil {
		return err
	}
	return sess.LoadState(ctx, userID, slot)
}

// ControllerMapping returns the input surface for a target kind.
func (s *Service) ControllerMapping(target domain.TargetKind) (domain.ControllerMapping, error) {
	return session.Mapping(target)
}

// RunIdleCleanup scans for idle sessions on the configured interval and tears
// them down. Blocks until ctx is cancelled.
func (s *Service) RunIdleCleanup(ctx context.Context) {
	ticker := s.clock.NewTicker(s.opts.IdleScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.scanIdle(ctx)
		}
	}
}

func (s *Service) scanIdle(ctx context.Context) {
	metrics.IdleCleanupScansTotal.Inc()

	// Targets must be captured before the stop removes the sessions.
	targets := make(map[string]domain.TargetKind)
	for _, summary := range s.registry.Summaries() {
		targets[summary.ChannelID] = summary.Target
	}

	stopped := s.registry.StopIdle(ctx, s.opts.IdleSessionTimeout)
	for _, channelID := range stopped {
		slog.Info("Stopped idle session", "channel_id", channelID)
		s.recordStopped(ctx, channelID, targets[channelID], "", session.StopReasonIdle)
	}
}

// RunHistoryRetention prunes audit rows past the retention window on one
// instance cluster-wide, gated by leader election. Blocks until ctx is
// cancelled; a no-op when no elector or pruner is configured.
func (s *Service) RunHistoryRetention(ctx context.Context) {
	if s.opts.Leader == nil || s.opts.Pruner == nil {
		return
	}

	ticker := s.clock.NewTicker(historyPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.opts.Leader.ReleaseLease(context.Background()); err != nil {
				slog.Warn("Failed to release leader lease", "error", err)
			}
			return
		case <-ticker.Chan():
			s.pruneHistory(ctx)
		}
	}
}

func (s *Service) pruneHistory(ctx context.Context) {
	acquired, err := s.opts.Leader.TryBecomeLeader(ctx)
	if err != nil {
		slog.Warn("Leader election attempt failed", "error", err)
		return
	}
	if !acquired {
		// The key may already be ours from a previous round.
		if err := s.opts.Leader.RenewLease(ctx); err != nil {
			return
		}
	}

	deleted, err := s.opts.Pruner.PruneOlderThan(ctx, s.opts.HistoryRetentionDays)
	if err != nil {
		slog.Error("History prune failed", "retention_days", s.opts.HistoryRetentionDays, "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Pruned session history", "rows", deleted, "retention_days", s.opts.HistoryRetentionDays)
	}
}

func (s *Service) recordStarted(ctx context.Context, channelID string, target domain.TargetKind, actor, game string) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordStarted(ctx, channelID, target, actor, game); err != nil {
		slog.Warn("Failed to record session start", "channel_id", channelID, "error", err)
	}
}

func (s *Service) recordStopped(ctx context.Context, channelID string, target domain.TargetKind, actor, reason string) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordStopped(ctx, channelID, target, actor, reason); err != nil {
		slog.Warn("Failed to record session stop", "channel_id", channelID, "error", err)
	}
}
