package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/coplay/internal/domain"
)

// HistoryRepo persists the session start/stop audit trail.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

var _ domain.HistoryRepository = (*HistoryRepo)(nil)

// NewHistoryRepo creates a repository backed by the given pool.
func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

// RecordStarted writes an audit row for a session start. The detail column
// carries the initially loaded game, if any.
func (r *HistoryRepo) RecordStarted(ctx context.Context, channelID string, target domain.TargetKind, actor, game string) error {
	return r.record(ctx, channelID, target, "started", actor, game)
}

// RecordStopped writes an audit row for a session stop. The detail column
// carries the stop reason.
func (r *HistoryRepo) RecordStopped(ctx context.Context, channelID string, target domain.TargetKind, actor, reason string) error {
	return r.record(ctx, channelID, target, "stopped", actor, reason)
}

func (r *HistoryRepo) record(ctx context.Context, channelID string, target domain.TargetKind, event, actor, detail string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO session_history (channel_id, target, event, actor, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, channelID, string(target), event, actor, detail)
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", event, err)
	}
	return nil
}

// ListRecent returns the newest entries first, capped at limit.
func (r *HistoryRepo) ListRecent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, channel_id, target, event, actor, detail, occurred_at
		FROM session_history
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list session history: %w", err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var e domain.HistoryEntry
		var target string
		if err := rows.Scan(&e.ID, &e.ChannelID, &target, &e.Event, &e.Actor, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Target = domain.TargetKind(target)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	return entries, nil
}

// PruneOlderThan deletes audit rows older than the retention window.
// Run by the cluster leader only.
func (r *HistoryRepo) PruneOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM session_history
		WHERE occurred_at < NOW() - make_interval(days => $1)
	`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to prune session history: %w", err)
	}
	return tag.RowsAffected(), nil
}
