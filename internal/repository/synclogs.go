package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SyncLogStore struct {
	pool *pgxpool.Pool
}

const syncLogColumns = `id, integration_id, resource_type, status, records_fetched, records_synced, error_message, started_at, completed_at`

func scanSyncLog(row pgx.Row) (*SyncLog, error) {
	var l SyncLog
	err := row.Scan(
		&l.ID, &l.IntegrationID, &l.ResourceType, &l.Status,
		&l.RecordsFetched, &l.RecordsSynced, &l.ErrorMessage,
		&l.StartedAt, &l.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Start opens a sync log row for one resource pass.
func (s *SyncLogStore) Start(ctx context.Context, integrationID uuid.UUID, resourceType string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sync_logs (integration_id, resource_type, status)
		VALUES ($1, $2, 'started')
		RETURNING id`,
		integrationID, resourceType,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("start sync log: %w", err)
	}
	return id, nil
}

// Complete closes a sync log row with its counters.
func (s *SyncLogStore) Complete(ctx context.Context, id uuid.UUID, fetched, synced int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sync_logs
		SET status = 'completed', records_fetched = $2, records_synced = $3, completed_at = now()
		WHERE id = $1`, id, fetched, synced)
	if err != nil {
		return fmt.Errorf("complete sync log: %w", err)
	}
	return nil
}

// Fail closes a sync log row with an error. Counters still record what
// was fetched and merged before the failure.
func (s *SyncLogStore) Fail(ctx context.Context, id uuid.UUID, fetched, synced int, message string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sync_logs
		SET status = 'failed', records_fetched = $2, records_synced = $3, error_message = $4, completed_at = now()
		WHERE id = $1`, id, fetched, synced, message)
	if err != nil {
		return fmt.Errorf("fail sync log: %w", err)
	}
	return nil
}

// ListByIntegration returns an integration's sync history, newest first.
func (s *SyncLogStore) ListByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+syncLogColumns+` FROM sync_logs
		WHERE integration_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, integrationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync logs: %w", err)
	}
	defer rows.Close()

	var out []*SyncLog
	for rows.Next() {
		l, err := scanSyncLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes completed sync log rows that started before the
// cutoff. Used by the retention job.
func (s *SyncLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sync_logs WHERE started_at < $1 AND status <> 'started'`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old sync logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
