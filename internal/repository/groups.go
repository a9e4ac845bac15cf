package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dirsync.io/dirsync/internal/provider"
)

type GroupStore struct {
	pool *pgxpool.Pool
}

const groupColumns = `id, integration_id, external_id, name, description, created_at, updated_at`

func scanGroup(row pgx.Row) (*Group, error) {
	var g Group
	err := row.Scan(
		&g.ID, &g.IntegrationID, &g.ExternalID,
		&g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Create inserts a manual group with no owning integration.
func (s *GroupStore) Create(ctx context.Context, name string, description *string) (*Group, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO groups (name, description)
		VALUES ($1, $2)
		RETURNING `+groupColumns,
		name, description,
	)
	g, err := scanGroup(row)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	return g, nil
}

// List returns groups, newest first. A non-nil integrationID narrows the
// listing to one integration's rows.
func (s *GroupStore) List(ctx context.Context, integrationID *uuid.UUID) ([]*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups`
	args := []any{}
	if integrationID != nil {
		query += ` WHERE integration_id = $1`
		args = append(args, *integrationID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []*Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// BulkUpsert merges a normalized group batch on (external_id,
// integration_id). Rows are sent in one batch; a re-run of the same batch
// updates in place.
func (s *GroupStore) BulkUpsert(ctx context.Context, integrationID uuid.UUID, groups []provider.Group) (int, error) {
	if len(groups) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, g := range groups {
		batch.Queue(`
			INSERT INTO groups (integration_id, external_id, name, description)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (external_id, integration_id)
			WHERE external_id IS NOT NULL AND integration_id IS NOT NULL
			DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				updated_at = now()`,
			integrationID, g.ExternalID, g.Name, g.Description,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range groups {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("upsert group %s: %w", groups[i].ExternalID, err)
		}
	}
	return len(groups), nil
}
