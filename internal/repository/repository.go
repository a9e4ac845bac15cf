// Package repository is the Postgres persistence layer. Stores issue SQL
// through a shared pgx pool; the employee merge and the dashboard stats
// live in the database as functions so concurrent syncs and re-imports
// stay idempotent without application-side locking.
package repository

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Store bundles the per-entity stores over one pool.
type Store struct {
	pool *pgxpool.Pool

	Integrations *IntegrationStore
	Employees    *EmployeeStore
	Groups       *GroupStore
	SyncLogs     *SyncLogStore
	Operators    *OperatorStore
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:         pool,
		Integrations: &IntegrationStore{pool: pool},
		Employees:    &EmployeeStore{pool: pool},
		Groups:       &GroupStore{pool: pool},
		SyncLogs:     &SyncLogStore{pool: pool},
		Operators:    &OperatorStore{pool: pool},
	}
}

// Migrate applies the embedded schema. Every statement is idempotent so
// this runs unconditionally at startup.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Stats runs the dashboard overview function.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.pool.QueryRow(ctx, `SELECT get_integration_stats()`).Scan(&stats); err != nil {
		return Stats{}, fmt.Errorf("get integration stats: %w", err)
	}
	return stats, nil
}
