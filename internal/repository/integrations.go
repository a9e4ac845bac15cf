package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "dirsync.io/dirsync/internal/pkg/errors"
)

type IntegrationStore struct {
	pool *pgxpool.Pool
}

// CreateIntegrationParams carries the fields for a new integration row.
// Config and token fields are nil for csv integrations.
type CreateIntegrationParams struct {
	Name           string
	Type           string
	Status         string
	Config         *IntegrationConfig
	AccessToken    *string
	RefreshToken   *string
	TokenType      *string
	TokenExpiresAt *time.Time
}

const integrationColumns = `id, name, type, status, config, access_token, refresh_token, token_type, token_expires_at, last_sync_at, created_at, updated_at`

func scanIntegration(row pgx.Row) (*Integration, error) {
	var in Integration
	err := row.Scan(
		&in.ID, &in.Name, &in.Type, &in.Status, &in.Config,
		&in.AccessToken, &in.RefreshToken, &in.TokenType, &in.TokenExpiresAt,
		&in.LastSyncAt, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// Create inserts an integration and returns the stored row.
func (s *IntegrationStore) Create(ctx context.Context, params CreateIntegrationParams) (*Integration, error) {
	if params.Status == "" {
		params.Status = IntegrationStatusActive
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO integrations (name, type, status, config, access_token, refresh_token, token_type, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+integrationColumns,
		params.Name, params.Type, params.Status, params.Config,
		params.AccessToken, params.RefreshToken, params.TokenType, params.TokenExpiresAt,
	)
	in, err := scanIntegration(row)
	if err != nil {
		return nil, fmt.Errorf("insert integration: %w", err)
	}
	return in, nil
}

// Get returns an integration by id, or an integration-not-found AppError.
func (s *IntegrationStore) Get(ctx context.Context, id uuid.UUID) (*Integration, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+integrationColumns+` FROM integrations WHERE id = $1`, id)
	in, err := scanIntegration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrIntegrationNotFound(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get integration: %w", err)
	}
	return in, nil
}

// List returns all integrations, newest first.
func (s *IntegrationStore) List(ctx context.Context) ([]*Integration, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+integrationColumns+` FROM integrations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	defer rows.Close()

	var out []*Integration
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan integration: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// MarkSynced stamps last_sync_at and reasserts the active status after a
// sync run, whether or not individual passes failed.
func (s *IntegrationStore) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE integrations
		SET last_sync_at = $2, status = 'active', updated_at = now()
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark integration synced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrIntegrationNotFound(id.String())
	}
	return nil
}

// UpdateTokens replaces the stored credentials after a fresh authorization.
func (s *IntegrationStore) UpdateTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken, tokenType *string, expiresAt *time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE integrations
		SET access_token = $2, refresh_token = $3, token_type = $4, token_expires_at = $5, updated_at = now()
		WHERE id = $1`, id, accessToken, refreshToken, tokenType, expiresAt)
	if err != nil {
		return fmt.Errorf("update integration tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrIntegrationNotFound(id.String())
	}
	return nil
}

// Delete removes an integration; employees, groups, and sync logs cascade.
func (s *IntegrationStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM integrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete integration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrIntegrationNotFound(id.String())
	}
	return nil
}
