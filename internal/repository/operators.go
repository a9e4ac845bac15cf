package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "dirsync.io/dirsync/internal/pkg/errors"
)

type OperatorStore struct {
	pool *pgxpool.Pool
}

// Create inserts a dashboard operator account. The hash must already be
// bcrypt-encoded; this store never sees plaintext passwords.
func (s *OperatorStore) Create(ctx context.Context, email, name, passwordHash string) (*Operator, error) {
	var op Operator
	err := s.pool.QueryRow(ctx, `
		INSERT INTO operators (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, name, password_hash, created_at`,
		email, name, passwordHash,
	).Scan(&op.ID, &op.Email, &op.Name, &op.PasswordHash, &op.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert operator: %w", err)
	}
	return &op, nil
}

// GetByEmail looks up an operator for login. The not-found case returns
// the same auth-failed error as a bad password so the response does not
// leak which accounts exist.
func (s *OperatorStore) GetByEmail(ctx context.Context, email string) (*Operator, error) {
	var op Operator
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM operators WHERE email = $1`, email,
	).Scan(&op.ID, &op.Email, &op.Name, &op.PasswordHash, &op.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Unauthorized(apperrors.CodeAuthFailed, "invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("get operator: %w", err)
	}
	return &op, nil
}
