package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "dirsync.io/dirsync/internal/pkg/errors"
	"dirsync.io/dirsync/internal/provider"
)

type EmployeeStore struct {
	pool *pgxpool.Pool
}

// CreateEmployeeParams carries the fields for a manually created employee.
type CreateEmployeeParams struct {
	FirstName    string
	LastName     string
	Email        string
	EmployeeID   string
	JobTitle     *string
	Department   *string
	ManagerEmail *string
	Phone        *string
	Status       string
}

const employeeColumns = `id, integration_id, external_id, first_name, last_name, email, employee_id, job_title, department, manager_email, phone, status, created_at, updated_at`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	err := row.Scan(
		&e.ID, &e.IntegrationID, &e.ExternalID,
		&e.FirstName, &e.LastName, &e.Email, &e.EmployeeID,
		&e.JobTitle, &e.Department, &e.ManagerEmail, &e.Phone,
		&e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a manual employee row with no owning integration.
func (s *EmployeeStore) Create(ctx context.Context, params CreateEmployeeParams) (*Employee, error) {
	if params.Status == "" {
		params.Status = "active"
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO employees (first_name, last_name, email, employee_id, job_title, department, manager_email, phone, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+employeeColumns,
		params.FirstName, params.LastName, params.Email, params.EmployeeID,
		params.JobTitle, params.Department, params.ManagerEmail, params.Phone,
		params.Status,
	)
	e, err := scanEmployee(row)
	if err != nil {
		return nil, fmt.Errorf("insert employee: %w", err)
	}
	return e, nil
}

// Get returns one employee by id.
func (s *EmployeeStore) Get(ctx context.Context, id uuid.UUID) (*Employee, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	e, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound(apperrors.CodeEmployeeNotFound, "employee not found: "+id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

// List returns employees, newest first. A non-nil integrationID narrows
// the listing to one integration's rows.
func (s *EmployeeStore) List(ctx context.Context, integrationID *uuid.UUID) ([]*Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees`
	args := []any{}
	if integrationID != nil {
		query += ` WHERE integration_id = $1`
		args = append(args, *integrationID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []*Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MergeFromIntegration runs the database merge procedure over a normalized
// batch. The procedure keys on (integration_id, external_id), so replaying
// the same batch is idempotent.
func (s *EmployeeStore) MergeFromIntegration(ctx context.Context, integrationID uuid.UUID, batch []provider.Employee) (MergeResult, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return MergeResult{}, fmt.Errorf("marshal employee batch: %w", err)
	}

	var result MergeResult
	err = s.pool.QueryRow(ctx,
		`SELECT sync_employees_from_integration($1, $2)`,
		integrationID, payload,
	).Scan(&result)
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge employees: %w", err)
	}
	return result, nil
}
