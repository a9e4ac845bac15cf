package repository

import (
	"time"

	"github.com/google/uuid"
)

// Integration status values.
const (
	IntegrationStatusActive      = "active"
	IntegrationStatusInactive    = "inactive"
	IntegrationStatusError       = "error"
	IntegrationStatusPendingAuth = "pending_auth"
)

// IntegrationConfig is the provider-specific connection settings stored in
// the config jsonb column. Nil for csv integrations.
type IntegrationConfig struct {
	Scopes []string `json:"scopes,omitempty"`
	Tenant string   `json:"tenant,omitempty"`
}

// Integration is a connected directory source. OAuth integrations carry
// tokens from the authorization-code exchange; the csv type never does.
type Integration struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	Type           string             `json:"type"`
	Status         string             `json:"status"`
	Config         *IntegrationConfig `json:"config,omitempty"`
	AccessToken    *string            `json:"-"`
	RefreshToken   *string            `json:"-"`
	TokenType      *string            `json:"-"`
	TokenExpiresAt *time.Time         `json:"token_expires_at,omitempty"`
	LastSyncAt     *time.Time         `json:"last_sync_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// TokenExpired reports whether the stored access token has lapsed. An
// integration without an expiry (csv, or a provider that omitted
// expires_in) is never considered expired.
func (i *Integration) TokenExpired(now time.Time) bool {
	return i.TokenExpiresAt != nil && now.After(*i.TokenExpiresAt)
}

// Employee is a directory person. Provider-sourced rows carry the owning
// integration and the provider's external id; manually created rows have
// neither.
type Employee struct {
	ID            uuid.UUID  `json:"id"`
	IntegrationID *uuid.UUID `json:"integration_id,omitempty"`
	ExternalID    *string    `json:"external_id,omitempty"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         string     `json:"email"`
	EmployeeID    string     `json:"employee_id"`
	JobTitle      *string    `json:"job_title,omitempty"`
	Department    *string    `json:"department,omitempty"`
	ManagerEmail  *string    `json:"manager_email,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Group is a directory group. Provider-synced rows carry the owning
// integration and the provider's external id; manually created rows have
// neither.
type Group struct {
	ID            uuid.UUID  `json:"id"`
	IntegrationID *uuid.UUID `json:"integration_id,omitempty"`
	ExternalID    *string    `json:"external_id,omitempty"`
	Name          string     `json:"name"`
	Description   *string    `json:"description,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SyncLog records one resource pass of one sync run.
type SyncLog struct {
	ID             uuid.UUID  `json:"id"`
	IntegrationID  uuid.UUID  `json:"integration_id"`
	ResourceType   string     `json:"resource_type"`
	Status         string     `json:"status"`
	RecordsFetched int        `json:"records_fetched"`
	RecordsSynced  int        `json:"records_synced"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Sync log lifecycle values.
const (
	SyncStatusStarted   = "started"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// Resource types a sync pass covers.
const (
	ResourceUsers  = "users"
	ResourceGroups = "groups"
)

// Operator is a dashboard login account.
type Operator struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// MergeResult is the summary the employee merge procedure returns.
type MergeResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Total    int `json:"total"`
}

// Stats is the dashboard overview returned by get_integration_stats.
type Stats struct {
	TotalIntegrations  int        `json:"total_integrations"`
	ActiveIntegrations int        `json:"active_integrations"`
	TotalEmployees     int        `json:"total_employees"`
	ActiveEmployees    int        `json:"active_employees"`
	TotalGroups        int        `json:"total_groups"`
	LastSyncAt         *time.Time `json:"last_sync_at"`
}
