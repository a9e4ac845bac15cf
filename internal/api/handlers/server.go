// Package handlers implements the DirSync HTTP API: operator auth, the
// dashboard CRUD surface, and the OAuth callback endpoints the provider
// redirects land on. Handlers depend on narrow store interfaces so
// behavior tests run against fakes; production wiring passes the
// repository stores.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"dirsync.io/dirsync/internal/api/middleware"
	"dirsync.io/dirsync/internal/pkg/worker"
	"dirsync.io/dirsync/internal/provider"
	"dirsync.io/dirsync/internal/repository"
	"dirsync.io/dirsync/internal/sync"
)

// IntegrationStore is the integration persistence surface handlers use.
type IntegrationStore interface {
	Create(ctx context.Context, params repository.CreateIntegrationParams) (*repository.Integration, error)
	Get(ctx context.Context, id uuid.UUID) (*repository.Integration, error)
	List(ctx context.Context) ([]*repository.Integration, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
}

// EmployeeStore is the employee persistence surface handlers use.
type EmployeeStore interface {
	Create(ctx context.Context, params repository.CreateEmployeeParams) (*repository.Employee, error)
	List(ctx context.Context, integrationID *uuid.UUID) ([]*repository.Employee, error)
	MergeFromIntegration(ctx context.Context, integrationID uuid.UUID, batch []provider.Employee) (repository.MergeResult, error)
}

// GroupStore is the group persistence surface handlers use.
type GroupStore interface {
	Create(ctx context.Context, name string, description *string) (*repository.Group, error)
	List(ctx context.Context, integrationID *uuid.UUID) ([]*repository.Group, error)
}

// SyncLogStore is the sync history surface handlers use.
type SyncLogStore interface {
	ListByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*repository.SyncLog, error)
}

// OperatorStore is the login lookup surface handlers use.
type OperatorStore interface {
	GetByEmail(ctx context.Context, email string) (*repository.Operator, error)
}

// StatsStore provides the dashboard overview counters.
type StatsStore interface {
	Stats(ctx context.Context) (repository.Stats, error)
}

// SyncRunner runs a directory sync for a connected integration.
type SyncRunner interface {
	Run(ctx context.Context, integrationID uuid.UUID, desc *provider.Descriptor, accessToken string) sync.Outcome
}

// JobEnqueuer inserts background jobs. Satisfied by *river.Client[pgx.Tx].
type JobEnqueuer interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Server implements all API handlers.
type Server struct {
	integrations IntegrationStore
	employees    EmployeeStore
	groups       GroupStore
	syncLogs     SyncLogStore
	operators    OperatorStore
	stats        StatsStore

	registry *provider.Registry
	pipeline SyncRunner
	jobs     JobEnqueuer
	pools    *worker.Pools

	jwtCfg middleware.JWTConfig
	// rootURL is the dashboard origin callback redirects land on,
	// normalized without a trailing slash.
	rootURL string

	httpClient *http.Client
	now        func() time.Time
}

// ServerDeps holds all dependencies for creating a Server. Manual DI,
// mirroring the rest of the service.
type ServerDeps struct {
	Integrations IntegrationStore
	Employees    EmployeeStore
	Groups       GroupStore
	SyncLogs     SyncLogStore
	Operators    OperatorStore
	Stats        StatsStore

	Registry *provider.Registry
	Pipeline SyncRunner
	Jobs     JobEnqueuer
	Pools    *worker.Pools

	JWTCfg  middleware.JWTConfig
	RootURL string

	// HTTPClient serves the token exchange; nil means http.DefaultClient.
	HTTPClient *http.Client
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	client := deps.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Server{
		integrations: deps.Integrations,
		employees:    deps.Employees,
		groups:       deps.Groups,
		syncLogs:     deps.SyncLogs,
		operators:    deps.Operators,
		stats:        deps.Stats,
		registry:     deps.Registry,
		pipeline:     deps.Pipeline,
		jobs:         deps.Jobs,
		pools:        deps.Pools,
		jwtCfg:       deps.JWTCfg,
		rootURL:      strings.TrimRight(deps.RootURL, "/"),
		httpClient:   client,
		now:          time.Now,
	}
}
