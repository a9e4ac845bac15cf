// Package sync runs the directory synchronization passes: fetch a
// provider's users and groups, merge them into the database, and record
// the run in sync_logs. A run is best-effort: a failing pass is logged
// and the remaining passes still execute.
package sync

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dirsync.io/dirsync/internal/pkg/logger"
	"dirsync.io/dirsync/internal/provider"
	"dirsync.io/dirsync/internal/repository"
)

// Store is the slice of the persistence layer a sync run needs.
type Store interface {
	MergeEmployees(ctx context.Context, integrationID uuid.UUID, batch []provider.Employee) (repository.MergeResult, error)
	UpsertGroups(ctx context.Context, integrationID uuid.UUID, groups []provider.Group) (int, error)
	StartSyncLog(ctx context.Context, integrationID uuid.UUID, resourceType string) (uuid.UUID, error)
	CompleteSyncLog(ctx context.Context, id uuid.UUID, fetched, synced int) error
	FailSyncLog(ctx context.Context, id uuid.UUID, fetched, synced int, message string) error
	MarkIntegrationSynced(ctx context.Context, id uuid.UUID, at time.Time) error
}

// RepoStore adapts *repository.Store to the Store interface.
type RepoStore struct {
	Repo *repository.Store
}

func (s RepoStore) MergeEmployees(ctx context.Context, integrationID uuid.UUID, batch []provider.Employee) (repository.MergeResult, error) {
	return s.Repo.Employees.MergeFromIntegration(ctx, integrationID, batch)
}

func (s RepoStore) UpsertGroups(ctx context.Context, integrationID uuid.UUID, groups []provider.Group) (int, error) {
	return s.Repo.Groups.BulkUpsert(ctx, integrationID, groups)
}

func (s RepoStore) StartSyncLog(ctx context.Context, integrationID uuid.UUID, resourceType string) (uuid.UUID, error) {
	return s.Repo.SyncLogs.Start(ctx, integrationID, resourceType)
}

func (s RepoStore) CompleteSyncLog(ctx context.Context, id uuid.UUID, fetched, synced int) error {
	return s.Repo.SyncLogs.Complete(ctx, id, fetched, synced)
}

func (s RepoStore) FailSyncLog(ctx context.Context, id uuid.UUID, fetched, synced int, message string) error {
	return s.Repo.SyncLogs.Fail(ctx, id, fetched, synced, message)
}

func (s RepoStore) MarkIntegrationSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.Repo.Integrations.MarkSynced(ctx, id, at)
}

// directoryClient is what the pipeline needs from a provider directory.
type directoryClient interface {
	ListUsers(ctx context.Context, accessToken string) ([]provider.Employee, error)
	ListGroups(ctx context.Context, accessToken string) ([]provider.Group, error)
}

// ResourceOutcome summarizes one pass of a run.
type ResourceOutcome struct {
	Resource string `json:"resource"`
	Fetched  int    `json:"fetched"`
	Synced   int    `json:"synced"`
	Error    string `json:"error,omitempty"`
}

// Outcome summarizes a whole run. A run with pass errors is still a run:
// the integration's last_sync_at is stamped regardless.
type Outcome struct {
	IntegrationID uuid.UUID       `json:"integration_id"`
	Users         ResourceOutcome `json:"users"`
	Groups        ResourceOutcome `json:"groups"`
}

// Failed reports whether any pass recorded an error.
func (o Outcome) Failed() bool {
	return o.Users.Error != "" || o.Groups.Error != ""
}

// Pipeline executes sync runs against a store.
type Pipeline struct {
	store        Store
	newDirectory func(d *provider.Descriptor) directoryClient
	now          func() time.Time
}

// NewPipeline creates a pipeline. A nil client falls back to a dedicated
// HTTP client with a conservative timeout covering one page request.
func NewPipeline(store Store, client *http.Client) *Pipeline {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Pipeline{
		store: store,
		newDirectory: func(d *provider.Descriptor) directoryClient {
			return provider.NewDirectory(d, client)
		},
		now: time.Now,
	}
}

// Run fetches and merges users then groups for one integration. Errors
// are captured in the outcome and in sync_logs, never returned: the
// caller decides what a partial run means for it.
func (p *Pipeline) Run(ctx context.Context, integrationID uuid.UUID, desc *provider.Descriptor, accessToken string) Outcome {
	outcome := Outcome{IntegrationID: integrationID}

	outcome.Users = p.runUsers(ctx, integrationID, desc, accessToken)
	outcome.Groups = p.runGroups(ctx, integrationID, desc, accessToken)

	// Stamp the run even after partial failures so the dashboard shows
	// when the last attempt happened.
	if err := p.store.MarkIntegrationSynced(ctx, integrationID, p.now().UTC()); err != nil {
		logger.Error("failed to stamp integration sync time",
			zap.String("integration_id", integrationID.String()),
			zap.Error(err),
		)
	}

	logger.Info("sync run finished",
		zap.String("integration_id", integrationID.String()),
		zap.String("provider", desc.Type),
		zap.Int("users_synced", outcome.Users.Synced),
		zap.Int("groups_synced", outcome.Groups.Synced),
		zap.Bool("failed", outcome.Failed()),
	)
	return outcome
}

func (p *Pipeline) runUsers(ctx context.Context, integrationID uuid.UUID, desc *provider.Descriptor, accessToken string) ResourceOutcome {
	out := ResourceOutcome{Resource: repository.ResourceUsers}

	logID, err := p.store.StartSyncLog(ctx, integrationID, repository.ResourceUsers)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	users, listErr := p.newDirectory(desc).ListUsers(ctx, accessToken)
	out.Fetched = len(users)

	// A partial listing is still merged so a mid-pagination failure does
	// not discard the pages that succeeded.
	if len(users) > 0 {
		result, err := p.store.MergeEmployees(ctx, integrationID, users)
		if err != nil {
			p.finish(ctx, logID, out, err)
			out.Error = err.Error()
			return out
		}
		out.Synced = result.Total
	}

	p.finish(ctx, logID, out, listErr)
	if listErr != nil {
		out.Error = listErr.Error()
	}
	return out
}

func (p *Pipeline) runGroups(ctx context.Context, integrationID uuid.UUID, desc *provider.Descriptor, accessToken string) ResourceOutcome {
	out := ResourceOutcome{Resource: repository.ResourceGroups}

	logID, err := p.store.StartSyncLog(ctx, integrationID, repository.ResourceGroups)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	groups, listErr := p.newDirectory(desc).ListGroups(ctx, accessToken)
	out.Fetched = len(groups)

	if len(groups) > 0 {
		n, err := p.store.UpsertGroups(ctx, integrationID, groups)
		out.Synced = n
		if err != nil {
			p.finish(ctx, logID, out, err)
			out.Error = err.Error()
			return out
		}
	}

	p.finish(ctx, logID, out, listErr)
	if listErr != nil {
		out.Error = listErr.Error()
	}
	return out
}

func (p *Pipeline) finish(ctx context.Context, logID uuid.UUID, out ResourceOutcome, runErr error) {
	var err error
	if runErr != nil {
		err = p.store.FailSyncLog(ctx, logID, out.Fetched, out.Synced, runErr.Error())
	} else {
		err = p.store.CompleteSyncLog(ctx, logID, out.Fetched, out.Synced)
	}
	if err != nil {
		logger.Error("failed to close sync log", zap.Error(err))
	}
}
