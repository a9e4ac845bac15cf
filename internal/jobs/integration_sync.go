// Package jobs defines the River background jobs: on-demand integration
// re-sync and periodic sync-log retention.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"

	"dirsync.io/dirsync/internal/pkg/logger"
	"dirsync.io/dirsync/internal/provider"
	"dirsync.io/dirsync/internal/repository"
	"dirsync.io/dirsync/internal/sync"
)

// IntegrationSyncArgs re-runs the directory sync for one integration.
type IntegrationSyncArgs struct {
	IntegrationID uuid.UUID `json:"integration_id"`
}

// Kind returns the job kind identifier for integration re-sync.
func (IntegrationSyncArgs) Kind() string { return "integration_sync" }

// InsertOpts dedupes concurrent re-sync requests for the same integration
// while one is pending or running.
func (IntegrationSyncArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByArgs:  true,
			ByState: []rivertype.JobState{rivertype.JobStateAvailable, rivertype.JobStateRunning, rivertype.JobStateRetryable, rivertype.JobStateScheduled},
		},
	}
}

// IntegrationSyncWorker loads the integration's stored token and runs the
// sync pipeline against its provider.
type IntegrationSyncWorker struct {
	river.WorkerDefaults[IntegrationSyncArgs]
	store    *repository.Store
	registry *provider.Registry
	pipeline *sync.Pipeline
}

func NewIntegrationSyncWorker(store *repository.Store, registry *provider.Registry, pipeline *sync.Pipeline) *IntegrationSyncWorker {
	return &IntegrationSyncWorker{
		store:    store,
		registry: registry,
		pipeline: pipeline,
	}
}

// Work runs a full sync pass. An integration with an expired token is a
// terminal failure: retrying cannot succeed until the operator reconnects.
func (w *IntegrationSyncWorker) Work(ctx context.Context, job *river.Job[IntegrationSyncArgs]) error {
	integration, err := w.store.Integrations.Get(ctx, job.Args.IntegrationID)
	if err != nil {
		return river.JobCancel(fmt.Errorf("load integration: %w", err))
	}

	desc, ok := w.registry.Lookup(integration.Type)
	if !ok || !desc.OAuthEnabled() {
		return river.JobCancel(fmt.Errorf("integration %s has no syncable provider (%s)", integration.ID, integration.Type))
	}

	if integration.AccessToken == nil {
		return river.JobCancel(fmt.Errorf("integration %s has no stored access token", integration.ID))
	}
	if integration.TokenExpired(time.Now()) {
		// Record the skipped run so the dashboard shows why nothing synced.
		for _, resource := range []string{repository.ResourceUsers, repository.ResourceGroups} {
			logID, logErr := w.store.SyncLogs.Start(ctx, integration.ID, resource)
			if logErr != nil {
				logger.Warn("failed to record token_expired sync log", zap.Error(logErr))
				continue
			}
			if logErr := w.store.SyncLogs.Fail(ctx, logID, 0, 0, "token_expired"); logErr != nil {
				logger.Warn("failed to record token_expired sync log", zap.Error(logErr))
			}
		}
		return river.JobCancel(fmt.Errorf("integration %s token expired at %s; reconnect required",
			integration.ID, integration.TokenExpiresAt.Format(time.RFC3339)))
	}

	outcome := w.pipeline.Run(ctx, integration.ID, desc, *integration.AccessToken)
	if outcome.Failed() {
		// The pipeline already logged and recorded the partial run;
		// returning an error would re-run the merge for nothing.
		logger.Warn("integration sync finished with errors",
			zap.String("integration_id", integration.ID.String()),
			zap.String("users_error", outcome.Users.Error),
			zap.String("groups_error", outcome.Groups.Error),
		)
	}
	return nil
}
