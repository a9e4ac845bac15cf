package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"dirsync.io/dirsync/internal/pkg/logger"
	"dirsync.io/dirsync/internal/repository"
)

// DefaultSyncLogRetention bounds sync history growth when no retention is
// configured.
const DefaultSyncLogRetention = 90 * 24 * time.Hour

// SyncLogCleanupArgs is a periodic maintenance job that removes old
// sync_log rows.
type SyncLogCleanupArgs struct{}

// Kind returns the job kind identifier for periodic sync log cleanup.
func (SyncLogCleanupArgs) Kind() string { return "sync_log_cleanup" }

// InsertOpts ensures at most one cleanup job is enqueued within the same day.
func (SyncLogCleanupArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: 24 * time.Hour,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// SyncLogCleanupWorker deletes sync logs older than the configured
// retention duration.
type SyncLogCleanupWorker struct {
	river.WorkerDefaults[SyncLogCleanupArgs]
	store     *repository.Store
	retention time.Duration
}

// NewSyncLogCleanupWorker creates a cleanup worker. Non-positive retention
// falls back to the 90-day default.
func NewSyncLogCleanupWorker(store *repository.Store, retention time.Duration) *SyncLogCleanupWorker {
	if retention <= 0 {
		retention = DefaultSyncLogRetention
	}
	return &SyncLogCleanupWorker{store: store, retention: retention}
}

// Work removes expired sync log rows.
func (w *SyncLogCleanupWorker) Work(ctx context.Context, _ *river.Job[SyncLogCleanupArgs]) error {
	if w == nil || w.store == nil {
		return fmt.Errorf("sync log cleanup worker is not initialized")
	}

	cutoff := time.Now().UTC().Add(-w.retention)
	deleted, err := w.store.SyncLogs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete sync logs before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	logger.Info("sync log cleanup completed",
		zap.Int64("deleted_rows", deleted),
		zap.String("cutoff", cutoff.Format(time.RFC3339)),
		zap.Duration("retention", w.retention),
	)
	return nil
}

// PeriodicJobs returns the periodic job schedule for the River client.
// Cleanup runs daily, with a run at startup to catch missed windows.
func PeriodicJobs() []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(24*time.Hour),
			func() (river.JobArgs, *river.InsertOpts) {
				return SyncLogCleanupArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}
