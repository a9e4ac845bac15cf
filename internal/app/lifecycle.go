package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dirsync.io/dirsync/internal/pkg/logger"
)

// Start starts background services (River workers).
func (a *Application) Start(ctx context.Context) error {
	if a.DB != nil && a.DB.RiverClient != nil {
		if err := a.DB.RiverClient.Start(ctx); err != nil {
			return fmt.Errorf("start river client: %w", err)
		}
		logger.Info("River client started, jobs will now be consumed")
	}
	return nil
}

// Shutdown gracefully shuts down all application components.
func (a *Application) Shutdown() {
	if a.DB != nil && a.DB.RiverClient != nil {
		if err := a.DB.RiverClient.Stop(context.Background()); err != nil {
			logger.Warn("failed to stop river client cleanly", zap.Error(err))
		}
	}
	if a.Pools != nil {
		a.Pools.Shutdown()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
