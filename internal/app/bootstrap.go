// Package app is the composition root: it wires configuration, the
// database, the provider registry, the sync pipeline, background workers,
// and the HTTP router into one Application.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"dirsync.io/dirsync/internal/api/handlers"
	"dirsync.io/dirsync/internal/api/middleware"
	"dirsync.io/dirsync/internal/config"
	"dirsync.io/dirsync/internal/infrastructure"
	"dirsync.io/dirsync/internal/jobs"
	"dirsync.io/dirsync/internal/pkg/worker"
	"dirsync.io/dirsync/internal/provider"
	"dirsync.io/dirsync/internal/sync"
)

// Application holds composed application dependencies.
type Application struct {
	Config *config.Config
	Router *gin.Engine
	DB     *infrastructure.DatabaseClients
	Pools  *worker.Pools
}

// Bootstrap initializes all dependencies using manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	registry, err := provider.NewRegistry(cfg.Providers)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init provider registry: %w", err)
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		ImportPoolSize:  cfg.Worker.ImportPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	// One HTTP client serves both the token exchange and directory
	// listings; a page request against a slow tenant still has to finish
	// inside this window.
	httpClient := &http.Client{Timeout: 30 * time.Second}
	pipeline := sync.NewPipeline(sync.RepoStore{Repo: db.Store}, httpClient)

	retention := cfg.Sync.LogRetention
	if retention <= 0 {
		retention = jobs.DefaultSyncLogRetention
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, jobs.NewIntegrationSyncWorker(db.Store, registry, pipeline))
	river.AddWorker(workers, jobs.NewSyncLogCleanupWorker(db.Store, retention))
	if err := db.InitRiverClient(workers, cfg.River, jobs.PeriodicJobs()); err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init river client: %w", err)
	}

	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte(cfg.Security.JWTSigningSecret),
		Issuer:     cfg.Security.JWTIssuer,
		ExpiresIn:  cfg.Security.JWTExpiresIn,
	}

	server := handlers.NewServer(handlers.ServerDeps{
		Integrations: db.Store.Integrations,
		Employees:    db.Store.Employees,
		Groups:       db.Store.Groups,
		SyncLogs:     db.Store.SyncLogs,
		Operators:    db.Store.Operators,
		Stats:        db.Store,
		Registry:     registry,
		Pipeline:     pipeline,
		Jobs:         db.RiverClient,
		Pools:        pools,
		JWTCfg:       jwtCfg,
		RootURL:      cfg.App.RootURL,
		HTTPClient:   httpClient,
	})

	return &Application{
		Config: cfg,
		Router: newRouter(cfg, server, jwtCfg),
		DB:     db,
		Pools:  pools,
	}, nil
}
