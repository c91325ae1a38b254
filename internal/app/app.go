package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/conceptdb/internal/data/graph"
	"github.com/yungbote/conceptdb/internal/data/graph/memgraph"
	"github.com/yungbote/conceptdb/internal/observability"
	"github.com/yungbote/conceptdb/internal/platform/locks"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      *Config
	Metrics  *observability.Metrics
	Store    graph.Store
	Locker   locks.Locker
	DB       *gorm.DB
	Redis    *goredis.Client
	Repos    Repos
	Services Services

	// memory is set when the embedded store backs the graph.
	memory       *memgraph.Store
	otelShutdown func(context.Context) error
}

// New wires every dependency named by cfg. Callers must Close the app.
func New(ctx context.Context, cfg *Config) (*App, error) {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithLogger(ctx, cfg, log)
}

func NewWithLogger(ctx context.Context, cfg *Config, log *logger.Logger) (*App, error) {
	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.otel())
	if cfg.Metrics.Enabled {
		a.Metrics = observability.New()
	}

	if err := a.openGraph(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.openLocker(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.openHistory(); err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Repos = wireRepos(a.DB, log)
	a.Services = wireServices(log, a)
	log.Info("app wired",
		"graph_backend", cfg.Graph.Backend,
		"history_driver", cfg.History.Driver,
		"distributed_locks", a.Redis != nil,
		"metrics", cfg.Metrics.Enabled,
		"otel", cfg.Otel.Enabled,
	)
	return a, nil
}

// Close persists the embedded graph snapshot and releases every client.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.SaveSnapshot(); err != nil {
		a.Log.Error("snapshot save failed", "path", a.Cfg.Graph.SnapshotPath, "error", err)
	}
	if a.Store != nil {
		if err := a.Store.Close(ctx); err != nil {
			a.Log.Warn("graph store close failed", "error", err)
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.otelShutdown != nil {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := a.otelShutdown(sctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	a.Log.Sync()
}

// SaveSnapshot writes the embedded graph to the configured snapshot path.
func (a *App) SaveSnapshot() error {
	if a.memory == nil || a.Cfg.Graph.SnapshotPath == "" {
		return nil
	}
	start := time.Now()
	if err := a.memory.SaveFile(a.Cfg.Graph.SnapshotPath); err != nil {
		return err
	}
	nodes, edges := a.memory.Stats()
	a.Log.Info("graph snapshot saved", "path", a.Cfg.Graph.SnapshotPath, "nodes", nodes, "edges", edges, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}
