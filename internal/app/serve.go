package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	apphttp "github.com/yungbote/conceptdb/internal/http"
	"github.com/yungbote/conceptdb/internal/pkg/dbctx"
)

const historyPruneInterval = time.Hour

// Serve runs the API server and background maintenance until ctx is done or
// one of them fails.
func (a *App) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.Metrics != nil {
		interval := a.Cfg.Metrics.ScrapeInterval.Duration
		a.Metrics.StartHistoryDBCollector(gctx, a.Log, a.DB, interval)
		a.Metrics.StartRedisCollector(gctx, a.Redis, interval)
		a.Metrics.StartServer(gctx, a.Log, a.Cfg.Metrics.Addr)
	}

	srv := apphttp.NewServer(a.Cfg.HTTP.Addr, a.Log, a.routerConfig())
	g.Go(func() error { return srv.Run(gctx) })

	if a.Repos.ImportRuns != nil && a.Cfg.History.Retention.Duration > 0 {
		g.Go(func() error {
			a.pruneHistory(gctx)
			return nil
		})
	}

	return g.Wait()
}

func (a *App) pruneHistory(ctx context.Context) {
	retention := a.Cfg.History.Retention.Duration
	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()
	for {
		if _, err := a.Repos.ImportRuns.DeleteOlderThan(dbctx.New(ctx), time.Now().Add(-retention)); err != nil && ctx.Err() == nil {
			a.Log.Warn("history prune failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
