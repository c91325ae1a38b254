package app

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/conceptdb/internal/data/graph"
	apphttp "github.com/yungbote/conceptdb/internal/http"
	httpH "github.com/yungbote/conceptdb/internal/http/handlers"
	httpMW "github.com/yungbote/conceptdb/internal/http/middleware"
)

func (a *App) routerConfig() apphttp.RouterConfig {
	checks := map[string]httpH.HealthCheckFunc{
		"graph": func(ctx context.Context) error {
			return a.Store.View(ctx, func(tx graph.Tx) error { return nil })
		},
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	if a.DB != nil {
		checks["history"] = func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	cfg := apphttp.RouterConfig{
		Log:              a.Log,
		CORSOrigins:      a.Cfg.HTTP.CORSOrigins,
		AuthMiddleware:   httpMW.NewAuthMiddleware(a.Log, a.Services.Tokens),
		RequestTimeout:   a.Cfg.HTTP.RequestTimeout.Duration,
		HealthHandler:    httpH.NewHealthHandler(checks),
		ConceptHandler:   httpH.NewConceptHandler(a.Log, a.Services.Concepts),
		AggregateHandler: httpH.NewAggregateHandler(a.Log, a.Services.Aggregates),
		ImportHandler:    httpH.NewImportHandler(a.Services.History),
	}
	if a.Cfg.Otel.Enabled {
		cfg.ServiceName = a.Cfg.Otel.ServiceName
	}
	// A dedicated metrics listener takes /metrics off the API router; request
	// metrics are still recorded.
	cfg.Metrics = a.Metrics
	return cfg
}

// Router builds the API handler; used by serve and tests.
func (a *App) Router() *gin.Engine {
	return apphttp.NewRouter(a.routerConfig())
}
