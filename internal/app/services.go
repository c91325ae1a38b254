package app

import (
	"github.com/yungbote/conceptdb/internal/data/concepts"
	"github.com/yungbote/conceptdb/internal/platform/logger"
	"github.com/yungbote/conceptdb/internal/services"
)

type Services struct {
	Concepts   services.ConceptService
	Aggregates services.AggregateService
	History    services.ImportHistory
	Tokens     services.TokenService
}

func wireServices(log *logger.Logger, a *App) Services {
	log.Info("Wiring services...")
	deps := concepts.BaseDeps{
		Store:     a.Store,
		Log:       log,
		Hooks:     concepts.NewObservabilityHooks(a.Metrics),
		BatchSize: a.Cfg.Aggregates.BatchSize,
	}
	return Services{
		Concepts: services.NewConceptService(log, services.ConceptServiceDeps{
			Writer:      concepts.NewWriter(deps),
			Locker:      a.Locker,
			Runs:        a.Repos.ImportRuns,
			Metrics:     a.Metrics,
			LockTimeout: a.Cfg.Locks.Timeout.Duration,
		}),
		Aggregates: services.NewAggregateService(log, services.AggregateServiceDeps{
			Aggregates:  concepts.NewAggregates(deps),
			Locker:      a.Locker,
			Runs:        a.Repos.ImportRuns,
			Metrics:     a.Metrics,
			LockTimeout: a.Cfg.Locks.Timeout.Duration,
		}),
		History: services.NewImportHistory(a.Repos.ImportRuns, log),
		Tokens:  services.NewTokenService(log, a.Cfg.Auth.JWTSecret),
	}
}
