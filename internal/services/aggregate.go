package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	importrepo "github.com/yungbote/conceptdb/internal/data/repos/imports"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	types "github.com/yungbote/conceptdb/internal/domain/imports"
	"github.com/yungbote/conceptdb/internal/observability"
	"github.com/yungbote/conceptdb/internal/platform/locks"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

// AggregateService runs the aggregate maintenance passes one at a time.
type AggregateService interface {
	BuildByMapping(ctx context.Context, opts domain.MappingBuildOptions) (domain.AggregateBuildResult, error)
	BuildByName(ctx context.Context, label string) (domain.AggregateBuildResult, error)
	Delete(ctx context.Context, label string) (int, error)
	Assemble(ctx context.Context) (int, error)
}

type AggregateServiceDeps struct {
	Aggregates  domain.AggregateWriter
	Locker      locks.Locker
	Runs        importrepo.ImportRunRepo
	Metrics     *observability.Metrics
	LockTimeout time.Duration
}

type aggregateService struct {
	aggregates  domain.AggregateWriter
	locker      locks.Locker
	metrics     *observability.Metrics
	runs        recorder
	lockTimeout time.Duration
	log         *logger.Logger
}

func NewAggregateService(baseLog *logger.Logger, deps AggregateServiceDeps) AggregateService {
	log := baseLog.With("service", "AggregateService")
	locker := deps.Locker
	if locker == nil {
		locker = locks.NewLocal()
	}
	return &aggregateService{
		aggregates:  deps.Aggregates,
		locker:      locker,
		metrics:     deps.Metrics,
		runs:        recorder{repo: deps.Runs, log: log},
		lockTimeout: deps.LockTimeout,
		log:         log,
	}
}

// run holds the aggregate lock around fn and records it as one ImportRun.
func (s *aggregateService) run(ctx context.Context, op string, kind types.Kind, label string, options any, fn func(ctx context.Context) (runOutcome, error)) (err error) {
	ctx, span := startSpan(ctx, "AggregateService."+string(kind), attribute.String("label", label))
	defer func() { endSpan(span, err) }()

	release, err := acquire(ctx, s.locker, s.metrics, s.lockTimeout, op, lockKeyAggregates)
	if err != nil {
		return err
	}
	defer release()

	started := time.Now()
	run := s.runs.start(ctx, kind, "", label, options)
	out, err := fn(ctx)
	s.runs.finish(ctx, run, started, out, err)
	if err != nil {
		s.log.Warn("aggregate pass failed", "kind", kind, "label", label, "code", domain.CodeOf(err), "error", err)
		return err
	}
	s.log.Info("aggregate pass done", "kind", kind, "label", label, "count", out.Count, "elapsed_ms", time.Since(started).Milliseconds())
	return nil
}

func (s *aggregateService) BuildByMapping(ctx context.Context, opts domain.MappingBuildOptions) (domain.AggregateBuildResult, error) {
	var res domain.AggregateBuildResult
	err := s.run(ctx, "aggregates.mapping", types.KindAggregatesMapping, opts.ResultLabel, opts, func(ctx context.Context) (runOutcome, error) {
		var err error
		res, err = s.aggregates.BuildAggregatesByMapping(ctx, opts)
		return runOutcome{Count: res.Aggregates, CreatedConcepts: res.Aggregates}, err
	})
	return res, err
}

func (s *aggregateService) BuildByName(ctx context.Context, label string) (domain.AggregateBuildResult, error) {
	var res domain.AggregateBuildResult
	err := s.run(ctx, "aggregates.names", types.KindAggregatesNames, label, nil, func(ctx context.Context) (runOutcome, error) {
		var err error
		res, err = s.aggregates.BuildAggregatesByName(ctx, label)
		return runOutcome{Count: res.Aggregates, CreatedConcepts: res.Aggregates}, err
	})
	return res, err
}

func (s *aggregateService) Delete(ctx context.Context, label string) (int, error) {
	var deleted int
	err := s.run(ctx, "aggregates.delete", types.KindAggregatesDelete, label, nil, func(ctx context.Context) (runOutcome, error) {
		var err error
		deleted, err = s.aggregates.DeleteAggregates(ctx, label)
		return runOutcome{Count: deleted}, err
	})
	return deleted, err
}

func (s *aggregateService) Assemble(ctx context.Context) (int, error) {
	var assembled int
	err := s.run(ctx, "aggregates.assemble", types.KindAggregatesAssemble, "", nil, func(ctx context.Context) (runOutcome, error) {
		var err error
		assembled, err = s.aggregates.AssembleAggregateProperties(ctx)
		return runOutcome{Count: assembled}, err
	})
	return assembled, err
}
