package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	importrepo "github.com/yungbote/conceptdb/internal/data/repos/imports"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	types "github.com/yungbote/conceptdb/internal/domain/imports"
	"github.com/yungbote/conceptdb/internal/observability"
	"github.com/yungbote/conceptdb/internal/platform/locks"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

type ConceptService interface {
	ImportConcepts(ctx context.Context, in domain.ImportConcepts) (domain.InsertionResult, error)
	InsertMappings(ctx context.Context, mappings []domain.IDMapping) (int, error)
	AddVariants(ctx context.Context, variants []domain.ConceptVariants) (int, error)
	Lookup(ctx context.Context, coords domain.Coordinates) (*domain.ConceptView, error)
}

type ConceptServiceDeps struct {
	Writer      domain.ConceptWriter
	Locker      locks.Locker
	Runs        importrepo.ImportRunRepo
	Metrics     *observability.Metrics
	LockTimeout time.Duration
}

type conceptService struct {
	writer      domain.ConceptWriter
	locker      locks.Locker
	metrics     *observability.Metrics
	runs        recorder
	lockTimeout time.Duration
	log         *logger.Logger
}

func NewConceptService(baseLog *logger.Logger, deps ConceptServiceDeps) ConceptService {
	log := baseLog.With("service", "ConceptService")
	locker := deps.Locker
	if locker == nil {
		locker = locks.NewLocal()
	}
	return &conceptService{
		writer:      deps.Writer,
		locker:      locker,
		metrics:     deps.Metrics,
		runs:        recorder{repo: deps.Runs, log: log},
		lockTimeout: deps.LockTimeout,
		log:         log,
	}
}

func (s *conceptService) ImportConcepts(ctx context.Context, in domain.ImportConcepts) (domain.InsertionResult, error) {
	const op = "concepts.import"
	ctx, span := startSpan(ctx, "ConceptService.ImportConcepts", attribute.Int("concepts", len(in.Concepts)))
	var err error
	defer func() { endSpan(span, err) }()

	if len(in.Concepts) == 0 {
		err = domain.NewError(domain.CodeValidation, op, "batch has no concepts", nil)
		return domain.InsertionResult{}, err
	}

	keys := batchLockKeys(in)
	var release func()
	release, err = acquire(ctx, s.locker, s.metrics, s.lockTimeout, op, keys...)
	if err != nil {
		s.log.Warn("import batch could not acquire locks", "keys", keys, "error", err)
		return domain.InsertionResult{}, err
	}
	defer release()

	facetRef := ""
	if in.Facet != nil {
		facetRef = strings.TrimSpace(in.Facet.ID)
	}
	started := time.Now()
	run := s.runs.start(ctx, types.KindConcepts, facetRef, "", in.ImportOptions)

	var res domain.InsertionResult
	res, err = s.writer.InsertConcepts(ctx, in)
	s.runs.finish(ctx, run, started, runOutcome{
		FacetID:              res.FacetID,
		Count:                len(in.Concepts),
		CreatedConcepts:      res.CreatedConcepts,
		CreatedRelationships: res.CreatedRelationships,
	}, err)
	if err != nil {
		s.log.Warn("import batch failed", "concepts", len(in.Concepts), "code", domain.CodeOf(err), "error", err)
		return domain.InsertionResult{}, err
	}

	span.SetAttributes(
		attribute.String("facet_id", res.FacetID),
		attribute.Int("created_concepts", res.CreatedConcepts),
		attribute.Int("created_relationships", res.CreatedRelationships),
	)
	s.metrics.AddCreated(res.FacetID, res.CreatedConcepts, res.CreatedRelationships)
	s.log.Info("import batch done",
		"facet_id", res.FacetID,
		"concepts", len(in.Concepts),
		"created_concepts", res.CreatedConcepts,
		"created_relationships", res.CreatedRelationships,
		"omitted", res.OmittedConcepts,
		"elapsed_ms", res.ElapsedMS,
	)
	return res, nil
}

func (s *conceptService) InsertMappings(ctx context.Context, mappings []domain.IDMapping) (int, error) {
	const op = "concepts.mappings"
	ctx, span := startSpan(ctx, "ConceptService.InsertMappings", attribute.Int("mappings", len(mappings)))
	var err error
	defer func() { endSpan(span, err) }()

	var release func()
	release, err = acquire(ctx, s.locker, s.metrics, s.lockTimeout, op, lockKeyMappings)
	if err != nil {
		return 0, err
	}
	defer release()

	started := time.Now()
	run := s.runs.start(ctx, types.KindMappings, "", "", nil)
	var created int
	created, err = s.writer.InsertMappings(ctx, mappings)
	s.runs.finish(ctx, run, started, runOutcome{Count: len(mappings), CreatedRelationships: created}, err)
	if err != nil {
		return 0, err
	}
	s.metrics.AddCreated("", 0, created)
	s.log.Info("mappings inserted", "requested", len(mappings), "created", created)
	return created, nil
}

func (s *conceptService) AddVariants(ctx context.Context, variants []domain.ConceptVariants) (int, error) {
	ctx, span := startSpan(ctx, "ConceptService.AddVariants", attribute.Int("variants", len(variants)))
	var err error
	defer func() { endSpan(span, err) }()

	started := time.Now()
	run := s.runs.start(ctx, types.KindVariants, "", "", nil)
	var updated int
	updated, err = s.writer.AddVariants(ctx, variants)
	s.runs.finish(ctx, run, started, runOutcome{Count: updated}, err)
	if err != nil {
		return 0, err
	}
	s.log.Info("variants added", "requested", len(variants), "updated", updated)
	return updated, nil
}

func (s *conceptService) Lookup(ctx context.Context, coords domain.Coordinates) (*domain.ConceptView, error) {
	ctx, span := startSpan(ctx, "ConceptService.Lookup")
	view, err := s.writer.Lookup(ctx, coords)
	endSpan(span, err)
	return view, err
}
