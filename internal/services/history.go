package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	importrepo "github.com/yungbote/conceptdb/internal/data/repos/imports"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	types "github.com/yungbote/conceptdb/internal/domain/imports"
	"github.com/yungbote/conceptdb/internal/pkg/ctxutil"
	"github.com/yungbote/conceptdb/internal/pkg/dbctx"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

// ImportHistory exposes recorded engine runs.
type ImportHistory interface {
	ListRecent(ctx context.Context, kind string, limit int) ([]*types.ImportRun, error)
}

type importHistory struct {
	repo importrepo.ImportRunRepo
	log  *logger.Logger
}

// NewImportHistory returns a history reader. A nil repo yields empty listings.
func NewImportHistory(repo importrepo.ImportRunRepo, baseLog *logger.Logger) ImportHistory {
	return &importHistory{repo: repo, log: baseLog.With("service", "ImportHistory")}
}

func (h *importHistory) ListRecent(ctx context.Context, kind string, limit int) ([]*types.ImportRun, error) {
	if h.repo == nil {
		return []*types.ImportRun{}, nil
	}
	kind = strings.TrimSpace(kind)
	if kind != "" && !knownKind(types.Kind(kind)) {
		return nil, domain.NewError(domain.CodeValidation, "imports.list", "unknown import kind "+kind, nil)
	}
	runs, err := h.repo.ListRecent(dbctx.New(ctx), kind, limit)
	if err != nil {
		return nil, domain.Wrap(domain.CodeInternal, "imports.list", err)
	}
	return runs, nil
}

func knownKind(k types.Kind) bool {
	switch k {
	case types.KindConcepts, types.KindMappings, types.KindVariants,
		types.KindAggregatesMapping, types.KindAggregatesNames,
		types.KindAggregatesDelete, types.KindAggregatesAssemble:
		return true
	default:
		return false
	}
}

// runOutcome carries the counters written when a run finishes.
type runOutcome struct {
	FacetID              string
	Count                int
	CreatedConcepts      int
	CreatedRelationships int
}

// recorder writes ImportRun rows. Failures to record are logged and never
// fail the engine operation itself.
type recorder struct {
	repo importrepo.ImportRunRepo
	log  *logger.Logger
}

func (r recorder) start(ctx context.Context, kind types.Kind, facetID, label string, options any) *types.ImportRun {
	if r.repo == nil {
		return nil
	}
	run := &types.ImportRun{
		Kind:    string(kind),
		FacetID: facetID,
		Label:   label,
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		run.RequestID = td.RequestID
	}
	if cd := ctxutil.GetCallerData(ctx); cd != nil {
		run.Caller = cd.Subject
	}
	if options != nil {
		if b, err := json.Marshal(options); err == nil {
			run.Options = datatypes.JSON(b)
		}
	}
	created, err := r.repo.Create(dbctx.New(ctx), run)
	if err != nil {
		r.log.Warn("failed to record import run", "kind", kind, "error", err)
		return nil
	}
	return created
}

func (r recorder) finish(ctx context.Context, run *types.ImportRun, started time.Time, out runOutcome, opErr error) {
	if r.repo == nil || run == nil {
		return
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":                types.StatusSucceeded,
		"count":                 out.Count,
		"created_concepts":      out.CreatedConcepts,
		"created_relationships": out.CreatedRelationships,
		"elapsed_ms":            now.Sub(started).Milliseconds(),
		"finished_at":           now,
	}
	if out.FacetID != "" {
		updates["facet_id"] = out.FacetID
	}
	if opErr != nil {
		updates["status"] = types.StatusFailed
		updates["error_code"] = string(domain.CodeOf(opErr))
		updates["error"] = opErr.Error()
	}
	// The caller's context may already be cancelled; the row should still close.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.repo.UpdateFields(dbctx.New(fctx), run.ID, updates); err != nil {
		if importrepo.IsRetryable(err) {
			if err = r.repo.UpdateFields(dbctx.New(fctx), run.ID, updates); err == nil {
				return
			}
		}
		r.log.Warn("failed to finish import run", "run_id", run.ID, "error", err)
	}
}
