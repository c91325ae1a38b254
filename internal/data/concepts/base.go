package concepts

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

const defaultBatchSize = 5000

type BaseDeps struct {
	Store     graph.Store
	Log       *logger.Logger
	Runner    TxRunner
	Hooks     Hooks
	Facets    Facets
	BatchSize int
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewStoreTxRunner(d.Store)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Facets == nil {
		d.Facets = NewGraphFacets()
	}
	if d.BatchSize <= 0 {
		d.BatchSize = defaultBatchSize
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(tx graph.Tx) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "concepts.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = errorStatus(mapped)
		if domain.IsCode(mapped, domain.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domain.IsCode(mapped, domain.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func executeRead(ctx context.Context, deps BaseDeps, op string, fn func(tx graph.Tx) error) error {
	deps = deps.withDefaults()
	if deps.Store == nil {
		return domain.NewError(domain.CodeInternal, op, "no graph store configured", nil)
	}
	return MapError(op, deps.Store.View(ctx, fn))
}

func errorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domain.CodeOf(err)))
	if code == "" {
		return "failure"
	}
	return code
}

// chunks splits ids into slices of at most size.
func chunks(ids []graph.NodeID, size int) [][]graph.NodeID {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]graph.NodeID
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
