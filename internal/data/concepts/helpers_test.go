package concepts

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/conceptdb/internal/data/graph"
	"github.com/yungbote/conceptdb/internal/data/graph/memgraph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memgraph.Store
	w     *Writer
	aggs  *Aggregates
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memgraph.New()
	deps := BaseDeps{Store: store, BatchSize: 2}
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		store: store,
		w:     NewWriter(deps),
		aggs:  NewAggregates(deps),
	}
}

func src(id, source string) domain.Coordinates {
	return domain.Coordinates{SourceID: id, Source: source}
}

func concept(id, source, name string, parents ...domain.Coordinates) domain.ImportConcept {
	return domain.ImportConcept{Coordinates: src(id, source), PrefName: name, ParentCoordinates: parents}
}

func facet(name string) *domain.ImportFacet {
	return &domain.ImportFacet{Name: name}
}

func (f *fixture) insert(in domain.ImportConcepts) domain.InsertionResult {
	f.t.Helper()
	res, err := f.w.InsertConcepts(f.ctx, in)
	if err != nil {
		f.t.Fatalf("InsertConcepts: %v", err)
	}
	return res
}

func (f *fixture) node(c domain.Coordinates) *graph.Node {
	f.t.Helper()
	var n *graph.Node
	err := f.store.View(f.ctx, func(tx graph.Tx) error {
		id, err := lookup(f.ctx, tx, c)
		if err != nil || id == "" {
			return err
		}
		n, err = tx.Node(f.ctx, id)
		return err
	})
	if err != nil {
		f.t.Fatalf("lookup %s: %v", c, err)
	}
	return n
}

func (f *fixture) mustNode(c domain.Coordinates) *graph.Node {
	f.t.Helper()
	n := f.node(c)
	if n == nil {
		f.t.Fatalf("no node for %s", c)
	}
	return n
}

func (f *fixture) facetNode(name string) *graph.Node {
	f.t.Helper()
	var n *graph.Node
	_ = f.store.View(f.ctx, func(tx graph.Tx) error {
		nodes, err := tx.FindNodes(f.ctx, domain.LabelFacet, domain.PropFacetName, name)
		if len(nodes) > 0 {
			n = nodes[0]
		}
		return err
	})
	if n == nil {
		f.t.Fatalf("facet %q missing", name)
	}
	return n
}

// edgeCount counts from-[typ]->to edges.
func (f *fixture) edgeCount(from, to graph.NodeID, typ graph.RelType) int {
	f.t.Helper()
	count := 0
	_ = f.store.View(f.ctx, func(tx graph.Tx) error {
		edges, err := tx.Edges(f.ctx, from, graph.Outgoing, typ)
		for _, e := range edges {
			if e.To == to {
				count++
			}
		}
		return err
	})
	return count
}

func (f *fixture) labelled(label string) []*graph.Node {
	f.t.Helper()
	var out []*graph.Node
	_ = f.store.View(f.ctx, func(tx graph.Tx) error {
		ids, err := tx.NodeIDsByLabel(f.ctx, label)
		if err != nil {
			return err
		}
		for _, id := range ids {
			n, err := tx.Node(f.ctx, id)
			if err != nil {
				return err
			}
			out = append(out, n)
		}
		return nil
	})
	return out
}

func (f *fixture) write(fn func(tx graph.Tx) error) {
	f.t.Helper()
	if err := f.store.InTx(f.ctx, fn); err != nil {
		f.t.Fatalf("InTx: %v", err)
	}
}

func (f *fixture) mapping(id1, id2, typ string) {
	f.t.Helper()
	if _, err := f.w.InsertMappings(f.ctx, []domain.IDMapping{{ID1: id1, ID2: id2, MappingType: typ}}); err != nil {
		f.t.Fatalf("InsertMappings: %v", err)
	}
}

type spyOperation struct {
	Name     string
	Status   string
	Duration time.Duration
}

type spyHooks struct {
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

func (h *spyHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status, Duration: dur})
}

func (h *spyHooks) IncConflict(name string) { h.Conflicts = append(h.Conflicts, name) }

func (h *spyHooks) IncRetry(name string) { h.Retries = append(h.Retries, name) }

type spyTxRunner struct{}

func (spyTxRunner) InTx(_ context.Context, fn func(tx graph.Tx) error) error {
	if fn == nil {
		return nil
	}
	return fn(nil)
}
