package concepts

import (
	"errors"
	"testing"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

func (f *fixture) rawConcept(pairs []sourcePair, origID, origSource string) graph.NodeID {
	f.t.Helper()
	var id graph.NodeID
	f.write(func(tx graph.Tx) error {
		props := sourcePairProps(pairs)
		if origID != "" {
			props[domain.PropOriginalID] = origID
			props[domain.PropOriginalSource] = origSource
		}
		var err error
		id, err = tx.CreateNode(f.ctx, []string{domain.LabelConceptEntity, domain.LabelConcept}, props)
		return err
	})
	return id
}

func TestLookupByOriginalCoordinates(t *testing.T) {
	f := newFixture(t)
	c := concept("A", "S", "Alpha")
	c.Coordinates.OriginalID, c.Coordinates.OriginalSource = "O1", "ORIG"
	f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{c}})

	view, err := f.w.Lookup(f.ctx, domain.Coordinates{OriginalID: "O1", OriginalSource: "ORIG"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if view.PrefName != "Alpha" || view.Kind != "concept" || view.ID == "" {
		t.Fatalf("view = %+v", view)
	}
	if len(view.SourceIDs) != 1 || view.SourceIDs[0] != "A" {
		t.Fatalf("source ids = %v", view.SourceIDs)
	}
}

func TestLookupNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.w.Lookup(f.ctx, src("nope", "S"))
	if !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
	if _, err := f.w.Lookup(f.ctx, domain.Coordinates{SourceID: "x"}); !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestLookupAmbiguity(t *testing.T) {
	tests := []struct {
		name  string
		seed  func(f *fixture)
		query domain.Coordinates
	}{
		{
			name: "two concepts declare the id unique",
			seed: func(f *fixture) {
				f.rawConcept([]sourcePair{{ID: "U", Source: "S1", Unique: true}}, "", "")
				f.rawConcept([]sourcePair{{ID: "U", Source: "S2", Unique: true}}, "", "")
			},
			query: domain.Coordinates{SourceID: "U", Source: "S3", UniqueSourceID: true},
		},
		{
			name: "two concepts carry the same id and source",
			seed: func(f *fixture) {
				f.rawConcept([]sourcePair{{ID: "X", Source: "S"}}, "", "")
				f.rawConcept([]sourcePair{{ID: "X", Source: "S"}}, "", "")
			},
			query: src("X", "S"),
		},
		{
			name: "original id contradicts the source match",
			seed: func(f *fixture) {
				f.rawConcept([]sourcePair{{ID: "X", Source: "S"}}, "O1", "ORIG")
			},
			query: domain.Coordinates{SourceID: "X", Source: "S", OriginalID: "O2", OriginalSource: "ORIG"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.seed(f)
			_, err := f.w.Lookup(f.ctx, tt.query)
			if !domain.IsCode(err, domain.CodeAmbiguous) {
				t.Fatalf("want ambiguous, got %v", err)
			}
			var e *domain.Error
			if !errors.As(err, &e) || len(e.Coordinates) == 0 {
				t.Fatalf("ambiguous error carries no coordinates: %v", err)
			}
		})
	}
}

func TestLookupPrefersUniqueMatch(t *testing.T) {
	f := newFixture(t)
	unique := f.rawConcept([]sourcePair{{ID: "U", Source: "S1", Unique: true}}, "", "")
	f.rawConcept([]sourcePair{{ID: "U", Source: "S2"}}, "", "")

	var got graph.NodeID
	_ = f.store.View(f.ctx, func(tx graph.Tx) error {
		var err error
		got, err = lookup(f.ctx, tx, domain.Coordinates{SourceID: "U", Source: "S2", UniqueSourceID: true})
		return err
	})
	if got != unique {
		t.Fatalf("got %s want %s", got, unique)
	}
}

func TestAmbiguousInsertIsFatal(t *testing.T) {
	f := newFixture(t)
	f.rawConcept([]sourcePair{{ID: "X", Source: "S"}}, "", "")
	f.rawConcept([]sourcePair{{ID: "X", Source: "S"}}, "", "")
	nodes, edges := f.store.Stats()

	_, err := f.w.InsertConcepts(f.ctx, domain.ImportConcepts{
		Facet:    facet("F"),
		Concepts: []domain.ImportConcept{concept("X", "S", "Ex")},
	})
	if !domain.IsCode(err, domain.CodeAmbiguous) {
		t.Fatalf("want ambiguous, got %v", err)
	}
	if n, e := f.store.Stats(); n != nodes || e != edges {
		t.Fatalf("failed batch changed the graph: nodes %d->%d edges %d->%d", nodes, n, edges, e)
	}
}
