package concepts

import (
	"testing"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

func TestInsertScenarioRootAndBroader(t *testing.T) {
	f := newFixture(t)
	res := f.insert(domain.ImportConcepts{
		Facet: facet("F"),
		Concepts: []domain.ImportConcept{
			concept("A", "S", "Alpha"),
			concept("B", "S", "Beta", src("A", "S")),
		},
	})
	if res.CreatedConcepts != 2 {
		t.Fatalf("created concepts: want=2 got=%d", res.CreatedConcepts)
	}
	if res.FacetID != "fid1" {
		t.Fatalf("facet id: %q", res.FacetID)
	}

	fn := f.facetNode("F")
	a, b := f.mustNode(src("A", "S")), f.mustNode(src("B", "S"))
	if f.edgeCount(fn.ID, a.ID, graph.RelType(domain.EdgeHasRootConcept)) != 1 {
		t.Fatal("F -HAS_ROOT_CONCEPT-> A missing")
	}
	if f.edgeCount(fn.ID, b.ID, graph.RelType(domain.EdgeHasRootConcept)) != 0 {
		t.Fatal("B must not be a root")
	}
	if f.edgeCount(a.ID, b.ID, graph.RelType(domain.EdgeIsBroaderThan)) != 1 {
		t.Fatal("A -IS_BROADER_THAN-> B missing")
	}
	if f.edgeCount(a.ID, b.ID, graph.RelType(domain.FacetBroaderThan("fid1"))) != 1 {
		t.Fatal("A -IS_BROADER_THAN_fid1-> B missing")
	}
	if res.CreatedRelationships != 3 {
		t.Fatalf("created relationships: want=3 got=%d", res.CreatedRelationships)
	}
	if a.Props.String(domain.PropID) == "" || domain.KindOf(a.Labels) != domain.KindConcept {
		t.Fatalf("A not promoted: %+v", a)
	}
	if got := a.Props.Strings(domain.PropChildrenInFacets); len(got) != 1 || got[0] != "fid1" {
		t.Fatalf("childrenInFacets = %v", got)
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	f := newFixture(t)
	batch := func() domain.ImportConcepts {
		return domain.ImportConcepts{
			Facet: facet("F"),
			Concepts: []domain.ImportConcept{
				concept("A", "S", "Alpha"),
				concept("B", "S", "Beta", src("A", "S")),
				concept("C", "S", "Gamma", src("A", "S"), src("B", "S")),
			},
		}
	}
	f.insert(batch())
	nodes, edges := f.store.Stats()

	res := f.insert(batch())
	if res.CreatedConcepts != 0 || res.CreatedRelationships != 0 {
		t.Fatalf("second run created concepts=%d relationships=%d", res.CreatedConcepts, res.CreatedRelationships)
	}
	if n, e := f.store.Stats(); n != nodes || e != edges {
		t.Fatalf("graph changed: nodes %d->%d edges %d->%d", nodes, n, edges, e)
	}
}

func TestHollowPromotion(t *testing.T) {
	f := newFixture(t)
	f.insert(domain.ImportConcepts{
		Facet:    facet("F"),
		Concepts: []domain.ImportConcept{concept("C1", "S", "Child", src("C2", "S"))},
	})
	fn := f.facetNode("F")
	c1, c2 := f.mustNode(src("C1", "S")), f.mustNode(src("C2", "S"))
	if domain.KindOf(c2.Labels) != domain.KindHollow || c2.Props.String(domain.PropPrefName) != "" {
		t.Fatalf("C2 should be hollow without a name: %+v", c2)
	}
	if f.edgeCount(fn.ID, c2.ID, graph.RelType(domain.EdgeHasRootConcept)) != 1 {
		t.Fatal("hollow parent should hang off the facet root")
	}

	res := f.insert(domain.ImportConcepts{
		Facet: facet("F"),
		Concepts: []domain.ImportConcept{
			concept("C0", "S", "Root"),
			concept("C2", "S", "Parent", src("C0", "S")),
		},
	})
	if res.CreatedConcepts != 2 {
		t.Fatalf("created concepts: want=2 got=%d", res.CreatedConcepts)
	}
	c2 = f.mustNode(src("C2", "S"))
	if domain.KindOf(c2.Labels) != domain.KindConcept || c2.Props.String(domain.PropPrefName) != "Parent" {
		t.Fatalf("C2 not promoted: %+v", c2)
	}
	if c2.HasLabel(domain.LabelHollow) || c2.Props.String(domain.PropID) == "" {
		t.Fatalf("C2 labels/id: %+v", c2)
	}
	if f.edgeCount(fn.ID, c2.ID, graph.RelType(domain.EdgeHasRootConcept)) != 0 {
		t.Fatal("placeholder root edge survived promotion")
	}
	if f.edgeCount(c2.ID, c1.ID, graph.RelType(domain.EdgeIsBroaderThan)) != 1 {
		t.Fatal("C2 -> C1 broader edge lost")
	}
}

func TestMissingPreferredNameRollsBack(t *testing.T) {
	f := newFixture(t)
	_, err := f.w.InsertConcepts(f.ctx, domain.ImportConcepts{
		Facet: facet("F"),
		Concepts: []domain.ImportConcept{
			concept("A", "S", "Alpha"),
			concept("B", "S", ""),
		},
	})
	if !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	if n, e := f.store.Stats(); n != 0 || e != 0 {
		t.Fatalf("failed batch left nodes=%d edges=%d", n, e)
	}
}

func TestInvalidCoordinatesRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.w.InsertConcepts(f.ctx, domain.ImportConcepts{
		Concepts: []domain.ImportConcept{{
			Coordinates: domain.Coordinates{SourceID: "A", Source: "S", OriginalID: "O"},
			PrefName:    "Alpha",
		}},
	})
	if !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestExistingConceptKeepsNameAndGainsSynonym(t *testing.T) {
	f := newFixture(t)
	f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{concept("A", "S", "Alpha")}})
	c := concept("A", "S", "Alpha prime")
	c.Synonyms = []string{"ALPHA PRIME", "a"}
	c.Descriptions = []string{"first letter"}
	f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{c}})

	n := f.mustNode(src("A", "S"))
	if n.Props.String(domain.PropPrefName) != "Alpha" {
		t.Fatalf("prefName overwritten: %q", n.Props.String(domain.PropPrefName))
	}
	syn := n.Props.Strings(domain.PropSynonyms)
	if len(syn) != 2 || syn[0] != "Alpha prime" || syn[1] != "a" {
		t.Fatalf("synonyms = %v", syn)
	}
	if d := n.Props.Strings(domain.PropDescriptions); len(d) != 1 {
		t.Fatalf("descriptions = %v", d)
	}
}

func TestNonUniqueIDsFromDifferentSourcesStayApart(t *testing.T) {
	f := newFixture(t)
	res := f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{
		concept("X", "S1", "One"),
		concept("X", "S2", "Two"),
	}})
	if res.CreatedConcepts != 2 {
		t.Fatalf("created: %d", res.CreatedConcepts)
	}
	if f.mustNode(src("X", "S1")).ID == f.mustNode(src("X", "S2")).ID {
		t.Fatal("non-unique ids from different sources were merged")
	}
}

func TestUniqueIDsResolveAcrossSources(t *testing.T) {
	f := newFixture(t)
	a := concept("IRI1", "S1", "One")
	a.Coordinates.UniqueSourceID = true
	b := concept("IRI1", "S2", "Uno")
	b.Coordinates.UniqueSourceID = true
	res := f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{a, b}})
	if res.CreatedConcepts != 1 {
		t.Fatalf("created: %d", res.CreatedConcepts)
	}
	n := f.mustNode(a.Coordinates)
	if got := n.Props.Strings(domain.PropSourceIDs); len(got) != 1 {
		t.Fatalf("unique id stored twice: %v", got)
	}
	if !containsFold(n.Props.Strings(domain.PropSynonyms), "Uno") {
		t.Fatalf("synonyms = %v", n.Props.Strings(domain.PropSynonyms))
	}
}

func TestUniqueClashMergeLeavesNoDuplicates(t *testing.T) {
	f := newFixture(t)
	f.insert(domain.ImportConcepts{
		Facet: facet("F"),
		Concepts: []domain.ImportConcept{
			concept("P", "S1", "Parent"),
			concept("X", "S1", "Alpha", src("P", "S1")),
			concept("X", "S2", "Alpha two", src("P", "S1")),
			concept("K", "S2", "Kid", src("X", "S2")),
		},
	})
	p := f.mustNode(src("P", "S1"))

	clash := concept("X", "S1", "Alpha", src("P", "S1"))
	clash.Coordinates.UniqueSourceID = true
	f.insert(domain.ImportConcepts{Facet: facet("F"), Concepts: []domain.ImportConcept{clash}})

	var holders []*graph.Node
	for _, n := range f.labelled(domain.LabelConceptEntity) {
		for _, id := range n.Props.Strings(domain.PropSourceIDs) {
			if id == "X" {
				holders = append(holders, n)
				break
			}
		}
	}
	if len(holders) != 1 {
		t.Fatalf("unique id held by %d concepts", len(holders))
	}
	survivor := holders[0]
	for i, u := range survivor.Props.Bools(domain.PropUniqueSourceIDs) {
		if survivor.Props.Strings(domain.PropSourceIDs)[i] == "X" && !u {
			t.Fatal("merged pair not marked unique")
		}
	}
	if f.edgeCount(p.ID, survivor.ID, graph.RelType(domain.EdgeIsBroaderThan)) != 1 {
		t.Fatal("duplicate or missing parent edge after merge")
	}
	if f.edgeCount(p.ID, survivor.ID, graph.RelType(domain.FacetBroaderThan("fid1"))) != 1 {
		t.Fatal("duplicate or missing facet parent edge after merge")
	}
	k := f.mustNode(src("K", "S2"))
	if f.edgeCount(survivor.ID, k.ID, graph.RelType(domain.EdgeIsBroaderThan)) != 1 {
		t.Fatal("child edge of obsolete node not moved")
	}
	if !containsFold(survivor.Props.Strings(domain.PropSynonyms), "Alpha two") {
		t.Fatalf("obsolete name not kept as synonym: %v", survivor.Props.Strings(domain.PropSynonyms))
	}
	if got := f.mustNode(src("X", "S2")).ID; got != survivor.ID {
		t.Fatalf("old coordinates resolve to %s, want survivor %s", got, survivor.ID)
	}
}

func TestUniqueMatchFoldsStrandedSourceHolder(t *testing.T) {
	f := newFixture(t)
	f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{concept("X", "S1", "Xylose")}})
	s1 := f.mustNode(src("X", "S1"))

	second := concept("X", "S2", "Xylose sugar")
	second.Coordinates.UniqueSourceID = true
	f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{second}})
	s2 := f.mustNode(second.Coordinates)
	if s2.ID == s1.ID {
		t.Fatal("unique id under another source resolved to the non-unique concept")
	}

	third := concept("X", "S1", "D-xylose")
	third.Coordinates.UniqueSourceID = true
	f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{third}})

	var holders []*graph.Node
	for _, n := range f.labelled(domain.LabelConceptEntity) {
		for _, id := range n.Props.Strings(domain.PropSourceIDs) {
			if id == "X" {
				holders = append(holders, n)
				break
			}
		}
	}
	if len(holders) != 1 {
		t.Fatalf("source id X held by %d concepts", len(holders))
	}
	survivor := holders[0]
	if survivor.ID != s2.ID {
		t.Fatalf("survivor = %s, want the unique holder %s", survivor.ID, s2.ID)
	}
	if got := f.mustNode(src("X", "S1")).ID; got != survivor.ID {
		t.Fatalf("(X,S1) resolves to %s, want %s", got, survivor.ID)
	}
	syn := survivor.Props.Strings(domain.PropSynonyms)
	if !containsFold(syn, "Xylose") || !containsFold(syn, "D-xylose") {
		t.Fatalf("synonyms = %v", syn)
	}
}

func TestUniqueReimportWithoutStrandedHolderKeepsSources(t *testing.T) {
	f := newFixture(t)
	f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{concept("X", "S1", "Xylose")}})
	unique := concept("X", "S2", "Xylose sugar")
	unique.Coordinates.UniqueSourceID = true
	f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{unique}})
	f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{unique}})

	if f.mustNode(src("X", "S1")).ID == f.mustNode(unique.Coordinates).ID {
		t.Fatal("re-importing a unique id merged a concept of another source")
	}
}

func TestMergeOnlyDropsUnknownConcepts(t *testing.T) {
	f := newFixture(t)
	f.insert(domain.ImportConcepts{Facet: facet("F"), Concepts: []domain.ImportConcept{concept("A", "S", "Alpha")}})
	nodes, edges := f.store.Stats()

	known := concept("A", "S", "Alpha", src("Z", "S"))
	known.Synonyms = []string{"First"}
	res := f.insert(domain.ImportConcepts{
		Facet:         facet("F"),
		Concepts:      []domain.ImportConcept{known, concept("N", "S", "New")},
		ImportOptions: &domain.ImportOptions{Merge: true},
	})
	if res.OmittedConcepts != 1 || res.CreatedConcepts != 0 || res.CreatedRelationships != 0 {
		t.Fatalf("result = %+v", res)
	}
	if n, e := f.store.Stats(); n != nodes || e != edges {
		t.Fatalf("merge created structure: nodes %d->%d edges %d->%d", nodes, n, edges, e)
	}
	if got := f.mustNode(src("A", "S")).Props.Strings(domain.PropSynonyms); len(got) != 1 || got[0] != "First" {
		t.Fatalf("synonyms = %v", got)
	}
}

func TestCutParentsAttachToFacetRoot(t *testing.T) {
	f := newFixture(t)
	f.insert(domain.ImportConcepts{
		Facet:         facet("F"),
		Concepts:      []domain.ImportConcept{concept("B", "S", "Beta", src("TOP", "S"))},
		ImportOptions: &domain.ImportOptions{CutParents: []string{"TOP"}},
	})
	if f.node(src("TOP", "S")) != nil {
		t.Fatal("cut parent was created")
	}
	if f.edgeCount(f.facetNode("F").ID, f.mustNode(src("B", "S")).ID, graph.RelType(domain.EdgeHasRootConcept)) != 1 {
		t.Fatal("concept with cut parent is not a root")
	}
}

func TestDoNotCreateHollowParents(t *testing.T) {
	f := newFixture(t)
	f.insert(domain.ImportConcepts{
		Facet:         facet("F"),
		Concepts:      []domain.ImportConcept{concept("B", "S", "Beta", src("MISSING", "S"))},
		ImportOptions: &domain.ImportOptions{DoNotCreateHollowParents: true},
	})
	if f.node(src("MISSING", "S")) != nil {
		t.Fatal("hollow parent created")
	}
	if f.edgeCount(f.facetNode("F").ID, f.mustNode(src("B", "S")).ID, graph.RelType(domain.EdgeHasRootConcept)) != 1 {
		t.Fatal("orphan not attached to facet root")
	}
}

func TestNoFacetCommandRedirectsRoots(t *testing.T) {
	f := newFixture(t)
	f.insert(domain.ImportConcepts{
		Facet: facet("F"),
		Concepts: []domain.ImportConcept{
			concept("A", "S", "Alpha"),
			concept("B", "S", "Beta", src("A", "S")),
		},
		ImportOptions: &domain.ImportOptions{NoFacetCmd: &domain.NoFacetCommand{ParentCriteria: []string{"NO_PARENT"}}},
	})
	noFacet := f.labelled(domain.LabelNoFacet)
	if len(noFacet) != 1 {
		t.Fatalf("no-facet nodes: %d", len(noFacet))
	}
	a := f.mustNode(src("A", "S"))
	if f.edgeCount(noFacet[0].ID, a.ID, graph.RelType(domain.EdgeHasRootConcept)) != 1 {
		t.Fatal("root not attached to no-facet node")
	}
	if f.edgeCount(f.facetNode("F").ID, a.ID, graph.RelType(domain.EdgeHasRootConcept)) != 0 {
		t.Fatal("root also attached to facet")
	}
	if f.edgeCount(f.facetNode("F").ID, noFacet[0].ID, graph.RelType(domain.EdgeHasNoFacet)) != 1 {
		t.Fatal("no-facet node not linked to facet")
	}
}

func TestAggregateParentMustBeConcept(t *testing.T) {
	f := newFixture(t)
	f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{
		concept("E1", "S", "One"),
		concept("E2", "S", "Two"),
		{
			Coordinates:        src("AGG", "S"),
			Aggregate:          true,
			ElementCoordinates: []domain.Coordinates{src("E1", "S"), src("E2", "S")},
		},
	}})
	_, err := f.w.InsertConcepts(f.ctx, domain.ImportConcepts{Concepts: []domain.ImportConcept{
		concept("C", "S", "Child", src("AGG", "S")),
	}})
	if !domain.IsCode(err, domain.CodeInvariantViolation) {
		t.Fatalf("want invariant violation, got %v", err)
	}
	if f.node(src("C", "S")) != nil {
		t.Fatal("failed batch left the child behind")
	}
}

func TestImportedAggregateAssemblesElements(t *testing.T) {
	f := newFixture(t)
	res := f.insert(domain.ImportConcepts{
		Concepts: []domain.ImportConcept{
			{Coordinates: src("E1", "S"), PrefName: "Gene", Synonyms: []string{"g1"}},
			{Coordinates: src("E2", "S"), PrefName: "gene", Synonyms: []string{"G1", "g2"}},
			{
				Coordinates:                 src("AGG", "S"),
				Aggregate:                   true,
				AggregateIncludeInHierarchy: true,
				ElementCoordinates:          []domain.Coordinates{src("E1", "S"), src("E2", "S"), src("E3", "S")},
				CopyProperties:              []string{domain.PropPrefName, domain.PropSynonyms},
			},
		},
	})
	if res.CreatedConcepts != 3 {
		t.Fatalf("created: %d", res.CreatedConcepts)
	}
	agg := f.mustNode(src("AGG", "S"))
	if !agg.HasLabel(domain.LabelAggregate) || !agg.HasLabel(domain.LabelConcept) {
		t.Fatalf("labels = %v", agg.Labels)
	}
	if id := agg.Props.String(domain.PropID); id != "atid1" {
		t.Fatalf("aggregate id = %q", id)
	}
	if f.node(src("E3", "S")) != nil {
		t.Fatal("missing element created although hollow elements are disabled")
	}
	if agg.Props.String(domain.PropPrefName) != "Gene" {
		t.Fatalf("prefName = %q", agg.Props.String(domain.PropPrefName))
	}
	syn := agg.Props.Strings(domain.PropSynonyms)
	want := []string{"g1", "g2", "gene"}
	if len(syn) != len(want) {
		t.Fatalf("synonyms = %v", syn)
	}
	for i := range want {
		if syn[i] != want[i] {
			t.Fatalf("synonyms = %v want %v", syn, want)
		}
	}
}

func TestExplicitRelationshipsWithHollowTargets(t *testing.T) {
	f := newFixture(t)
	c := concept("A", "S", "Alpha")
	c.Relationships = []domain.ImportRelationship{
		{Type: "REGULATES", TargetCoordinates: src("T", "S"), Properties: map[string]any{"weight": float64(2)}},
		{Type: "BINDS", TargetCoordinates: src("U", "S")},
	}
	f.insert(domain.ImportConcepts{
		Concepts:      []domain.ImportConcept{c},
		ImportOptions: &domain.ImportOptions{CreateHollowRelationshipTargets: true},
	})
	a, target := f.mustNode(src("A", "S")), f.mustNode(src("T", "S"))
	if domain.KindOf(target.Labels) != domain.KindHollow {
		t.Fatalf("target labels = %v", target.Labels)
	}
	if f.edgeCount(a.ID, target.ID, "REGULATES") != 1 {
		t.Fatal("explicit relationship missing")
	}

	// a second run merges the property bag into the existing edge
	c.Relationships = c.Relationships[:1]
	c.Relationships[0].Properties = map[string]any{"weight": float64(3)}
	res := f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{c}})
	if res.CreatedRelationships != 0 || f.edgeCount(a.ID, target.ID, "REGULATES") != 1 {
		t.Fatalf("relationship duplicated: %+v", res)
	}
	_ = f.store.View(f.ctx, func(tx graph.Tx) error {
		edges, _ := tx.Edges(f.ctx, a.ID, graph.Outgoing, "REGULATES")
		if w, _ := edges[0].Props.Int("weight"); w != 3 {
			t.Fatalf("weight = %d", w)
		}
		return nil
	})
}

func TestAdditionalPropertiesAndLabels(t *testing.T) {
	f := newFixture(t)
	c := concept("A", "S", "Alpha")
	c.GeneralLabels = []string{"GENE"}
	c.AdditionalProperties = map[string]any{"taxon": "9606", "score": 0.5}
	f.insert(domain.ImportConcepts{Concepts: []domain.ImportConcept{c}})
	n := f.mustNode(src("A", "S"))
	if !n.HasLabel("GENE") || n.Props.String("taxon") != "9606" {
		t.Fatalf("node = %+v", n)
	}

	bad := concept("B", "S", "Beta")
	bad.AdditionalProperties = map[string]any{domain.PropSourceIDs: "x"}
	if _, err := f.w.InsertConcepts(f.ctx, domain.ImportConcepts{Concepts: []domain.ImportConcept{bad}}); !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("reserved property accepted: %v", err)
	}
}

func TestUnknownFacetIDIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.w.InsertConcepts(f.ctx, domain.ImportConcepts{
		Facet:    &domain.ImportFacet{ID: "fid99"},
		Concepts: []domain.ImportConcept{concept("A", "S", "Alpha")},
	})
	if !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestCreateIfAbsentSkipsScanForNewNodes(t *testing.T) {
	f := newFixture(t)
	f.write(func(tx graph.Tx) error {
		ins := newInserter(f.ctx, tx, f.w.deps, nil)
		a, _ := tx.CreateNode(f.ctx, []string{"X"}, nil)
		b, _ := tx.CreateNode(f.ctx, []string{"X"}, nil)
		for i := 0; i < 2; i++ {
			created, err := ins.createIfAbsent(a, b, "R", nil)
			if err != nil {
				return err
			}
			if created != (i == 0) {
				t.Fatalf("attempt %d created=%v", i, created)
			}
		}
		ins2 := newInserter(f.ctx, tx, f.w.deps, nil)
		ins2.report.MarkExisting(a)
		ins2.report.MarkExisting(b)
		created, err := ins2.createIfAbsent(a, b, "R", graph.Properties{"k": "v"})
		if err != nil {
			return err
		}
		if created {
			t.Fatal("existing edge recreated across batches")
		}
		return nil
	})
	n, e := f.store.Stats()
	if n != 2 || e != 1 {
		t.Fatalf("nodes=%d edges=%d", n, e)
	}
}
