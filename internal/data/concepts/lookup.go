package concepts

import (
	"context"
	"fmt"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

// lookup resolves coordinates to an existing concept entity. It returns ""
// when nothing matches or the coordinates are not resolvable.
func lookup(ctx context.Context, tx graph.Tx, c domain.Coordinates) (graph.NodeID, error) {
	if !c.Resolvable() {
		return "", nil
	}
	if c.HasOriginalCoordinates() {
		nodes, err := tx.FindNodes(ctx, domain.LabelConceptEntity, domain.PropOriginalID, c.OriginalID)
		if err != nil {
			return "", err
		}
		for _, n := range nodes {
			if n.Props.String(domain.PropOriginalSource) == c.OriginalSource {
				return n.ID, nil
			}
		}
	}
	if !c.HasSourceCoordinates() {
		return "", nil
	}
	found, err := lookupBySourceID(ctx, tx, c.SourceID, c.Source, c.UniqueSourceID)
	if err != nil || found == nil {
		return "", err
	}
	if c.HasOriginalCoordinates() {
		stored := domain.Coordinates{
			OriginalID:     found.Props.String(domain.PropOriginalID),
			OriginalSource: found.Props.String(domain.PropOriginalSource),
		}
		if c.ContradictsOriginal(stored) {
			stored.SourceID, stored.Source, stored.UniqueSourceID = c.SourceID, c.Source, c.UniqueSourceID
			return "", domain.AmbiguousError("original id contradicts the concept found by source id", c, stored).WithIDs(string(found.ID))
		}
	}
	return found.ID, nil
}

// lookupBySourceID scans every concept entity carrying id among its source ids.
func lookupBySourceID(ctx context.Context, tx graph.Tx, id, source string, unique bool) (*graph.Node, error) {
	candidates, err := tx.FindNodesContaining(ctx, domain.LabelConceptEntity, domain.PropSourceIDs, id)
	if err != nil {
		return nil, err
	}
	var uniqueMatch, sourceMatch *graph.Node
	for _, n := range candidates {
		isUnique, hasSource := false, false
		for _, sp := range sourcePairs(n.Props) {
			if sp.ID != id {
				continue
			}
			if unique && sp.Unique {
				isUnique = true
			}
			if sp.Source == source {
				hasSource = true
			}
		}
		switch {
		case isUnique:
			if uniqueMatch != nil {
				return nil, domain.AmbiguousError(
					fmt.Sprintf("ambiguous unique id %q: more than one concept declares it unique", id),
					domain.Coordinates{SourceID: id, Source: source, UniqueSourceID: true},
				).WithIDs(string(uniqueMatch.ID), string(n.ID))
			}
			uniqueMatch = n
		case hasSource:
			if sourceMatch != nil {
				return nil, domain.AmbiguousError(
					fmt.Sprintf("ambiguous concept for id %q and source %q", id, source),
					domain.Coordinates{SourceID: id, Source: source, UniqueSourceID: unique},
				).WithIDs(string(sourceMatch.ID), string(n.ID))
			}
			sourceMatch = n
		}
	}
	if uniqueMatch != nil {
		return uniqueMatch, nil
	}
	return sourceMatch, nil
}

// Lookup resolves coordinates inside a read transaction.
func (w *Writer) Lookup(ctx context.Context, coords domain.Coordinates) (*domain.ConceptView, error) {
	const op = "concepts.lookup"
	coords = coords.Normalize()
	if err := coords.Validate(); err != nil {
		return nil, domain.Wrap(domain.CodeValidation, op, err)
	}
	var view *domain.ConceptView
	err := executeRead(ctx, w.deps, op, func(tx graph.Tx) error {
		id, err := lookup(ctx, tx, coords)
		if err != nil || id == "" {
			return err
		}
		n, err := tx.Node(ctx, id)
		if err != nil || n == nil {
			return err
		}
		view = conceptView(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if view == nil {
		e := domain.NotFoundError("no concept for coordinates")
		e.Op = op
		e.Coordinates = []domain.Coordinates{coords}
		return nil, e
	}
	return view, nil
}

func conceptView(n *graph.Node) *domain.ConceptView {
	v := &domain.ConceptView{
		NodeID:         string(n.ID),
		ID:             n.Props.String(domain.PropID),
		Kind:           domain.KindOf(n.Labels).String(),
		Labels:         append([]string(nil), n.Labels...),
		PrefName:       n.Props.String(domain.PropPrefName),
		Synonyms:       n.Props.Strings(domain.PropSynonyms),
		SourceIDs:      n.Props.Strings(domain.PropSourceIDs),
		Sources:        n.Props.Strings(domain.PropSources),
		OriginalID:     n.Props.String(domain.PropOriginalID),
		OriginalSource: n.Props.String(domain.PropOriginalSource),
		Facets:         n.Props.Strings(domain.PropFacets),
		Properties:     map[string]any{},
	}
	for k, val := range n.Props {
		v.Properties[k] = val
	}
	return v
}
