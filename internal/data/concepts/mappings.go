package concepts

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

// InsertMappings records symmetric IS_MAPPED_TO similarities between the
// concepts carrying the given source ids. Unknown ids are logged and skipped.
// LOOM mappings between concepts that share a facet are skipped as well.
func (w *Writer) InsertMappings(ctx context.Context, mappings []domain.IDMapping) (int, error) {
	const op = "concepts.insert_mappings"
	start := time.Now()
	for i := range mappings {
		mappings[i].ID1 = strings.TrimSpace(mappings[i].ID1)
		mappings[i].ID2 = strings.TrimSpace(mappings[i].ID2)
		mappings[i].MappingType = strings.TrimSpace(mappings[i].MappingType)
		if err := mappings[i].Validate(); err != nil {
			return 0, domain.Wrap(domain.CodeValidation, op, err)
		}
	}
	log := w.deps.Log.With("component", "MappingInsertion")

	var created, skipped int
	err := executeWrite(ctx, w.deps, op, func(tx graph.Tx) error {
		created, skipped = 0, 0
		cache := map[string]*graph.Node{}
		resolve := func(id string) (*graph.Node, error) {
			if n, ok := cache[id]; ok {
				return n, nil
			}
			n, err := conceptBySourceID(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			cache[id] = n
			return n, nil
		}
		for _, m := range mappings {
			n1, err := resolve(m.ID1)
			if err != nil {
				return err
			}
			n2, err := resolve(m.ID2)
			if err != nil {
				return err
			}
			if n1 == nil || n2 == nil {
				log.Warn("mapping references unknown source id, skipping", "id1", m.ID1, "id2", m.ID2, "type", m.MappingType)
				skipped++
				continue
			}
			if n1.ID == n2.ID {
				continue
			}
			if m.MappingType == domain.MappingTypeLoom && shareFacet(n1, n2) {
				skipped++
				continue
			}
			ok, err := addMapping(ctx, tx, n1.ID, n2.ID, m.MappingType)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Info("mappings inserted", "mappings", len(mappings), "created", created, "skipped", skipped, "elapsed_ms", elapsedMS(start))
	return created, nil
}

// conceptBySourceID returns the single real concept carrying id. Hollow
// nodes do not take part in mappings.
func conceptBySourceID(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	nodes, err := tx.FindNodesContaining(ctx, domain.LabelConcept, domain.PropSourceIDs, id)
	if err != nil {
		return nil, err
	}
	var found *graph.Node
	for _, n := range nodes {
		if n.HasLabel(domain.LabelHollow) || n.HasLabel(domain.LabelAggregate) {
			continue
		}
		if found != nil {
			return nil, domain.AmbiguousError("mapping source id matches more than one concept",
				domain.Coordinates{SourceID: id}).WithIDs(found.Props.String(domain.PropID), n.Props.String(domain.PropID))
		}
		found = n
	}
	return found, nil
}

func shareFacet(a, b *graph.Node) bool {
	fa := a.Props.Strings(domain.PropFacets)
	for _, f := range b.Props.Strings(domain.PropFacets) {
		for _, g := range fa {
			if f == g {
				return true
			}
		}
	}
	return false
}

// addMapping stores the mapping type on the edge between a and b in either
// direction, creating the edge when none exists.
func addMapping(ctx context.Context, tx graph.Tx, a, b graph.NodeID, mappingType string) (bool, error) {
	edges, err := tx.Edges(ctx, a, graph.Both, graph.RelType(domain.EdgeIsMappedTo))
	if err != nil {
		return false, err
	}
	for _, e := range edges {
		if e.Other(a) != b {
			continue
		}
		types := e.Props.Strings(domain.PropMappingType)
		merged := unionStrings(types, mappingType)
		if len(merged) != len(types) {
			sort.Strings(merged)
			if err := tx.SetEdgeProperties(ctx, e.ID, graph.Properties{domain.PropMappingType: merged}); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	_, err = tx.CreateEdge(ctx, a, b, graph.RelType(domain.EdgeIsMappedTo), graph.Properties{
		domain.PropMappingType: []string{mappingType},
	})
	return err == nil, err
}
