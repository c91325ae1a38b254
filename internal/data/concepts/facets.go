package concepts

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

// FacetRef is a resolved facet node.
type FacetRef struct {
	Node    graph.NodeID
	ID      string
	Name    string
	Created bool
}

// Facets is the facet bookkeeping the insertion algorithm consumes.
type Facets interface {
	GetOrCreateFacet(ctx context.Context, tx graph.Tx, want domain.ImportFacet) (FacetRef, error)
	NoFacetVariant(ctx context.Context, tx graph.Tx, facet FacetRef) (FacetRef, error)
	RootRelType(facetID string) graph.RelType
}

// GraphFacets stores facets, facet groups and no-facet variants in the graph.
type GraphFacets struct{}

func NewGraphFacets() *GraphFacets { return &GraphFacets{} }

func (GraphFacets) RootRelType(string) graph.RelType {
	return graph.RelType(domain.EdgeHasRootConcept)
}

func (f GraphFacets) GetOrCreateFacet(ctx context.Context, tx graph.Tx, want domain.ImportFacet) (FacetRef, error) {
	if id := strings.TrimSpace(want.ID); id != "" {
		nodes, err := tx.FindNodes(ctx, domain.LabelFacet, domain.PropID, id)
		if err != nil {
			return FacetRef{}, err
		}
		if len(nodes) == 0 {
			return FacetRef{}, domain.NotFoundError("facet does not exist", id)
		}
		return facetRef(nodes[0], false), nil
	}

	name := strings.TrimSpace(want.Name)
	var group graph.NodeID
	if want.Group != nil && strings.TrimSpace(want.Group.Name) != "" {
		var err error
		if group, err = f.getOrCreateGroup(ctx, tx, *want.Group); err != nil {
			return FacetRef{}, err
		}
	}

	candidates, err := tx.FindNodes(ctx, domain.LabelFacet, domain.PropFacetName, name)
	if err != nil {
		return FacetRef{}, err
	}
	for _, c := range candidates {
		if group == "" {
			return facetRef(c, false), nil
		}
		in, err := tx.Edges(ctx, c.ID, graph.Incoming, graph.RelType(domain.EdgeHasFacet))
		if err != nil {
			return FacetRef{}, err
		}
		for _, e := range in {
			if e.From == group {
				return facetRef(c, false), nil
			}
		}
	}

	id, err := nextID(ctx, tx, domain.IDPrefixFacet)
	if err != nil {
		return FacetRef{}, err
	}
	props := graph.Properties{
		domain.PropID:        id,
		domain.PropFacetName: name,
	}
	if want.ShortName != "" {
		props[domain.PropFacetShortName] = want.ShortName
	}
	if want.CustomID != "" {
		props[domain.PropFacetCustomID] = want.CustomID
	}
	if want.SourceType != "" {
		props[domain.PropFacetSourceType] = want.SourceType
	}
	if len(want.Labels) > 0 {
		props[domain.PropFacetLabels] = append([]string(nil), want.Labels...)
	}
	labels := append([]string{domain.LabelFacet}, want.Labels...)
	node, err := tx.CreateNode(ctx, labels, props)
	if err != nil {
		return FacetRef{}, err
	}
	if group != "" {
		if _, err := tx.CreateEdge(ctx, group, node, graph.RelType(domain.EdgeHasFacet), nil); err != nil {
			return FacetRef{}, err
		}
	}
	return FacetRef{Node: node, ID: id, Name: name, Created: true}, nil
}

func (GraphFacets) getOrCreateGroup(ctx context.Context, tx graph.Tx, want domain.ImportFacetGroup) (graph.NodeID, error) {
	name := strings.TrimSpace(want.Name)
	nodes, err := tx.FindNodes(ctx, domain.LabelFacetGroup, domain.PropFacetGroupName, name)
	if err != nil {
		return "", err
	}
	if len(nodes) > 0 {
		return nodes[0].ID, nil
	}
	id, err := nextID(ctx, tx, domain.IDPrefixFacetGroup)
	if err != nil {
		return "", err
	}
	return tx.CreateNode(ctx, []string{domain.LabelFacetGroup}, graph.Properties{
		domain.PropID:             id,
		domain.PropFacetGroupName: name,
		"position":                int64(want.Position),
	})
}

// NoFacetVariant returns the NO_FACET node hanging off facet, creating it
// when missing.
func (GraphFacets) NoFacetVariant(ctx context.Context, tx graph.Tx, facet FacetRef) (FacetRef, error) {
	out, err := tx.Edges(ctx, facet.Node, graph.Outgoing, graph.RelType(domain.EdgeHasNoFacet))
	if err != nil {
		return FacetRef{}, err
	}
	if len(out) > 0 {
		n, err := tx.Node(ctx, out[0].To)
		if err != nil {
			return FacetRef{}, err
		}
		if n != nil {
			return facetRef(n, false), nil
		}
	}
	id := facet.ID + "_nofacet"
	name := fmt.Sprintf("No facet (%s)", facet.Name)
	node, err := tx.CreateNode(ctx, []string{domain.LabelNoFacet}, graph.Properties{
		domain.PropID:        id,
		domain.PropFacetName: name,
		domain.PropNoFacetOf: facet.ID,
	})
	if err != nil {
		return FacetRef{}, err
	}
	if _, err := tx.CreateEdge(ctx, facet.Node, node, graph.RelType(domain.EdgeHasNoFacet), nil); err != nil {
		return FacetRef{}, err
	}
	return FacetRef{Node: node, ID: id, Name: name, Created: true}, nil
}

func facetRef(n *graph.Node, created bool) FacetRef {
	return FacetRef{
		Node:    n.ID,
		ID:      n.Props.String(domain.PropID),
		Name:    n.Props.String(domain.PropFacetName),
		Created: created,
	}
}
