package concepts

import (
	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

// createIfAbsent creates src-[typ]->dst unless this batch already created it
// or, when both endpoints predate the batch, the store already holds it.
// Existing edges get props merged in.
func (ins *inserter) createIfAbsent(src, dst graph.NodeID, typ graph.RelType, props graph.Properties) (bool, error) {
	src, dst = ins.report.Resolve(src), ins.report.Resolve(dst)
	scan := ins.report.IsExisting(src) && ins.report.IsExisting(dst)
	return ins.ensureRelationship(src, dst, typ, props, scan)
}

func (ins *inserter) ensureRelationship(src, dst graph.NodeID, typ graph.RelType, props graph.Properties, scan bool) (bool, error) {
	if ins.report.relationshipCreated(src, dst, typ) {
		return false, nil
	}
	if scan {
		edges, err := ins.tx.Edges(ins.ctx, src, graph.Outgoing, typ)
		if err != nil {
			return false, err
		}
		for _, e := range edges {
			if e.To != dst {
				continue
			}
			if len(props) > 0 {
				if err := ins.tx.SetEdgeProperties(ins.ctx, e.ID, props); err != nil {
					return false, err
				}
			}
			return false, nil
		}
	}
	if _, err := ins.tx.CreateEdge(ins.ctx, src, dst, typ, props); err != nil {
		return false, err
	}
	ins.report.recordRelationship(src, dst, typ)
	return true, nil
}

func (ins *inserter) createRelationships(c *domain.ImportConcept) error {
	id, err := ins.mustResolve(c.Coordinates)
	if err != nil {
		return err
	}

	inHierarchy := !c.Aggregate || c.AggregateIncludeInHierarchy
	if inHierarchy {
		if len(c.ParentCoordinates) == 0 {
			if err := ins.attachRoot(id, ins.opts.NoFacetCmd.AppliesToRootConcepts()); err != nil {
				return err
			}
		}
		for _, p := range c.ParentCoordinates {
			if err := ins.attachParent(id, c, p); err != nil {
				return err
			}
		}
	}

	for _, r := range c.Relationships {
		target, err := ins.resolve(r.TargetCoordinates)
		if err != nil {
			return err
		}
		if target == "" {
			ins.log.Warn("relationship target not found, skipping",
				"type", r.Type,
				"source", c.Coordinates.String(),
				"target", r.TargetCoordinates.String(),
			)
			continue
		}
		var props graph.Properties
		if len(r.Properties) > 0 {
			if props, err = graph.NormalizeProperties(r.Properties); err != nil {
				return domain.ValidationError(err.Error(), c.Coordinates)
			}
		}
		if _, err := ins.createIfAbsent(id, target, graph.RelType(r.Type), props); err != nil {
			return err
		}
	}
	return nil
}

func (ins *inserter) attachParent(id graph.NodeID, c *domain.ImportConcept, p domain.Coordinates) error {
	if ins.opts.IsCutParent(p.SourceID) {
		return ins.attachRoot(id, false)
	}
	if ins.opts.NoFacetCmd.MatchesParent(p.SourceID) {
		return ins.attachRoot(id, true)
	}
	parent, err := ins.resolve(p)
	if err != nil {
		return err
	}
	if parent == "" {
		if ins.opts.DoNotCreateHollowParents {
			ins.log.Warn("parent not found and hollow parents disabled, attaching to facet root",
				"concept", c.Coordinates.String(),
				"parent", p.String(),
			)
			return ins.attachRoot(id, false)
		}
		return domain.InvariantError("parent was expected to be created before the relationship pass", p, c.Coordinates)
	}
	pn, err := ins.tx.Node(ins.ctx, parent)
	if err != nil {
		return err
	}
	if pn == nil {
		return domain.InvariantError("resolved parent node is missing", p, c.Coordinates).WithIDs(string(parent))
	}
	kind := domain.KindOf(pn.Labels)
	if kind == domain.KindAggregate && !pn.HasLabel(domain.LabelConcept) {
		return domain.InvariantError("parent is an aggregate that is not part of the concept hierarchy", p, c.Coordinates).WithIDs(string(parent))
	}

	if _, err := ins.createIfAbsent(parent, id, graph.RelType(domain.EdgeIsBroaderThan), nil); err != nil {
		return err
	}
	if ins.facet == nil {
		return nil
	}
	if _, err := ins.createIfAbsent(parent, id, graph.RelType(domain.FacetBroaderThan(ins.facet.ID)), nil); err != nil {
		return err
	}
	children := pn.Props.Strings(domain.PropChildrenInFacets)
	if merged := unionStrings(children, ins.facet.ID); len(merged) != len(children) {
		if err := ins.tx.SetProperties(ins.ctx, parent, graph.Properties{domain.PropChildrenInFacets: merged}); err != nil {
			return err
		}
	}
	if kind == domain.KindHollow {
		// placeholder until the parent's own data arrives
		if _, err := ins.createIfAbsent(ins.facet.Node, parent, ins.rootRel, nil); err != nil {
			return err
		}
	}
	return nil
}

// attachRoot makes id a root of the batch facet, or of its no-facet variant.
func (ins *inserter) attachRoot(id graph.NodeID, noFacet bool) error {
	if ins.facet == nil {
		return nil
	}
	target := *ins.facet
	if noFacet {
		if ins.noFacet == nil {
			ref, err := ins.facets.NoFacetVariant(ins.ctx, ins.tx, *ins.facet)
			if err != nil {
				return err
			}
			if !ref.Created {
				ins.report.MarkExisting(ref.Node)
			}
			ins.noFacet = &ref
		}
		target = *ins.noFacet
	}
	_, err := ins.createIfAbsent(target.Node, id, ins.rootRel, nil)
	return err
}
