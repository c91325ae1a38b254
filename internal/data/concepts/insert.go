package concepts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

// InsertConcepts creates or merges a batch of concepts and their
// relationships in one transaction.
func (w *Writer) InsertConcepts(ctx context.Context, in domain.ImportConcepts) (domain.InsertionResult, error) {
	const op = "concepts.insert"
	start := time.Now()
	in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.InsertionResult{}, domain.Wrap(domain.CodeValidation, op, err)
	}

	var (
		report  *InsertionReport
		facetID string
	)
	err := executeWrite(ctx, w.deps, op, func(tx graph.Tx) error {
		ins := newInserter(ctx, tx, w.deps, in.ImportOptions)
		report = ins.report
		if err := ins.run(in); err != nil {
			return err
		}
		if ins.facet != nil {
			facetID = ins.facet.ID
		}
		return nil
	})
	if err != nil {
		return domain.InsertionResult{}, err
	}
	res := domain.InsertionResult{
		CreatedConcepts:      report.CreatedConcepts,
		CreatedRelationships: report.CreatedRelationships,
		FacetID:              facetID,
		ElapsedMS:            elapsedMS(start),
		OmittedConcepts:      report.Omitted(),
	}
	w.deps.Log.Info("concepts inserted",
		"concepts", len(in.Concepts),
		"created_concepts", res.CreatedConcepts,
		"created_relationships", res.CreatedRelationships,
		"omitted", res.OmittedConcepts,
		"facet_id", facetID,
		"elapsed_ms", res.ElapsedMS,
	)
	return res, nil
}

type inserter struct {
	ctx    context.Context
	tx     graph.Tx
	log    *logger.Logger
	facets Facets
	opts   domain.ImportOptions
	report *InsertionReport

	facet   *FacetRef
	noFacet *FacetRef
	rootRel graph.RelType

	refs       map[domain.Coordinates]graph.NodeID
	aggregates []graph.NodeID
}

func newInserter(ctx context.Context, tx graph.Tx, deps BaseDeps, opts *domain.ImportOptions) *inserter {
	ins := &inserter{
		ctx:     ctx,
		tx:      tx,
		log:     deps.Log.With("component", "ConceptInsertion"),
		facets:  deps.Facets,
		report:  newInsertionReport(),
		rootRel: graph.RelType(domain.EdgeHasRootConcept),
		refs:    map[domain.Coordinates]graph.NodeID{},
	}
	if opts != nil {
		ins.opts = *opts
	}
	return ins
}

func (ins *inserter) run(in domain.ImportConcepts) error {
	if in.Facet != nil {
		ref, err := ins.facets.GetOrCreateFacet(ins.ctx, ins.tx, *in.Facet)
		if err != nil {
			return err
		}
		ins.facet = &ref
		ins.rootRel = ins.facets.RootRelType(ref.ID)
		if !ref.Created {
			ins.report.MarkExisting(ref.Node)
		}
	}
	for i := range in.Concepts {
		ins.report.AddImported(in.Concepts[i].Coordinates)
	}

	var queue []domain.Coordinates
	if !ins.opts.Merge {
		for i := range in.Concepts {
			for _, p := range in.Concepts[i].ParentCoordinates {
				if ins.opts.IsCutParent(p.SourceID) || ins.opts.NoFacetCmd.MatchesParent(p.SourceID) {
					continue
				}
				found, err := ins.resolveExisting(p)
				if err != nil {
					return err
				}
				if !found && !ins.opts.DoNotCreateHollowParents {
					queue = append(queue, p)
				}
			}
		}
	}

	active := make([]*domain.ImportConcept, 0, len(in.Concepts))
	for i := range in.Concepts {
		c := &in.Concepts[i]
		found, err := ins.resolveExisting(c.Coordinates)
		if err != nil {
			return err
		}
		switch {
		case found:
		case ins.opts.Merge:
			ins.report.AddOmitted(omitKey(c.Coordinates))
			ins.log.Debug("merge only: skipping unknown concept", "coordinates", c.Coordinates.String())
			continue
		default:
			queue = append(queue, c.Coordinates)
		}
		active = append(active, c)
	}

	if !ins.opts.Merge {
		for _, c := range active {
			if c.Aggregate {
				for _, ec := range c.ElementCoordinates {
					found, err := ins.resolveExisting(ec)
					if err != nil {
						return err
					}
					if !found && ins.opts.CreateHollowAggregateElements {
						queue = append(queue, ec)
					}
				}
			}
			for _, r := range c.Relationships {
				found, err := ins.resolveExisting(r.TargetCoordinates)
				if err != nil {
					return err
				}
				if !found && ins.opts.CreateHollowRelationshipTargets {
					queue = append(queue, r.TargetCoordinates)
				}
			}
		}
	}

	if err := ins.createHollows(queue); err != nil {
		return err
	}

	for _, c := range active {
		id, err := ins.mustResolve(c.Coordinates)
		if err != nil {
			return err
		}
		if c.Aggregate {
			err = ins.insertAggregate(id, c)
		} else {
			err = ins.insertConcept(id, c)
		}
		if err != nil {
			return err
		}
	}

	if !ins.opts.Merge {
		for _, c := range active {
			if err := ins.createRelationships(c); err != nil {
				return err
			}
		}
	}

	if len(ins.aggregates) > 0 {
		ids := make([]graph.NodeID, 0, len(ins.aggregates))
		for _, id := range ins.aggregates {
			ids = append(ids, ins.report.Resolve(id))
		}
		if _, err := assembleBottomUp(ins.ctx, ins.tx, ids); err != nil {
			return err
		}
	}
	return nil
}

func omitKey(c domain.Coordinates) string {
	if c.SourceID != "" {
		return c.Source + ":" + c.SourceID
	}
	return c.OriginalSource + ":" + c.OriginalID
}

// resolve returns the node for c, consulting the batch cache first.
func (ins *inserter) resolve(c domain.Coordinates) (graph.NodeID, error) {
	if id, ok := ins.refs[c]; ok {
		return ins.report.Resolve(id), nil
	}
	id, err := lookup(ins.ctx, ins.tx, c)
	if err != nil || id == "" {
		return "", err
	}
	ins.refs[c] = id
	return id, nil
}

// resolveExisting resolves c before any batch writes happened and marks the
// result as existing.
func (ins *inserter) resolveExisting(c domain.Coordinates) (bool, error) {
	id, err := ins.resolve(c)
	if err != nil || id == "" {
		return false, err
	}
	ins.report.MarkExisting(id)
	return true, nil
}

func (ins *inserter) mustResolve(c domain.Coordinates) (graph.NodeID, error) {
	id, err := ins.resolve(c)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", domain.InvariantError("concept was expected to be created before property insertion", c)
	}
	return id, nil
}

func (ins *inserter) createHollows(queue []domain.Coordinates) error {
	for _, c := range queue {
		id, err := ins.resolve(c)
		if err != nil {
			return err
		}
		if id != "" {
			continue
		}
		id, err = ins.tx.CreateNode(ins.ctx, []string{domain.LabelConceptEntity, domain.LabelHollow}, coordinateProps(c))
		if err != nil {
			return err
		}
		ins.refs[c] = id
	}
	return nil
}

// mergeProperties writes the descriptive properties of c onto node n. It
// returns the source id that c just declared unique, if any.
func (ins *inserter) mergeProperties(n *graph.Node, c *domain.ImportConcept, requireName bool) (string, error) {
	props := graph.Properties{}
	current := n.Props

	existingName := current.String(domain.PropPrefName)
	synonyms := current.Strings(domain.PropSynonyms)
	switch {
	case existingName == "" && c.PrefName == "":
		if requireName {
			return "", domain.MissingRequiredProperty(domain.PropPrefName, c.Coordinates)
		}
	case existingName == "":
		props[domain.PropPrefName] = c.PrefName
	case c.PrefName != "" && !strings.EqualFold(existingName, c.PrefName) && !containsFold(synonyms, c.PrefName):
		synonyms = append(synonyms, c.PrefName)
	}
	for _, s := range c.Synonyms {
		if !containsFold(synonyms, s) {
			synonyms = append(synonyms, s)
		}
	}
	if len(synonyms) != len(current.Strings(domain.PropSynonyms)) {
		props[domain.PropSynonyms] = synonyms
	}
	setUnion(props, current, domain.PropDescriptions, c.Descriptions...)
	setUnion(props, current, domain.PropWritingVariants, c.WritingVariants...)
	setUnion(props, current, domain.PropAcronyms, c.Acronyms...)
	setUnion(props, current, domain.PropGeneralLabels, c.GeneralLabels...)
	if ins.facet != nil {
		setUnion(props, current, domain.PropFacets, ins.facet.ID)
	}

	if c.Coordinates.HasOriginalCoordinates() && current.String(domain.PropOriginalID) == "" {
		props[domain.PropOriginalID] = c.Coordinates.OriginalID
		props[domain.PropOriginalSource] = c.Coordinates.OriginalSource
	}
	pairs, changed, nowUnique := mergeSourcePair(sourcePairs(current), c.Coordinates)
	if changed {
		for k, v := range sourcePairProps(pairs) {
			props[k] = v
		}
	}

	if len(c.AdditionalProperties) > 0 {
		extra, err := graph.NormalizeProperties(c.AdditionalProperties)
		if err != nil {
			return "", domain.ValidationError(err.Error(), c.Coordinates)
		}
		for k, v := range extra {
			if reservedProps[k] {
				return "", domain.ValidationError(fmt.Sprintf("additional property %q is reserved", k), c.Coordinates)
			}
			props[k] = v
		}
	}

	if len(c.GeneralLabels) > 0 {
		if err := ins.tx.AddLabels(ins.ctx, n.ID, c.GeneralLabels...); err != nil {
			return "", err
		}
	}
	if len(props) > 0 {
		if err := ins.tx.SetProperties(ins.ctx, n.ID, props); err != nil {
			return "", err
		}
	}
	if nowUnique {
		return c.Coordinates.SourceID, nil
	}
	return "", nil
}

// mergeSourcePair adds c's source pair to pairs unless an entry already
// matches it. nowUnique reports a matching non-unique entry that c declares unique.
func mergeSourcePair(pairs []sourcePair, c domain.Coordinates) (out []sourcePair, changed, nowUnique bool) {
	if !c.HasSourceCoordinates() {
		return pairs, false, false
	}
	for i, sp := range pairs {
		if sp.ID != c.SourceID {
			continue
		}
		if sp.Source == c.Source {
			if c.UniqueSourceID && !sp.Unique {
				pairs[i].Unique = true
				return pairs, true, true
			}
			return pairs, false, false
		}
		if sp.Unique && c.UniqueSourceID {
			return pairs, false, false
		}
	}
	return append(pairs, sourcePair{ID: c.SourceID, Source: c.Source, Unique: c.UniqueSourceID}), true, false
}

func (ins *inserter) insertConcept(id graph.NodeID, c *domain.ImportConcept) error {
	n, err := ins.tx.Node(ins.ctx, id)
	if err != nil {
		return err
	}
	if n == nil {
		return domain.InvariantError("resolved concept node is missing", c.Coordinates).WithIDs(string(id))
	}
	kind := domain.KindOf(n.Labels)
	hollow := kind == domain.KindHollow || kind == domain.KindUnknown
	clashID, err := ins.mergeProperties(n, c, hollow || !ins.report.IsExisting(id))
	if err != nil {
		return err
	}
	if clashID == "" && c.Coordinates.UniqueSourceID && c.Coordinates.HasSourceCoordinates() {
		stranded, err := ins.strandedSourceHolder(id, c.Coordinates)
		if err != nil {
			return err
		}
		if stranded {
			clashID = c.Coordinates.SourceID
		}
	}
	if hollow {
		if err := ins.promote(id, domain.KindConcept); err != nil {
			return err
		}
	}
	if clashID != "" {
		return ins.mergeUniqueClash(id, clashID)
	}
	return nil
}

func (ins *inserter) insertAggregate(id graph.NodeID, c *domain.ImportConcept) error {
	n, err := ins.tx.Node(ins.ctx, id)
	if err != nil {
		return err
	}
	if n == nil {
		return domain.InvariantError("resolved aggregate node is missing", c.Coordinates).WithIDs(string(id))
	}
	kind := domain.KindOf(n.Labels)
	if _, err := ins.mergeProperties(n, c, false); err != nil {
		return err
	}
	copyProps := c.CopyProperties
	if len(copyProps) == 0 {
		copyProps = defaultMappingCopyProperties
	}
	if err := ins.tx.SetProperties(ins.ctx, id, graph.Properties{domain.PropCopyProperties: append([]string(nil), copyProps...)}); err != nil {
		return err
	}
	if kind != domain.KindAggregate {
		if err := ins.promote(id, domain.KindAggregate); err != nil {
			return err
		}
	}
	if c.AggregateIncludeInHierarchy {
		if err := ins.tx.AddLabels(ins.ctx, id, domain.LabelConcept); err != nil {
			return err
		}
	}
	if !ins.opts.Merge {
		for _, ec := range c.ElementCoordinates {
			el, err := ins.resolve(ec)
			if err != nil {
				return err
			}
			if el == "" {
				ins.log.Warn("aggregate element not found, skipping", "aggregate", c.Coordinates.String(), "element", ec.String())
				continue
			}
			if el == id {
				continue
			}
			if _, err := ins.createIfAbsent(id, el, graph.RelType(domain.EdgeHasElement), nil); err != nil {
				return err
			}
		}
	}
	ins.aggregates = append(ins.aggregates, id)
	return nil
}

// promote turns a hollow (or unlabelled) node into kind, assigns its external
// id and drops placeholder root edges.
func (ins *inserter) promote(id graph.NodeID, kind domain.ConceptKind) error {
	n, err := ins.tx.Node(ins.ctx, id)
	if err != nil {
		return err
	}
	if n == nil {
		return domain.InvariantError("promoted node is missing").WithIDs(string(id))
	}
	fresh := n.HasLabel(domain.LabelHollow) || domain.KindOf(n.Labels) == domain.KindUnknown
	if n.HasLabel(domain.LabelHollow) {
		if err := ins.tx.RemoveLabels(ins.ctx, id, domain.LabelHollow); err != nil {
			return err
		}
	}
	if err := ins.tx.AddLabels(ins.ctx, id, domain.LabelConceptEntity, kind.Label()); err != nil {
		return err
	}
	if n.Props.String(domain.PropID) == "" {
		prefix := domain.IDPrefixConcept
		if kind == domain.KindAggregate {
			prefix = domain.IDPrefixAggregate
		}
		ext, err := nextID(ins.ctx, ins.tx, prefix)
		if err != nil {
			return err
		}
		if err := ins.tx.SetProperties(ins.ctx, id, graph.Properties{domain.PropID: ext}); err != nil {
			return err
		}
	}
	in, err := ins.tx.Edges(ins.ctx, id, graph.Incoming, graph.RelType(domain.EdgeHasRootConcept), ins.rootRel)
	if err != nil {
		return err
	}
	for _, e := range in {
		from, err := ins.tx.Node(ins.ctx, e.From)
		if err != nil {
			return err
		}
		if from == nil || !(from.HasLabel(domain.LabelFacet) || from.HasLabel(domain.LabelNoFacet)) {
			continue
		}
		if err := ins.tx.DeleteEdge(ins.ctx, e.ID); err != nil {
			return err
		}
		ins.report.forgetRelationship(e.From, id, e.Type)
	}
	if fresh {
		ins.report.CreatedConcepts++
	}
	return nil
}
