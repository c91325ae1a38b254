package concepts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	"github.com/yungbote/conceptdb/internal/pkg/progress"
)

var defaultMappingCopyProperties = []string{
	domain.PropPrefName,
	domain.PropSynonyms,
	domain.PropWritingVariants,
	domain.PropDescriptions,
	domain.PropFacets,
}

// BuildAggregatesByMapping groups concepts connected through IS_MAPPED_TO
// edges of the allowed types into aggregates tagged ResultLabel. Existing
// aggregates with that label are deleted first, so the pass always rebuilds.
func (a *Aggregates) BuildAggregatesByMapping(ctx context.Context, opts domain.MappingBuildOptions) (domain.AggregateBuildResult, error) {
	const op = "aggregates.build_by_mapping"
	start := time.Now()
	opts, err := normalizeMappingOptions(opts)
	if err != nil {
		return domain.AggregateBuildResult{}, domain.Wrap(domain.CodeValidation, op, err)
	}
	log := a.deps.Log.With("component", "MappingAggregates", "result_label", opts.ResultLabel)

	if _, err := deleteAggregates(ctx, a.deps, op, opts.ResultLabel); err != nil {
		return domain.AggregateBuildResult{}, err
	}

	var candidates []graph.NodeID
	err = executeRead(ctx, a.deps, op, func(tx graph.Tx) error {
		var err error
		candidates, err = tx.NodeIDsByLabel(ctx, opts.ConceptLabel)
		return err
	})
	if err != nil {
		return domain.AggregateBuildResult{}, err
	}

	b := &mappingBuilder{opts: opts, allowed: toSet(opts.AllowedMappingTypes)}
	var res domain.AggregateBuildResult
	rep := progress.New(log, "aggregates by mapping", len(candidates))
	for _, chunk := range chunks(candidates, a.deps.BatchSize) {
		var aggs, singles int
		err := executeWrite(ctx, a.deps, op, func(tx graph.Tx) error {
			aggs, singles = 0, 0
			for _, id := range chunk {
				made, single, err := b.process(ctx, tx, id)
				if err != nil {
					return err
				}
				if made {
					aggs++
				}
				if single {
					singles++
				}
			}
			return nil
		})
		if err != nil {
			return res, err
		}
		res.Aggregates += aggs
		res.Singletons += singles
		rep.Add(len(chunk))
	}
	res.ElapsedMS = elapsedMS(start)
	log.Info("aggregates by mapping built", "aggregates", res.Aggregates, "singletons", res.Singletons, "elapsed_ms", res.ElapsedMS)
	return res, nil
}

func normalizeMappingOptions(opts domain.MappingBuildOptions) (domain.MappingBuildOptions, error) {
	var types []string
	for _, t := range opts.AllowedMappingTypes {
		if t = strings.TrimSpace(t); t != "" {
			types = unionStrings(types, t)
		}
	}
	if len(types) == 0 {
		return opts, domain.ValidationError("at least one allowed mapping type is required")
	}
	sort.Strings(types)
	opts.AllowedMappingTypes = types
	opts.ConceptLabel = strings.TrimSpace(opts.ConceptLabel)
	if opts.ConceptLabel == "" {
		opts.ConceptLabel = domain.LabelConcept
	}
	opts.ResultLabel = strings.TrimSpace(opts.ResultLabel)
	for _, l := range []string{opts.ConceptLabel, opts.ResultLabel} {
		if !domain.ValidIdentifier(l) {
			return opts, domain.ValidationError(fmt.Sprintf("invalid label %q", l))
		}
	}
	return opts, nil
}

type mappingBuilder struct {
	opts    domain.MappingBuildOptions
	allowed map[string]bool
}

// process handles one candidate concept. It reports whether an aggregate
// was created or the concept was tagged as a singleton.
func (b *mappingBuilder) process(ctx context.Context, tx graph.Tx, id graph.NodeID) (made, single bool, err error) {
	n, err := tx.Node(ctx, id)
	if err != nil || n == nil {
		return false, false, err
	}
	if n.HasLabel(domain.LabelAggregate) || n.HasLabel(b.opts.ResultLabel) {
		return false, false, nil
	}
	member, err := b.inMatchingAggregate(ctx, tx, id)
	if err != nil || member {
		return false, false, err
	}

	elements, err := b.closure(ctx, tx, id)
	if err != nil {
		return false, false, err
	}
	if len(elements) < 2 {
		return false, true, tx.AddLabels(ctx, id, b.opts.ResultLabel)
	}
	if err := createAggregate(ctx, tx, []string{domain.LabelAggregate, b.opts.ResultLabel}, graph.Properties{
		domain.PropCopyProperties: append([]string(nil), defaultMappingCopyProperties...),
		domain.PropMappingType:    append([]string(nil), b.opts.AllowedMappingTypes...),
	}, elements); err != nil {
		return false, false, err
	}
	return true, false, nil
}

// inMatchingAggregate reports whether id already belongs to an aggregate
// tagged with the result label and built from exactly the allowed types.
func (b *mappingBuilder) inMatchingAggregate(ctx context.Context, tx graph.Tx, id graph.NodeID) (bool, error) {
	in, err := tx.Edges(ctx, id, graph.Incoming, graph.RelType(domain.EdgeHasElement))
	if err != nil {
		return false, err
	}
	var matches []string
	for _, e := range in {
		agg, err := tx.Node(ctx, e.From)
		if err != nil {
			return false, err
		}
		if agg == nil || !agg.HasLabel(domain.LabelAggregate) || !agg.HasLabel(b.opts.ResultLabel) {
			continue
		}
		if sameSet(agg.Props.Strings(domain.PropMappingType), b.opts.AllowedMappingTypes) {
			matches = append(matches, agg.Props.String(domain.PropID))
		}
	}
	if len(matches) > 1 {
		n, _ := tx.Node(ctx, id)
		var coords []domain.Coordinates
		if n != nil {
			coords = nodeCoordinates(n.Props)
		}
		return false, domain.InvariantError("concept belongs to more than one aggregate with the same mapping types", coords...).WithIDs(matches...)
	}
	return len(matches) == 1, nil
}

// closure collects every node reachable from start over allowed mapping
// edges. Nodes outside the concept label are traversed but not returned.
func (b *mappingBuilder) closure(ctx context.Context, tx graph.Tx, start graph.NodeID) ([]graph.NodeID, error) {
	visited := map[graph.NodeID]bool{start: true}
	stack := []graph.NodeID{start}
	var elements []graph.NodeID
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, err := tx.Node(ctx, cur)
		if err != nil {
			return nil, err
		}
		if n == nil {
			continue
		}
		if n.HasLabel(b.opts.ConceptLabel) && !n.HasLabel(domain.LabelAggregate) {
			elements = append(elements, cur)
		}
		edges, err := tx.Edges(ctx, cur, graph.Both, graph.RelType(domain.EdgeIsMappedTo))
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if !b.allowedEdge(e) {
				continue
			}
			next := e.Other(cur)
			if visited[next] {
				continue
			}
			visited[next] = true
			stack = append(stack, next)
		}
	}
	graph.SortNodeIDs(elements)
	return elements, nil
}

func (b *mappingBuilder) allowedEdge(e *graph.Edge) bool {
	for _, t := range e.Props.Strings(domain.PropMappingType) {
		if b.allowed[t] {
			return true
		}
	}
	return false
}

// createAggregate creates an aggregate node with a fresh atid and
// HAS_ELEMENT edges to elements.
func createAggregate(ctx context.Context, tx graph.Tx, labels []string, props graph.Properties, elements []graph.NodeID) error {
	ext, err := nextID(ctx, tx, domain.IDPrefixAggregate)
	if err != nil {
		return err
	}
	props = props.Clone()
	props[domain.PropID] = ext
	agg, err := tx.CreateNode(ctx, labels, props)
	if err != nil {
		return err
	}
	for _, el := range elements {
		if _, err := tx.CreateEdge(ctx, agg, el, graph.RelType(domain.EdgeHasElement), nil); err != nil {
			return err
		}
	}
	return nil
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}

func sameSet(a, b []string) bool {
	sa, sb := toSet(a), toSet(b)
	if len(sa) != len(sb) {
		return false
	}
	for k := range sa {
		if !sb[k] {
			return false
		}
	}
	return true
}
