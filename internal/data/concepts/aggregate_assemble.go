package concepts

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	"github.com/yungbote/conceptdb/internal/pkg/progress"
)

// AssembleAggregateProperties recomputes the copied properties of every
// aggregate, inner aggregates before the aggregates containing them.
func (a *Aggregates) AssembleAggregateProperties(ctx context.Context) (int, error) {
	const op = "aggregates.assemble"
	start := time.Now()

	var order []graph.NodeID
	err := executeRead(ctx, a.deps, op, func(tx graph.Tx) error {
		ids, err := tx.NodeIDsByLabel(ctx, domain.LabelAggregate)
		if err != nil {
			return err
		}
		order, err = bottomUpOrder(ctx, tx, ids)
		return err
	})
	if err != nil {
		return 0, err
	}

	rep := progress.New(a.deps.Log, "assemble aggregate properties", len(order))
	total := 0
	for _, chunk := range chunks(order, a.deps.BatchSize) {
		n := 0
		err := executeWrite(ctx, a.deps, op, func(tx graph.Tx) error {
			var err error
			n, err = assembleAll(ctx, tx, chunk)
			return err
		})
		if err != nil {
			return total, err
		}
		total += n
		rep.Add(len(chunk))
	}
	a.deps.Log.Info("aggregate properties assembled", "aggregates", total, "elapsed_ms", elapsedMS(start))
	return total, nil
}

// assembleBottomUp assembles ids and every aggregate nested below them.
func assembleBottomUp(ctx context.Context, tx graph.Tx, ids []graph.NodeID) (int, error) {
	order, err := bottomUpOrder(ctx, tx, ids)
	if err != nil {
		return 0, err
	}
	return assembleAll(ctx, tx, order)
}

func assembleAll(ctx context.Context, tx graph.Tx, ids []graph.NodeID) (int, error) {
	n := 0
	for _, id := range ids {
		ok, err := assembleProperties(ctx, tx, id)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// bottomUpOrder returns roots and the aggregates below them in post-order,
// so every aggregate follows the aggregates it contains.
func bottomUpOrder(ctx context.Context, tx graph.Tx, roots []graph.NodeID) ([]graph.NodeID, error) {
	type frame struct {
		id       graph.NodeID
		expanded bool
	}
	state := map[graph.NodeID]int{} // 1 on stack, 2 emitted
	var order []graph.NodeID
	for _, root := range roots {
		if state[root] != 0 {
			continue
		}
		stack := []frame{{id: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.expanded {
				stack = stack[:len(stack)-1]
				if state[top.id] != 2 {
					state[top.id] = 2
					order = append(order, top.id)
				}
				continue
			}
			if state[top.id] == 2 {
				stack = stack[:len(stack)-1]
				continue
			}
			top.expanded = true
			id := top.id
			state[id] = 1
			edges, err := tx.Edges(ctx, id, graph.Outgoing, graph.RelType(domain.EdgeHasElement))
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				switch state[e.To] {
				case 2:
					continue
				case 1:
					return nil, domain.InvariantError(fmt.Sprintf("aggregate cycle through %s", e.To)).WithIDs(string(id), string(e.To))
				}
				el, err := tx.Node(ctx, e.To)
				if err != nil {
					return nil, err
				}
				if el != nil && el.HasLabel(domain.LabelAggregate) {
					stack = append(stack, frame{id: e.To})
				}
			}
		}
	}
	return order, nil
}

// assembleProperties rebuilds the copyProperties of one aggregate from its
// direct elements. Arrays are unioned; scalars are majority voted with the
// minority values kept under <p>_divergent.
func assembleProperties(ctx context.Context, tx graph.Tx, id graph.NodeID) (bool, error) {
	agg, err := tx.Node(ctx, id)
	if err != nil || agg == nil {
		return false, err
	}
	if !agg.HasLabel(domain.LabelAggregate) {
		return false, nil
	}
	copyProps := agg.Props.Strings(domain.PropCopyProperties)
	if len(copyProps) == 0 {
		copyProps = defaultMappingCopyProperties
	}

	stale := make([]string, 0, 2*len(copyProps))
	for _, p := range copyProps {
		stale = append(stale, p, p+domain.DivergentSuffix)
	}
	if err := tx.RemoveProperties(ctx, id, stale...); err != nil {
		return false, err
	}

	edges, err := tx.Edges(ctx, id, graph.Outgoing, graph.RelType(domain.EdgeHasElement))
	if err != nil {
		return false, err
	}
	elements := make([]graph.Properties, 0, len(edges))
	for _, e := range edges {
		el, err := tx.Node(ctx, e.To)
		if err != nil {
			return false, err
		}
		if el != nil {
			elements = append(elements, el.Props)
		}
	}

	props := mergeElementProperties(copyProps, elements)
	if len(props) == 0 {
		return true, nil
	}
	return true, tx.SetProperties(ctx, id, props)
}

// mergeElementProperties computes the assembled properties of an aggregate
// from its element property sets.
func mergeElementProperties(copyProps []string, elements []graph.Properties) graph.Properties {
	out := graph.Properties{}
	var divergentNames []string
	for _, p := range copyProps {
		var (
			array   any
			scalars []any
		)
		for _, el := range elements {
			v, ok := el[p]
			if !ok {
				continue
			}
			if graph.IsArray(v) {
				array = unionArray(array, v)
			} else {
				scalars = append(scalars, v)
			}
		}
		switch {
		case array != nil:
			out[p] = array
		case len(scalars) > 0:
			winner, minority := majority(scalars)
			out[p] = winner
			if len(minority) > 0 {
				out[p+domain.DivergentSuffix] = toArray(minority)
				if p == domain.PropPrefName {
					for _, m := range minority {
						divergentNames = append(divergentNames, graph.FormatValue(m))
					}
				}
			}
		}
	}

	if len(divergentNames) > 0 || out.Has(domain.PropSynonyms) {
		synonyms := append(out.Strings(domain.PropSynonyms), divergentNames...)
		out[domain.PropSynonyms] = dedupeFold(synonyms)
	}
	return out
}

// majority returns the most frequent value, ties going to the value that
// was seen first, and the other distinct values in first-seen order.
func majority(values []any) (any, []any) {
	var distinct []any
	counts := map[int]int{}
	for _, v := range values {
		idx := -1
		for i, d := range distinct {
			if graph.ValuesEqual(d, v) {
				idx = i
				break
			}
		}
		if idx < 0 {
			idx = len(distinct)
			distinct = append(distinct, v)
		}
		counts[idx]++
	}
	best := 0
	for i := range distinct {
		if counts[i] > counts[best] {
			best = i
		}
	}
	minority := make([]any, 0, len(distinct)-1)
	for i, d := range distinct {
		if i != best {
			minority = append(minority, d)
		}
	}
	return distinct[best], minority
}

// unionArray appends the items of v missing from acc. Mixed element types
// fall back to strings.
func unionArray(acc, v any) any {
	if acc == nil {
		return dedupeArray(v)
	}
	switch a := acc.(type) {
	case []string:
		if b, ok := v.([]string); ok {
			return unionStrings(a, b...)
		}
	case []int64:
		if b, ok := v.([]int64); ok {
			return unionComparable(a, b)
		}
	case []float64:
		if b, ok := v.([]float64); ok {
			return unionComparable(a, b)
		}
	case []bool:
		if b, ok := v.([]bool); ok {
			return unionComparable(a, b)
		}
	}
	return unionStrings(arrayStrings(acc), arrayStrings(v)...)
}

func dedupeArray(v any) any {
	switch a := v.(type) {
	case []string:
		return unionStrings(nil, a...)
	case []int64:
		return unionComparable(nil, a)
	case []float64:
		return unionComparable(nil, a)
	case []bool:
		return unionComparable(nil, a)
	}
	return v
}

func unionComparable[T comparable](base, add []T) []T {
	seen := make(map[T]bool, len(base)+len(add))
	out := make([]T, 0, len(base)+len(add))
	for _, x := range append(append([]T(nil), base...), add...) {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

func arrayStrings(v any) []string {
	switch a := v.(type) {
	case []string:
		return a
	case []int64:
		return formatAll(a)
	case []float64:
		return formatAll(a)
	case []bool:
		return formatAll(a)
	}
	return nil
}

func formatAll[T any](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = graph.FormatValue(it)
	}
	return out
}

// toArray converts scalar values of one type into the matching array type.
func toArray(values []any) any {
	if typed, ok := typedArray[string](values); ok {
		return typed
	}
	if typed, ok := typedArray[int64](values); ok {
		return typed
	}
	if typed, ok := typedArray[float64](values); ok {
		return typed
	}
	if typed, ok := typedArray[bool](values); ok {
		return typed
	}
	return formatAll(values)
}

func typedArray[T any](values []any) ([]T, bool) {
	out := make([]T, 0, len(values))
	for _, v := range values {
		t, ok := v.(T)
		if !ok {
			return nil, false
		}
		out = append(out, t)
	}
	return out, true
}
