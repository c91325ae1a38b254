package concepts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	"github.com/yungbote/conceptdb/internal/pkg/progress"
)

var equalNameCopyProperties = []string{
	domain.PropPrefName,
	domain.PropSynonyms,
	domain.PropDescriptions,
}

// nameKey lowercases s and strips all whitespace.
func nameKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

type namedNode struct {
	id  graph.NodeID
	key string
}

// BuildAggregatesByName groups the non-aggregate nodes carrying label by
// normalized preferred name. Groups of two or more become aggregates tagged
// AGGREGATE_EQUAL_NAMES; single nodes receive the tag directly. Previous
// results are deleted first.
func (a *Aggregates) BuildAggregatesByName(ctx context.Context, label string) (domain.AggregateBuildResult, error) {
	const op = "aggregates.build_by_name"
	start := time.Now()
	label = strings.TrimSpace(label)
	if label == "" {
		label = domain.LabelConcept
	}
	if !domain.ValidIdentifier(label) {
		return domain.AggregateBuildResult{}, domain.Wrap(domain.CodeValidation, op, domain.ValidationError(fmt.Sprintf("invalid label %q", label)))
	}
	log := a.deps.Log.With("component", "NameAggregates", "label", label)

	if _, err := deleteAggregates(ctx, a.deps, op, domain.LabelAggregateEqualNames); err != nil {
		return domain.AggregateBuildResult{}, err
	}

	var nodes []namedNode
	err := executeRead(ctx, a.deps, op, func(tx graph.Tx) error {
		ids, err := tx.NodeIDsByLabel(ctx, label)
		if err != nil {
			return err
		}
		for _, id := range ids {
			n, err := tx.Node(ctx, id)
			if err != nil {
				return err
			}
			if n == nil || n.HasLabel(domain.LabelAggregate) || n.HasLabel(domain.LabelHollow) {
				continue
			}
			key := nameKey(n.Props.String(domain.PropPrefName))
			if key == "" {
				continue
			}
			nodes = append(nodes, namedNode{id: id, key: key})
		}
		return nil
	})
	if err != nil {
		return domain.AggregateBuildResult{}, err
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].key < nodes[j].key })

	var runs [][]graph.NodeID
	for i := 0; i < len(nodes); {
		j := i + 1
		for j < len(nodes) && nodes[j].key == nodes[i].key {
			j++
		}
		run := make([]graph.NodeID, 0, j-i)
		for _, n := range nodes[i:j] {
			run = append(run, n.id)
		}
		runs = append(runs, run)
		i = j
	}

	var res domain.AggregateBuildResult
	rep := progress.New(log, "aggregates by name", len(nodes))
	for len(runs) > 0 {
		// fill one transaction with whole runs up to the batch size
		size, take := 0, 0
		for take < len(runs) && (take == 0 || size+len(runs[take]) <= a.deps.BatchSize) {
			size += len(runs[take])
			take++
		}
		batch := runs[:take]
		runs = runs[take:]

		var aggs, singles int
		err := executeWrite(ctx, a.deps, op, func(tx graph.Tx) error {
			aggs, singles = 0, 0
			for _, run := range batch {
				if len(run) == 1 {
					if err := tx.AddLabels(ctx, run[0], domain.LabelAggregateEqualNames); err != nil {
						return err
					}
					singles++
					continue
				}
				if err := createAggregate(ctx, tx, []string{domain.LabelAggregate, domain.LabelAggregateEqualNames}, graph.Properties{
					domain.PropCopyProperties: append([]string(nil), equalNameCopyProperties...),
				}, run); err != nil {
					return err
				}
				aggs++
			}
			return nil
		})
		if err != nil {
			return res, err
		}
		res.Aggregates += aggs
		res.Singletons += singles
		rep.Add(size)
	}
	res.ElapsedMS = elapsedMS(start)
	log.Info("aggregates by name built", "aggregates", res.Aggregates, "singletons", res.Singletons, "elapsed_ms", res.ElapsedMS)
	return res, nil
}
