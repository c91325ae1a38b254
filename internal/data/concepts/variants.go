package concepts

import (
	"context"
	"time"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

// AddVariants merges occurrence counts of writing variants or acronyms onto
// the variant node of each concept. The concept and variant nodes are write
// locked before the read-modify-write so concurrent writers cannot lose counts.
func (w *Writer) AddVariants(ctx context.Context, variants []domain.ConceptVariants) (int, error) {
	const op = "concepts.add_variants"
	start := time.Now()
	for _, v := range variants {
		if err := v.Validate(); err != nil {
			return 0, domain.Wrap(domain.CodeValidation, op, err)
		}
	}
	log := w.deps.Log.With("component", "VariantInsertion")

	var updated int
	err := executeWrite(ctx, w.deps, op, func(tx graph.Tx) error {
		updated = 0
		for _, v := range variants {
			concepts, err := tx.FindNodes(ctx, domain.LabelConceptEntity, domain.PropID, v.ConceptID)
			if err != nil {
				return err
			}
			if len(concepts) == 0 {
				log.Warn("variants for unknown concept, skipping", "concept_id", v.ConceptID)
				continue
			}
			if err := mergeVariantCounts(ctx, tx, concepts[0].ID, v); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Info("variants added", "entries", len(variants), "updated", updated, "elapsed_ms", elapsedMS(start))
	return updated, nil
}

func variantKind(t domain.VariantType) (graph.RelType, string) {
	if t == domain.VariantAcronym {
		return graph.RelType(domain.EdgeHasAcronyms), domain.LabelAcronyms
	}
	return graph.RelType(domain.EdgeHasVariants), domain.LabelWritingVariants
}

func mergeVariantCounts(ctx context.Context, tx graph.Tx, concept graph.NodeID, v domain.ConceptVariants) error {
	if err := tx.LockNode(ctx, concept); err != nil {
		return err
	}
	rel, label := variantKind(v.Type)
	edges, err := tx.Edges(ctx, concept, graph.Outgoing, rel)
	if err != nil {
		return err
	}
	var node graph.NodeID
	if len(edges) > 0 {
		node = edges[0].To
	} else {
		node, err = tx.CreateNode(ctx, []string{label}, graph.Properties{
			domain.PropVariants:      []string{},
			domain.PropVariantCounts: []int64{},
		})
		if err != nil {
			return err
		}
		if _, err := tx.CreateEdge(ctx, concept, node, rel, nil); err != nil {
			return err
		}
	}
	if err := tx.LockNode(ctx, node); err != nil {
		return err
	}
	n, err := tx.Node(ctx, node)
	if err != nil {
		return err
	}
	if n == nil {
		return domain.InvariantError("variant node is missing").WithIDs(string(node))
	}
	names := n.Props.Strings(domain.PropVariants)
	counts := n.Props.Ints(domain.PropVariantCounts)
	for len(counts) < len(names) {
		counts = append(counts, 0)
	}
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	for _, name := range sortedKeys(v.Counts) {
		if i, ok := index[name]; ok {
			counts[i] += int64(v.Counts[name])
			continue
		}
		index[name] = len(names)
		names = append(names, name)
		counts = append(counts, int64(v.Counts[name]))
	}
	return tx.SetProperties(ctx, node, graph.Properties{
		domain.PropVariants:      names,
		domain.PropVariantCounts: counts,
	})
}
