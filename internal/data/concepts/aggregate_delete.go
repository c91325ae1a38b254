package concepts

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	"github.com/yungbote/conceptdb/internal/pkg/progress"
)

// DeleteAggregates removes label from every node carrying it. Aggregates are
// deleted entirely, edges first. Nodes are processed in independently
// committed chunks; a failed run can simply be repeated.
func (a *Aggregates) DeleteAggregates(ctx context.Context, label string) (int, error) {
	const op = "aggregates.delete"
	start := time.Now()
	if !domain.ValidIdentifier(label) {
		return 0, domain.Wrap(domain.CodeValidation, op, domain.ValidationError(fmt.Sprintf("invalid label %q", label)))
	}
	deleted, err := deleteAggregates(ctx, a.deps, op, label)
	if err != nil {
		return deleted, err
	}
	a.deps.Log.Info("aggregates deleted", "label", label, "deleted", deleted, "elapsed_ms", elapsedMS(start))
	return deleted, nil
}

func deleteAggregates(ctx context.Context, deps BaseDeps, op, label string) (int, error) {
	var ids []graph.NodeID
	err := executeRead(ctx, deps, op, func(tx graph.Tx) error {
		var err error
		ids, err = tx.NodeIDsByLabel(ctx, label)
		return err
	})
	if err != nil {
		return 0, err
	}
	rep := progress.New(deps.Log, "delete aggregates "+label, len(ids))
	deleted := 0
	for _, chunk := range chunks(ids, deps.BatchSize) {
		n := 0
		err := executeWrite(ctx, deps, op, func(tx graph.Tx) error {
			n = 0
			for _, id := range chunk {
				node, err := tx.Node(ctx, id)
				if err != nil {
					return err
				}
				if node == nil {
					continue
				}
				if node.HasLabel(domain.LabelAggregate) {
					if err := graph.DetachDelete(ctx, tx, id); err != nil {
						return err
					}
					n++
					continue
				}
				if err := tx.RemoveLabels(ctx, id, label); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return deleted, err
		}
		deleted += n
		rep.Add(len(chunk))
	}
	return deleted, nil
}
