package concepts

import (
	"context"
	"strconv"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

// nextID increments the counter for prefix on the ID_MANAGER node and
// returns prefix<n>. The manager node is created on first use.
func nextID(ctx context.Context, tx graph.Tx, prefix string) (string, error) {
	ids, err := tx.NodeIDsByLabel(ctx, domain.LabelIDManager)
	if err != nil {
		return "", err
	}
	var mgr graph.NodeID
	if len(ids) == 0 {
		mgr, err = tx.CreateNode(ctx, []string{domain.LabelIDManager}, graph.Properties{})
		if err != nil {
			return "", err
		}
	} else {
		mgr = ids[0]
	}
	if err := tx.LockNode(ctx, mgr); err != nil {
		return "", err
	}
	n, err := tx.Node(ctx, mgr)
	if err != nil {
		return "", err
	}
	if n == nil {
		return "", domain.InvariantError("id manager vanished")
	}
	cur, _ := n.Props.Int(prefix)
	cur++
	if err := tx.SetProperties(ctx, mgr, graph.Properties{prefix: cur}); err != nil {
		return "", err
	}
	return prefix + strconv.FormatInt(cur, 10), nil
}
