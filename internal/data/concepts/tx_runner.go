package concepts

import (
	"context"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

// TxRunner provides the transaction boundary for engine writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx graph.Tx) error) error
}

type storeTxRunner struct {
	store graph.Store
}

// NewStoreTxRunner returns a runner backed by graph.Store transactions.
func NewStoreTxRunner(store graph.Store) TxRunner {
	return &storeTxRunner{store: store}
}

func (r *storeTxRunner) InTx(ctx context.Context, fn func(tx graph.Tx) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.store == nil {
		return domain.NewError(domain.CodeInternal, "concepts.tx", "transaction runner has nil store", nil)
	}
	return r.store.InTx(ctx, fn)
}
