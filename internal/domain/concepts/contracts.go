package concepts

import "context"

// WriteTxOwnership defines who owns write transaction boundaries.
type WriteTxOwnership string

const (
	// WriteTxPerCall means every write method runs in exactly one atomic store transaction.
	WriteTxPerCall WriteTxOwnership = "per_call"
	// WriteTxPerChunk means a long pass commits independently atomic chunks and is safe to re-run.
	WriteTxPerChunk WriteTxOwnership = "per_chunk"
)

// Contract describes the transactional policy of an engine component.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	Notes            string
}

var (
	ConceptWriterContract = Contract{
		Name:             "Concepts.Writer",
		WriteTxOwnership: WriteTxPerCall,
		Notes:            "an insertion batch commits entirely or not at all; callers serialize batches over overlapping sources",
	}
	AggregateWriterContract = Contract{
		Name:             "Concepts.Aggregates",
		WriteTxOwnership: WriteTxPerChunk,
		Notes:            "build passes delete then rebuild; chunks are bounded by the configured batch size",
	}
)

// ConceptWriter inserts concepts, mappings and variants.
type ConceptWriter interface {
	Contract() Contract
	InsertConcepts(ctx context.Context, in ImportConcepts) (InsertionResult, error)
	InsertMappings(ctx context.Context, mappings []IDMapping) (int, error)
	AddVariants(ctx context.Context, variants []ConceptVariants) (int, error)
	Lookup(ctx context.Context, coords Coordinates) (*ConceptView, error)
}

// AggregateWriter runs the aggregate maintenance passes.
type AggregateWriter interface {
	Contract() Contract
	BuildAggregatesByMapping(ctx context.Context, opts MappingBuildOptions) (AggregateBuildResult, error)
	BuildAggregatesByName(ctx context.Context, label string) (AggregateBuildResult, error)
	DeleteAggregates(ctx context.Context, label string) (int, error)
	AssembleAggregateProperties(ctx context.Context) (int, error)
}
