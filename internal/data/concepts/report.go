package concepts

import (
	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

type relKey struct {
	from graph.NodeID
	to   graph.NodeID
	typ  graph.RelType
}

// InsertionReport is the bookkeeping of one insertion batch. It lives for a
// single InsertConcepts call.
type InsertionReport struct {
	existing map[graph.NodeID]bool
	created  map[relKey]bool
	imported map[domain.Coordinates]bool
	omitted  map[string]bool
	// merged maps nodes consumed by a unique clash merge to their survivor.
	merged map[graph.NodeID]graph.NodeID

	CreatedConcepts      int
	CreatedRelationships int
}

func newInsertionReport() *InsertionReport {
	return &InsertionReport{
		existing: map[graph.NodeID]bool{},
		created:  map[relKey]bool{},
		imported: map[domain.Coordinates]bool{},
		omitted:  map[string]bool{},
		merged:   map[graph.NodeID]graph.NodeID{},
	}
}

// MarkExisting records that id existed before the batch (or must be treated so).
func (r *InsertionReport) MarkExisting(id graph.NodeID) { r.existing[r.Resolve(id)] = true }

func (r *InsertionReport) IsExisting(id graph.NodeID) bool { return r.existing[r.Resolve(id)] }

func (r *InsertionReport) AddImported(c domain.Coordinates) { r.imported[c] = true }

func (r *InsertionReport) IsImported(c domain.Coordinates) bool { return r.imported[c] }

func (r *InsertionReport) AddOmitted(sourceID string) { r.omitted[sourceID] = true }

func (r *InsertionReport) IsOmitted(sourceID string) bool { return r.omitted[sourceID] }

func (r *InsertionReport) Omitted() int { return len(r.omitted) }

func (r *InsertionReport) recordRelationship(from, to graph.NodeID, typ graph.RelType) {
	r.created[relKey{from: from, to: to, typ: typ}] = true
	r.CreatedRelationships++
}

func (r *InsertionReport) relationshipCreated(from, to graph.NodeID, typ graph.RelType) bool {
	return r.created[relKey{from: from, to: to, typ: typ}]
}

// forgetRelationship drops a batch-created edge that was deleted again.
func (r *InsertionReport) forgetRelationship(from, to graph.NodeID, typ graph.RelType) {
	k := relKey{from: from, to: to, typ: typ}
	if r.created[k] {
		delete(r.created, k)
		r.CreatedRelationships--
	}
}

func (r *InsertionReport) recordMerge(obsolete, survivor graph.NodeID) {
	r.merged[obsolete] = survivor
}

// Resolve follows merge aliases to the surviving node.
func (r *InsertionReport) Resolve(id graph.NodeID) graph.NodeID {
	for i := 0; i < len(r.merged)+1; i++ {
		next, ok := r.merged[id]
		if !ok {
			return id
		}
		id = next
	}
	return id
}
