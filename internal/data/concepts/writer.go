package concepts

import (
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

// Writer implements domain.ConceptWriter.
type Writer struct {
	deps BaseDeps
}

var _ domain.ConceptWriter = (*Writer)(nil)

func NewWriter(deps BaseDeps) *Writer {
	return &Writer{deps: deps.withDefaults()}
}

func (w *Writer) Contract() domain.Contract { return domain.ConceptWriterContract }

// Aggregates implements domain.AggregateWriter.
type Aggregates struct {
	deps BaseDeps
}

var _ domain.AggregateWriter = (*Aggregates)(nil)

func NewAggregates(deps BaseDeps) *Aggregates {
	return &Aggregates{deps: deps.withDefaults()}
}

func (a *Aggregates) Contract() domain.Contract { return domain.AggregateWriterContract }
