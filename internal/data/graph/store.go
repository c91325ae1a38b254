// Package graph defines the storage collaborator the concept engine runs on:
// labelled nodes with typed properties, typed directed edges and atomic
// transactions. Implementations live in memgraph (embedded) and neo4jgraph.
package graph

import (
	"context"
	"errors"
	"regexp"
	"sort"
)

type (
	NodeID  string
	EdgeID  string
	RelType string
)

// Direction selects which edges of a node Edges returns.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

var (
	ErrNodeNotFound      = errors.New("graph: node not found")
	ErrEdgeNotFound      = errors.New("graph: edge not found")
	ErrNodeHasEdges      = errors.New("graph: node still has edges")
	ErrInvalidIdentifier = errors.New("graph: invalid label, relationship type or property key")
	ErrInvalidValue      = errors.New("graph: unsupported property value")
	ErrReadOnly          = errors.New("graph: write in read-only transaction")
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s is usable as label, relationship type or
// property key. Implementations reject anything else with ErrInvalidIdentifier.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

type Node struct {
	ID     NodeID
	Labels []string
	Props  Properties
}

func (n *Node) HasLabel(label string) bool {
	if n == nil {
		return false
	}
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

type Edge struct {
	ID    EdgeID
	Type  RelType
	From  NodeID
	To    NodeID
	Props Properties
}

// Other returns the endpoint of e that is not id.
func (e *Edge) Other(id NodeID) NodeID {
	if e.From == id {
		return e.To
	}
	return e.From
}

// Tx is one unit of work. Reads observe the transaction's own writes.
type Tx interface {
	CreateNode(ctx context.Context, labels []string, props Properties) (NodeID, error)
	// Node returns nil, nil when the node does not exist.
	Node(ctx context.Context, id NodeID) (*Node, error)
	SetProperties(ctx context.Context, id NodeID, props Properties) error
	RemoveProperties(ctx context.Context, id NodeID, keys ...string) error
	AddLabels(ctx context.Context, id NodeID, labels ...string) error
	RemoveLabels(ctx context.Context, id NodeID, labels ...string) error
	// DeleteNode fails with ErrNodeHasEdges unless all edges were deleted first.
	DeleteNode(ctx context.Context, id NodeID) error
	NodeIDsByLabel(ctx context.Context, label string) ([]NodeID, error)
	// FindNodes returns nodes with label whose property key equals value.
	FindNodes(ctx context.Context, label, key string, value any) ([]*Node, error)
	// FindNodesContaining returns nodes with label whose array property key contains value.
	FindNodesContaining(ctx context.Context, label, key string, value any) ([]*Node, error)

	CreateEdge(ctx context.Context, from, to NodeID, typ RelType, props Properties) (EdgeID, error)
	// Edge returns nil, nil when the edge does not exist.
	Edge(ctx context.Context, id EdgeID) (*Edge, error)
	// Edges lists the edges of node in direction dir, restricted to types when given.
	Edges(ctx context.Context, node NodeID, dir Direction, types ...RelType) ([]*Edge, error)
	SetEdgeProperties(ctx context.Context, id EdgeID, props Properties) error
	DeleteEdge(ctx context.Context, id EdgeID) error

	// LockNode takes a write lock on the node for the rest of the transaction.
	LockNode(ctx context.Context, id NodeID) error
}

// Store opens transactions. InTx commits when fn returns nil and rolls back
// every write otherwise. fn may be invoked more than once when the backend
// retries transient failures, so it must not leak state across attempts.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Close(ctx context.Context) error
}

// DetachDelete removes all edges of id and then the node itself.
func DetachDelete(ctx context.Context, tx Tx, id NodeID) error {
	edges, err := tx.Edges(ctx, id, Both)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if err := tx.DeleteEdge(ctx, e.ID); err != nil && !errors.Is(err, ErrEdgeNotFound) {
			return err
		}
	}
	return tx.DeleteNode(ctx, id)
}

// SortNodeIDs orders ids deterministically.
func SortNodeIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
