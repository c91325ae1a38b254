// Package memgraph is an embedded graph.Store. Write transactions are
// serialized; every first touch of a node or edge is recorded in an undo log
// so a failed transaction restores the exact prior state.
package memgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/yungbote/conceptdb/internal/data/graph"
)

var ErrClosed = errors.New("memgraph: store closed")

type nodeRec struct {
	id     graph.NodeID
	seq    uint64
	labels []string
	props  graph.Properties
}

func (n *nodeRec) clone() *nodeRec {
	return &nodeRec{id: n.id, seq: n.seq, labels: append([]string(nil), n.labels...), props: n.props.Clone()}
}

func (n *nodeRec) view() *graph.Node {
	return &graph.Node{ID: n.id, Labels: append([]string(nil), n.labels...), Props: n.props.Clone()}
}

func (n *nodeRec) hasLabel(l string) bool {
	for _, x := range n.labels {
		if x == l {
			return true
		}
	}
	return false
}

type edgeRec struct {
	id    graph.EdgeID
	seq   uint64
	typ   graph.RelType
	from  graph.NodeID
	to    graph.NodeID
	props graph.Properties
}

func (e *edgeRec) clone() *edgeRec {
	c := *e
	c.props = e.props.Clone()
	return &c
}

func (e *edgeRec) view() *graph.Edge {
	return &graph.Edge{ID: e.id, Type: e.typ, From: e.from, To: e.to, Props: e.props.Clone()}
}

type Store struct {
	mu sync.RWMutex

	nodes   map[graph.NodeID]*nodeRec
	edges   map[graph.EdgeID]*edgeRec
	out     map[graph.NodeID]map[graph.EdgeID]struct{}
	in      map[graph.NodeID]map[graph.EdgeID]struct{}
	byLabel map[string]map[graph.NodeID]struct{}

	nodeSeq uint64
	edgeSeq uint64
	closed  bool
}

var _ graph.Store = (*Store)(nil)

func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.nodes = map[graph.NodeID]*nodeRec{}
	s.edges = map[graph.EdgeID]*edgeRec{}
	s.out = map[graph.NodeID]map[graph.EdgeID]struct{}{}
	s.in = map[graph.NodeID]map[graph.EdgeID]struct{}{}
	s.byLabel = map[string]map[graph.NodeID]struct{}{}
	s.nodeSeq, s.edgeSeq = 0, 0
}

func (s *Store) InTx(ctx context.Context, fn func(tx graph.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	tx := newTx(s, true)
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
		if err != nil {
			tx.rollback()
		}
		tx.done = true
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Store) View(ctx context.Context, fn func(tx graph.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	tx := newTx(s, false)
	defer func() { tx.done = true }()
	return fn(tx)
}

func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Stats returns node and edge counts.
func (s *Store) Stats() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

func (s *Store) indexNode(n *nodeRec) {
	for _, l := range n.labels {
		set := s.byLabel[l]
		if set == nil {
			set = map[graph.NodeID]struct{}{}
			s.byLabel[l] = set
		}
		set[n.id] = struct{}{}
	}
}

func (s *Store) unindexNode(n *nodeRec) {
	for _, l := range n.labels {
		if set := s.byLabel[l]; set != nil {
			delete(set, n.id)
			if len(set) == 0 {
				delete(s.byLabel, l)
			}
		}
	}
}

func (s *Store) indexEdge(e *edgeRec) {
	link(s.out, e.from, e.id)
	link(s.in, e.to, e.id)
}

func (s *Store) unindexEdge(e *edgeRec) {
	unlink(s.out, e.from, e.id)
	unlink(s.in, e.to, e.id)
}

func link(m map[graph.NodeID]map[graph.EdgeID]struct{}, n graph.NodeID, e graph.EdgeID) {
	set := m[n]
	if set == nil {
		set = map[graph.EdgeID]struct{}{}
		m[n] = set
	}
	set[e] = struct{}{}
}

func unlink(m map[graph.NodeID]map[graph.EdgeID]struct{}, n graph.NodeID, e graph.EdgeID) {
	if set := m[n]; set != nil {
		delete(set, e)
		if len(set) == 0 {
			delete(m, n)
		}
	}
}

func nodeIDFor(seq uint64) graph.NodeID { return graph.NodeID("n" + strconv.FormatUint(seq, 10)) }
func edgeIDFor(seq uint64) graph.EdgeID { return graph.EdgeID("e" + strconv.FormatUint(seq, 10)) }

func (s *Store) sortedNodes(ids map[graph.NodeID]struct{}) []*nodeRec {
	out := make([]*nodeRec, 0, len(ids))
	for id := range ids {
		if n := s.nodes[id]; n != nil {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (s *Store) sortedEdges(ids map[graph.EdgeID]struct{}) []*edgeRec {
	out := make([]*edgeRec, 0, len(ids))
	for id := range ids {
		if e := s.edges[id]; e != nil {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func checkLabels(labels []string) error {
	for _, l := range labels {
		if !graph.ValidIdentifier(l) {
			return fmt.Errorf("%w: label %q", graph.ErrInvalidIdentifier, l)
		}
	}
	return nil
}
