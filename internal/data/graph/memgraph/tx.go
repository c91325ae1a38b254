package memgraph

import (
	"context"
	"fmt"

	"github.com/yungbote/conceptdb/internal/data/graph"
)

type tx struct {
	s        *Store
	writable bool
	done     bool

	nodeUndo map[graph.NodeID]*nodeRec
	edgeUndo map[graph.EdgeID]*edgeRec
	nodeSeq  uint64
	edgeSeq  uint64
}

func newTx(s *Store, writable bool) *tx {
	return &tx{
		s:        s,
		writable: writable,
		nodeUndo: map[graph.NodeID]*nodeRec{},
		edgeUndo: map[graph.EdgeID]*edgeRec{},
		nodeSeq:  s.nodeSeq,
		edgeSeq:  s.edgeSeq,
	}
}

func (t *tx) check() error {
	if t.done {
		return fmt.Errorf("memgraph: transaction already finished")
	}
	return nil
}

func (t *tx) checkWrite() error {
	if err := t.check(); err != nil {
		return err
	}
	if !t.writable {
		return graph.ErrReadOnly
	}
	return nil
}

// touchNode records the pre-transaction state of id once.
func (t *tx) touchNode(id graph.NodeID) {
	if _, ok := t.nodeUndo[id]; ok {
		return
	}
	if n := t.s.nodes[id]; n != nil {
		t.nodeUndo[id] = n.clone()
	} else {
		t.nodeUndo[id] = nil
	}
}

func (t *tx) touchEdge(id graph.EdgeID) {
	if _, ok := t.edgeUndo[id]; ok {
		return
	}
	if e := t.s.edges[id]; e != nil {
		t.edgeUndo[id] = e.clone()
	} else {
		t.edgeUndo[id] = nil
	}
}

func (t *tx) rollback() {
	s := t.s
	for id, prev := range t.edgeUndo {
		if cur := s.edges[id]; cur != nil {
			s.unindexEdge(cur)
			delete(s.edges, id)
		}
		if prev != nil {
			s.edges[id] = prev
			s.indexEdge(prev)
		}
	}
	for id, prev := range t.nodeUndo {
		if cur := s.nodes[id]; cur != nil {
			s.unindexNode(cur)
			delete(s.nodes, id)
		}
		if prev != nil {
			s.nodes[id] = prev
			s.indexNode(prev)
		}
	}
	s.nodeSeq, s.edgeSeq = t.nodeSeq, t.edgeSeq
}

func (t *tx) node(id graph.NodeID) (*nodeRec, error) {
	n := t.s.nodes[id]
	if n == nil {
		return nil, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}
	return n, nil
}

func (t *tx) CreateNode(_ context.Context, labels []string, props graph.Properties) (graph.NodeID, error) {
	if err := t.checkWrite(); err != nil {
		return "", err
	}
	if err := checkLabels(labels); err != nil {
		return "", err
	}
	p, err := graph.NormalizeProperties(props)
	if err != nil {
		return "", err
	}
	t.s.nodeSeq++
	n := &nodeRec{id: nodeIDFor(t.s.nodeSeq), seq: t.s.nodeSeq, props: p}
	n.labels = appendUnique(nil, labels...)
	t.touchNode(n.id)
	t.s.nodes[n.id] = n
	t.s.indexNode(n)
	return n.id, nil
}

func (t *tx) Node(_ context.Context, id graph.NodeID) (*graph.Node, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	n := t.s.nodes[id]
	if n == nil {
		return nil, nil
	}
	return n.view(), nil
}

func (t *tx) SetProperties(_ context.Context, id graph.NodeID, props graph.Properties) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	n, err := t.node(id)
	if err != nil {
		return err
	}
	p, err := graph.NormalizeProperties(props)
	if err != nil {
		return err
	}
	t.touchNode(id)
	for k, v := range p {
		n.props[k] = v
	}
	return nil
}

func (t *tx) RemoveProperties(_ context.Context, id graph.NodeID, keys ...string) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	n, err := t.node(id)
	if err != nil {
		return err
	}
	t.touchNode(id)
	for _, k := range keys {
		delete(n.props, k)
	}
	return nil
}

func (t *tx) AddLabels(_ context.Context, id graph.NodeID, labels ...string) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	if err := checkLabels(labels); err != nil {
		return err
	}
	n, err := t.node(id)
	if err != nil {
		return err
	}
	t.touchNode(id)
	t.s.unindexNode(n)
	n.labels = appendUnique(n.labels, labels...)
	t.s.indexNode(n)
	return nil
}

func (t *tx) RemoveLabels(_ context.Context, id graph.NodeID, labels ...string) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	n, err := t.node(id)
	if err != nil {
		return err
	}
	t.touchNode(id)
	t.s.unindexNode(n)
	drop := map[string]bool{}
	for _, l := range labels {
		drop[l] = true
	}
	kept := n.labels[:0:0]
	for _, l := range n.labels {
		if !drop[l] {
			kept = append(kept, l)
		}
	}
	n.labels = kept
	t.s.indexNode(n)
	return nil
}

func (t *tx) DeleteNode(_ context.Context, id graph.NodeID) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	n, err := t.node(id)
	if err != nil {
		return err
	}
	if len(t.s.out[id]) > 0 || len(t.s.in[id]) > 0 {
		return fmt.Errorf("%w: %s", graph.ErrNodeHasEdges, id)
	}
	t.touchNode(id)
	t.s.unindexNode(n)
	delete(t.s.nodes, id)
	return nil
}

func (t *tx) NodeIDsByLabel(_ context.Context, label string) ([]graph.NodeID, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	recs := t.s.sortedNodes(t.s.byLabel[label])
	out := make([]graph.NodeID, 0, len(recs))
	for _, n := range recs {
		out = append(out, n.id)
	}
	return out, nil
}

func (t *tx) FindNodes(_ context.Context, label, key string, value any) ([]*graph.Node, error) {
	return t.find(label, key, value, func(have, want any) bool { return graph.ValuesEqual(have, want) })
}

func (t *tx) FindNodesContaining(_ context.Context, label, key string, value any) ([]*graph.Node, error) {
	return t.find(label, key, value, contains)
}

func (t *tx) find(label, key string, value any, match func(have, want any) bool) ([]*graph.Node, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	want, err := graph.NormalizeValue(value)
	if err != nil {
		return nil, err
	}
	var out []*graph.Node
	for _, n := range t.s.sortedNodes(t.s.byLabel[label]) {
		have, ok := n.props[key]
		if ok && match(have, want) {
			out = append(out, n.view())
		}
	}
	return out, nil
}

func contains(have, want any) bool {
	switch arr := have.(type) {
	case []string:
		for _, v := range arr {
			if v == want {
				return true
			}
		}
	case []int64:
		for _, v := range arr {
			if v == want {
				return true
			}
		}
	case []float64:
		for _, v := range arr {
			if v == want {
				return true
			}
		}
	case []bool:
		for _, v := range arr {
			if v == want {
				return true
			}
		}
	}
	return false
}

func (t *tx) CreateEdge(_ context.Context, from, to graph.NodeID, typ graph.RelType, props graph.Properties) (graph.EdgeID, error) {
	if err := t.checkWrite(); err != nil {
		return "", err
	}
	if !graph.ValidIdentifier(string(typ)) {
		return "", fmt.Errorf("%w: relationship type %q", graph.ErrInvalidIdentifier, typ)
	}
	if _, err := t.node(from); err != nil {
		return "", err
	}
	if _, err := t.node(to); err != nil {
		return "", err
	}
	p, err := graph.NormalizeProperties(props)
	if err != nil {
		return "", err
	}
	t.s.edgeSeq++
	e := &edgeRec{id: edgeIDFor(t.s.edgeSeq), seq: t.s.edgeSeq, typ: typ, from: from, to: to, props: p}
	t.touchEdge(e.id)
	t.s.edges[e.id] = e
	t.s.indexEdge(e)
	return e.id, nil
}

func (t *tx) Edge(_ context.Context, id graph.EdgeID) (*graph.Edge, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	e := t.s.edges[id]
	if e == nil {
		return nil, nil
	}
	return e.view(), nil
}

func (t *tx) Edges(_ context.Context, node graph.NodeID, dir graph.Direction, types ...graph.RelType) ([]*graph.Edge, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	ids := map[graph.EdgeID]struct{}{}
	if dir == graph.Outgoing || dir == graph.Both {
		for id := range t.s.out[node] {
			ids[id] = struct{}{}
		}
	}
	if dir == graph.Incoming || dir == graph.Both {
		for id := range t.s.in[node] {
			ids[id] = struct{}{}
		}
	}
	var out []*graph.Edge
	for _, e := range t.s.sortedEdges(ids) {
		if len(types) > 0 && !hasType(types, e.typ) {
			continue
		}
		out = append(out, e.view())
	}
	return out, nil
}

func hasType(types []graph.RelType, typ graph.RelType) bool {
	for _, t := range types {
		if t == typ {
			return true
		}
	}
	return false
}

func (t *tx) SetEdgeProperties(_ context.Context, id graph.EdgeID, props graph.Properties) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	e := t.s.edges[id]
	if e == nil {
		return fmt.Errorf("%w: %s", graph.ErrEdgeNotFound, id)
	}
	p, err := graph.NormalizeProperties(props)
	if err != nil {
		return err
	}
	t.touchEdge(id)
	for k, v := range p {
		e.props[k] = v
	}
	return nil
}

func (t *tx) DeleteEdge(_ context.Context, id graph.EdgeID) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	e := t.s.edges[id]
	if e == nil {
		return fmt.Errorf("%w: %s", graph.ErrEdgeNotFound, id)
	}
	t.touchEdge(id)
	t.s.unindexEdge(e)
	delete(t.s.edges, id)
	return nil
}

// LockNode only validates the node; write transactions are already exclusive.
func (t *tx) LockNode(_ context.Context, id graph.NodeID) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	_, err := t.node(id)
	return err
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		dup := false
		for _, d := range dst {
			if d == it {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, it)
		}
	}
	return dst
}
