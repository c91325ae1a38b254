package memgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/yungbote/conceptdb/internal/data/graph"
)

const snapshotVersion = 1

type snapshot struct {
	Version int            `json:"version"`
	NodeSeq uint64         `json:"nodeSeq"`
	EdgeSeq uint64         `json:"edgeSeq"`
	Nodes   []snapshotNode `json:"nodes"`
	Edges   []snapshotEdge `json:"edges"`
}

type snapshotNode struct {
	ID     graph.NodeID          `json:"id"`
	Seq    uint64                `json:"seq"`
	Labels []string              `json:"labels"`
	Props  map[string]typedValue `json:"props,omitempty"`
}

type snapshotEdge struct {
	ID    graph.EdgeID          `json:"id"`
	Seq   uint64                `json:"seq"`
	Type  graph.RelType         `json:"type"`
	From  graph.NodeID          `json:"from"`
	To    graph.NodeID          `json:"to"`
	Props map[string]typedValue `json:"props,omitempty"`
}

// typedValue keeps the property type across JSON, which would otherwise
// collapse int64 and float64.
type typedValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

func encodeProps(p graph.Properties) (map[string]typedValue, error) {
	if len(p) == 0 {
		return nil, nil
	}
	out := make(map[string]typedValue, len(p))
	for k, v := range p {
		var tag string
		switch v.(type) {
		case string:
			tag = "s"
		case []string:
			tag = "ss"
		case int64:
			tag = "i"
		case []int64:
			tag = "is"
		case float64:
			tag = "f"
		case []float64:
			tag = "fs"
		case bool:
			tag = "b"
		case []bool:
			tag = "bs"
		default:
			return nil, fmt.Errorf("%w: %s=%T", graph.ErrInvalidValue, k, v)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = typedValue{T: tag, V: raw}
	}
	return out, nil
}

func decodeProps(in map[string]typedValue) (graph.Properties, error) {
	out := make(graph.Properties, len(in))
	for k, tv := range in {
		var (
			v   any
			err error
		)
		switch tv.T {
		case "s":
			v, err = decodeAs[string](tv.V)
		case "ss":
			v, err = decodeAs[[]string](tv.V)
		case "i":
			v, err = decodeAs[int64](tv.V)
		case "is":
			v, err = decodeAs[[]int64](tv.V)
		case "f":
			v, err = decodeAs[float64](tv.V)
		case "fs":
			v, err = decodeAs[[]float64](tv.V)
		case "b":
			v, err = decodeAs[bool](tv.V)
		case "bs":
			v, err = decodeAs[[]bool](tv.V)
		default:
			err = fmt.Errorf("%w: tag %q", graph.ErrInvalidValue, tv.T)
		}
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func decodeAs[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

// Save writes a zstd-compressed snapshot of the whole graph.
func (s *Store) Save(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{Version: snapshotVersion, NodeSeq: s.nodeSeq, EdgeSeq: s.edgeSeq}
	for _, n := range s.nodes {
		props, err := encodeProps(n.props)
		if err != nil {
			return err
		}
		snap.Nodes = append(snap.Nodes, snapshotNode{ID: n.id, Seq: n.seq, Labels: n.labels, Props: props})
	}
	for _, e := range s.edges {
		props, err := encodeProps(e.props)
		if err != nil {
			return err
		}
		snap.Edges = append(snap.Edges, snapshotEdge{ID: e.id, Seq: e.seq, Type: e.typ, From: e.from, To: e.to, Props: props})
	}
	sort.Slice(snap.Nodes, func(i, j int) bool { return snap.Nodes[i].Seq < snap.Nodes[j].Seq })
	sort.Slice(snap.Edges, func(i, j int) bool { return snap.Edges[i].Seq < snap.Edges[j].Seq })

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(enc).Encode(&snap); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// Load replaces the store contents with the snapshot read from r.
func (s *Store) Load(r io.Reader) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()

	var snap snapshot
	if err := json.NewDecoder(dec).Decode(&snap); err != nil {
		return fmt.Errorf("memgraph: decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("memgraph: unsupported snapshot version %d", snap.Version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	for _, sn := range snap.Nodes {
		props, err := decodeProps(sn.Props)
		if err != nil {
			s.reset()
			return err
		}
		n := &nodeRec{id: sn.ID, seq: sn.Seq, labels: sn.Labels, props: props}
		s.nodes[n.id] = n
		s.indexNode(n)
	}
	for _, se := range snap.Edges {
		if s.nodes[se.From] == nil || s.nodes[se.To] == nil {
			s.reset()
			return fmt.Errorf("memgraph: edge %s references missing node", se.ID)
		}
		props, err := decodeProps(se.Props)
		if err != nil {
			s.reset()
			return err
		}
		e := &edgeRec{id: se.ID, seq: se.Seq, typ: se.Type, from: se.From, to: se.To, props: props}
		s.edges[e.id] = e
		s.indexEdge(e)
	}
	s.nodeSeq, s.edgeSeq = snap.NodeSeq, snap.EdgeSeq
	return nil
}

// SaveFile writes the snapshot atomically through a temp file.
func (s *Store) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := s.Save(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Open returns a store loaded from path, or an empty one when path does not exist.
func Open(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := s.Load(f); err != nil {
		return nil, err
	}
	return s, nil
}
