package neo4jgraph

import (
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/conceptdb/internal/data/graph"
)

// quote validates an identifier and backtick-quotes it for Cypher.
func quote(ident string) (string, error) {
	if !graph.ValidIdentifier(ident) {
		return "", fmt.Errorf("%w: %q", graph.ErrInvalidIdentifier, ident)
	}
	return "`" + ident + "`", nil
}

// labelExpr renders ":`A`:`B`".
func labelExpr(labels []string) (string, error) {
	var b strings.Builder
	for _, l := range labels {
		q, err := quote(l)
		if err != nil {
			return "", err
		}
		b.WriteString(":")
		b.WriteString(q)
	}
	return b.String(), nil
}

func edgesQuery(node graph.NodeID, dir graph.Direction, types []graph.RelType) (string, map[string]any) {
	var pattern string
	switch dir {
	case graph.Outgoing:
		pattern = "(n)-[r]->()"
	case graph.Incoming:
		pattern = "(n)<-[r]-()"
	default:
		pattern = "(n)-[r]-()"
	}
	params := map[string]any{"id": string(node)}
	q := "MATCH " + pattern + " WHERE elementId(n) = $id"
	if len(types) > 0 {
		names := make([]string, 0, len(types))
		for _, t := range types {
			names = append(names, string(t))
		}
		params["types"] = names
		q += " AND type(r) IN $types"
	}
	return q + edgeReturn + " ORDER BY id", params
}

func toDriverProps(p graph.Properties) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = toDriverValue(v)
	}
	return out
}

// toDriverValue converts typed slices into []any, which every driver version packs.
func toDriverValue(v any) any {
	switch t := v.(type) {
	case []string:
		return toAny(t)
	case []int64:
		return toAny(t)
	case []float64:
		return toAny(t)
	case []bool:
		return toAny(t)
	default:
		return v
	}
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// fromDriverValue maps driver values to property types. Unlike
// graph.NormalizeValue it keeps stored floats as floats.
func fromDriverValue(v any) (any, error) {
	switch t := v.(type) {
	case string, bool, int64, float64:
		return t, nil
	case []any:
		return fromDriverList(t)
	default:
		return nil, fmt.Errorf("%w: %T", graph.ErrInvalidValue, v)
	}
}

func fromDriverList(items []any) (any, error) {
	if len(items) == 0 {
		return []string{}, nil
	}
	var nStr, nInt, nFloat, nBool int
	for _, it := range items {
		switch it.(type) {
		case string:
			nStr++
		case int64:
			nInt++
		case float64:
			nFloat++
		case bool:
			nBool++
		default:
			return nil, fmt.Errorf("%w: list of %T", graph.ErrInvalidValue, it)
		}
	}
	n := len(items)
	switch {
	case nStr == n:
		return collect[string](items), nil
	case nBool == n:
		return collect[bool](items), nil
	case nInt == n:
		return collect[int64](items), nil
	case nInt+nFloat == n:
		out := make([]float64, n)
		for i, it := range items {
			if iv, ok := it.(int64); ok {
				out[i] = float64(iv)
			} else {
				out[i] = it.(float64)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: mixed list", graph.ErrInvalidValue)
	}
}

func collect[T any](items []any) []T {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.(T)
	}
	return out
}

func fromDriverProps(m map[string]any) (graph.Properties, error) {
	out := make(graph.Properties, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		cv, err := fromDriverValue(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = cv
	}
	return out, nil
}

func nodeFromRecord(rec *neo4j.Record) (*graph.Node, error) {
	id, _ := rec.Get("id")
	rawLabels, _ := rec.Get("labels")
	rawProps, _ := rec.Get("props")
	n := &graph.Node{ID: graph.NodeID(fmt.Sprint(id))}
	if ls, ok := rawLabels.([]any); ok {
		for _, l := range ls {
			if s, ok := l.(string); ok {
				n.Labels = append(n.Labels, s)
			}
		}
	}
	pm, _ := rawProps.(map[string]any)
	props, err := fromDriverProps(pm)
	if err != nil {
		return nil, err
	}
	n.Props = props
	return n, nil
}

func edgeFromRecord(rec *neo4j.Record) (*graph.Edge, error) {
	get := func(key string) string {
		v, _ := rec.Get(key)
		s, _ := v.(string)
		return s
	}
	rawProps, _ := rec.Get("props")
	pm, _ := rawProps.(map[string]any)
	props, err := fromDriverProps(pm)
	if err != nil {
		return nil, err
	}
	return &graph.Edge{
		ID:    graph.EdgeID(get("id")),
		Type:  graph.RelType(get("type")),
		From:  graph.NodeID(get("from")),
		To:    graph.NodeID(get("to")),
		Props: props,
	}, nil
}
