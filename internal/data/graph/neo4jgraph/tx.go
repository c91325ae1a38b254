package neo4jgraph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/conceptdb/internal/data/graph"
)

type tx struct {
	tx       neo4j.ManagedTransaction
	writable bool
}

const nodeReturn = " RETURN elementId(n) AS id, labels(n) AS labels, properties(n) AS props"

const edgeReturn = " RETURN DISTINCT elementId(r) AS id, type(r) AS type, elementId(startNode(r)) AS from, elementId(endNode(r)) AS to, properties(r) AS props"

func (t *tx) run(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	res, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return res.Collect(ctx)
}

func (t *tx) write(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	if !t.writable {
		return nil, graph.ErrReadOnly
	}
	return t.run(ctx, query, params)
}

// expectOne turns an empty match into notFound.
func expectOne(recs []*neo4j.Record, notFound error, id any) error {
	if len(recs) == 0 {
		return fmt.Errorf("%w: %v", notFound, id)
	}
	if n, ok := recs[0].Values[0].(int64); ok && n == 0 {
		return fmt.Errorf("%w: %v", notFound, id)
	}
	return nil
}

func (t *tx) CreateNode(ctx context.Context, labels []string, props graph.Properties) (graph.NodeID, error) {
	lbl, err := labelExpr(labels)
	if err != nil {
		return "", err
	}
	p, err := graph.NormalizeProperties(props)
	if err != nil {
		return "", err
	}
	recs, err := t.write(ctx, "CREATE (n"+lbl+") SET n = $props RETURN elementId(n) AS id", map[string]any{"props": toDriverProps(p)})
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "", fmt.Errorf("neo4jgraph: create node returned no record")
	}
	id, _ := recs[0].Values[0].(string)
	return graph.NodeID(id), nil
}

func (t *tx) Node(ctx context.Context, id graph.NodeID) (*graph.Node, error) {
	recs, err := t.run(ctx, "MATCH (n) WHERE elementId(n) = $id"+nodeReturn, map[string]any{"id": string(id)})
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return nodeFromRecord(recs[0])
}

func (t *tx) SetProperties(ctx context.Context, id graph.NodeID, props graph.Properties) error {
	p, err := graph.NormalizeProperties(props)
	if err != nil {
		return err
	}
	recs, err := t.write(ctx, "MATCH (n) WHERE elementId(n) = $id SET n += $props RETURN count(n)", map[string]any{"id": string(id), "props": toDriverProps(p)})
	if err != nil {
		return err
	}
	return expectOne(recs, graph.ErrNodeNotFound, id)
}

func (t *tx) RemoveProperties(ctx context.Context, id graph.NodeID, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	// SET n += {k: null} removes k.
	nulls := make(map[string]any, len(keys))
	for _, k := range keys {
		if !graph.ValidIdentifier(k) {
			return fmt.Errorf("%w: property key %q", graph.ErrInvalidIdentifier, k)
		}
		nulls[k] = nil
	}
	recs, err := t.write(ctx, "MATCH (n) WHERE elementId(n) = $id SET n += $props RETURN count(n)", map[string]any{"id": string(id), "props": nulls})
	if err != nil {
		return err
	}
	return expectOne(recs, graph.ErrNodeNotFound, id)
}

func (t *tx) AddLabels(ctx context.Context, id graph.NodeID, labels ...string) error {
	return t.labels(ctx, "SET", id, labels)
}

func (t *tx) RemoveLabels(ctx context.Context, id graph.NodeID, labels ...string) error {
	return t.labels(ctx, "REMOVE", id, labels)
}

func (t *tx) labels(ctx context.Context, verb string, id graph.NodeID, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	lbl, err := labelExpr(labels)
	if err != nil {
		return err
	}
	recs, err := t.write(ctx, "MATCH (n) WHERE elementId(n) = $id "+verb+" n"+lbl+" RETURN count(n)", map[string]any{"id": string(id)})
	if err != nil {
		return err
	}
	return expectOne(recs, graph.ErrNodeNotFound, id)
}

func (t *tx) DeleteNode(ctx context.Context, id graph.NodeID) error {
	recs, err := t.write(ctx, "MATCH (n) WHERE elementId(n) = $id RETURN COUNT { (n)--() } AS degree", map[string]any{"id": string(id)})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}
	if deg, _ := recs[0].Values[0].(int64); deg > 0 {
		return fmt.Errorf("%w: %s", graph.ErrNodeHasEdges, id)
	}
	_, err = t.write(ctx, "MATCH (n) WHERE elementId(n) = $id DELETE n", map[string]any{"id": string(id)})
	return err
}

func (t *tx) NodeIDsByLabel(ctx context.Context, label string) ([]graph.NodeID, error) {
	lbl, err := labelExpr([]string{label})
	if err != nil {
		return nil, err
	}
	recs, err := t.run(ctx, "MATCH (n"+lbl+") RETURN elementId(n) AS id ORDER BY id", nil)
	if err != nil {
		return nil, err
	}
	out := make([]graph.NodeID, 0, len(recs))
	for _, r := range recs {
		if s, ok := r.Values[0].(string); ok {
			out = append(out, graph.NodeID(s))
		}
	}
	return out, nil
}

func (t *tx) FindNodes(ctx context.Context, label, key string, value any) ([]*graph.Node, error) {
	return t.find(ctx, label, key, value, "n.%s = $value")
}

func (t *tx) FindNodesContaining(ctx context.Context, label, key string, value any) ([]*graph.Node, error) {
	return t.find(ctx, label, key, value, "$value IN n.%s")
}

func (t *tx) find(ctx context.Context, label, key string, value any, predicate string) ([]*graph.Node, error) {
	lbl, err := labelExpr([]string{label})
	if err != nil {
		return nil, err
	}
	prop, err := quote(key)
	if err != nil {
		return nil, err
	}
	v, err := graph.NormalizeValue(value)
	if err != nil {
		return nil, err
	}
	q := "MATCH (n" + lbl + ") WHERE " + fmt.Sprintf(predicate, prop) + nodeReturn + " ORDER BY id"
	recs, err := t.run(ctx, q, map[string]any{"value": toDriverValue(v)})
	if err != nil {
		return nil, err
	}
	out := make([]*graph.Node, 0, len(recs))
	for _, r := range recs {
		n, err := nodeFromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (t *tx) CreateEdge(ctx context.Context, from, to graph.NodeID, typ graph.RelType, props graph.Properties) (graph.EdgeID, error) {
	rt, err := quote(string(typ))
	if err != nil {
		return "", err
	}
	p, err := graph.NormalizeProperties(props)
	if err != nil {
		return "", err
	}
	q := "MATCH (a), (b) WHERE elementId(a) = $from AND elementId(b) = $to CREATE (a)-[r:" + rt + "]->(b) SET r = $props RETURN elementId(r) AS id"
	recs, err := t.write(ctx, q, map[string]any{"from": string(from), "to": string(to), "props": toDriverProps(p)})
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "", fmt.Errorf("%w: %s or %s", graph.ErrNodeNotFound, from, to)
	}
	id, _ := recs[0].Values[0].(string)
	return graph.EdgeID(id), nil
}

func (t *tx) Edge(ctx context.Context, id graph.EdgeID) (*graph.Edge, error) {
	recs, err := t.run(ctx, "MATCH ()-[r]->() WHERE elementId(r) = $id"+edgeReturn, map[string]any{"id": string(id)})
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return edgeFromRecord(recs[0])
}

func (t *tx) Edges(ctx context.Context, node graph.NodeID, dir graph.Direction, types ...graph.RelType) ([]*graph.Edge, error) {
	q, params := edgesQuery(node, dir, types)
	recs, err := t.run(ctx, q, params)
	if err != nil {
		return nil, err
	}
	out := make([]*graph.Edge, 0, len(recs))
	for _, r := range recs {
		e, err := edgeFromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (t *tx) SetEdgeProperties(ctx context.Context, id graph.EdgeID, props graph.Properties) error {
	p, err := graph.NormalizeProperties(props)
	if err != nil {
		return err
	}
	recs, err := t.write(ctx, "MATCH ()-[r]->() WHERE elementId(r) = $id SET r += $props RETURN count(r)", map[string]any{"id": string(id), "props": toDriverProps(p)})
	if err != nil {
		return err
	}
	return expectOne(recs, graph.ErrEdgeNotFound, id)
}

func (t *tx) DeleteEdge(ctx context.Context, id graph.EdgeID) error {
	recs, err := t.write(ctx, "MATCH ()-[r]->() WHERE elementId(r) = $id DELETE r RETURN count(*)", map[string]any{"id": string(id)})
	if err != nil {
		return err
	}
	return expectOne(recs, graph.ErrEdgeNotFound, id)
}

// LockNode writes and removes a marker property, which makes Neo4j take the
// node's write lock until commit.
func (t *tx) LockNode(ctx context.Context, id graph.NodeID) error {
	recs, err := t.write(ctx, "MATCH (n) WHERE elementId(n) = $id SET n.__lock = true REMOVE n.__lock RETURN count(n)", map[string]any{"id": string(id)})
	if err != nil {
		return err
	}
	return expectOne(recs, graph.ErrNodeNotFound, id)
}
