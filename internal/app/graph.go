package app

import (
	"context"
	"fmt"

	"github.com/yungbote/conceptdb/internal/data/graph/memgraph"
	"github.com/yungbote/conceptdb/internal/data/graph/neo4jgraph"
	"github.com/yungbote/conceptdb/internal/platform/neo4jdb"
)

func (a *App) openGraph(ctx context.Context) error {
	switch a.Cfg.Graph.Backend {
	case GraphBackendNeo4j:
		client, err := neo4jdb.New(ctx, a.Log, neo4jdb.Config{
			URI:         a.Cfg.Neo4j.URI,
			User:        a.Cfg.Neo4j.User,
			Password:    a.Cfg.Neo4j.Password,
			Database:    a.Cfg.Neo4j.Database,
			MaxPoolSize: a.Cfg.Neo4j.MaxPoolSize,
			Timeout:     a.Cfg.Neo4j.Timeout.Duration,
		})
		if err != nil {
			return err
		}
		store, err := neo4jgraph.New(client, a.Log)
		if err != nil {
			_ = client.Close(ctx)
			return err
		}
		store.EnsureSchema(ctx)
		a.Store = store
	default:
		store, err := memgraph.Open(a.Cfg.Graph.SnapshotPath)
		if err != nil {
			return fmt.Errorf("open graph snapshot %s: %w", a.Cfg.Graph.SnapshotPath, err)
		}
		nodes, edges := store.Stats()
		a.Log.Info("embedded graph opened", "snapshot", a.Cfg.Graph.SnapshotPath, "nodes", nodes, "edges", edges)
		a.memory = store
		a.Store = store
	}
	return nil
}
