// Package neo4jgraph implements graph.Store on a Neo4j database. Node and
// edge ids are Neo4j element ids.
package neo4jgraph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/conceptdb/internal/data/graph"
	"github.com/yungbote/conceptdb/internal/platform/logger"
	"github.com/yungbote/conceptdb/internal/platform/neo4jdb"
)

type Store struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

var _ graph.Store = (*Store)(nil)

func New(client *neo4jdb.Client, log *logger.Logger) (*Store, error) {
	if client == nil || client.Driver == nil {
		return nil, fmt.Errorf("neo4jgraph: client required")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{client: client, log: log.With("store", "Neo4jGraph")}, nil
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.client.Database,
	})
}

// InTx runs fn in a managed write transaction. The driver retries transient
// failures by invoking fn again.
func (s *Store) InTx(ctx context.Context, fn func(tx graph.Tx) error) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&tx{tx: mtx, writable: true})
	})
	return err
}

func (s *Store) View(ctx context.Context, fn func(tx graph.Tx) error) error {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	_, err := session.ExecuteRead(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&tx{tx: mtx})
	})
	return err
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

var schemaStatements = []string{
	"CREATE INDEX concept_id_idx IF NOT EXISTS FOR (n:CONCEPT) ON (n.id)",
	"CREATE INDEX concept_entity_original_idx IF NOT EXISTS FOR (n:CONCEPT_ENTITY) ON (n.originalId)",
	"CREATE INDEX concept_entity_pref_name_idx IF NOT EXISTS FOR (n:CONCEPT_ENTITY) ON (n.preferredName)",
	"CREATE INDEX aggregate_id_idx IF NOT EXISTS FOR (n:AGGREGATE) ON (n.id)",
	"CREATE INDEX facet_id_idx IF NOT EXISTS FOR (n:FACET) ON (n.id)",
	"CREATE INDEX facet_group_name_idx IF NOT EXISTS FOR (n:FACET_GROUP) ON (n.name)",
}

// EnsureSchema creates lookup indexes. Failures are logged and skipped since
// restricted users may not be allowed to manage schema.
func (s *Store) EnsureSchema(ctx context.Context) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	for _, stmt := range schemaStatements {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			s.log.Warn("neo4j schema init failed (continuing)", "statement", stmt, "error", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
}
