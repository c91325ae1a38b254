// Package concepts is the concept identity and aggregation engine.
//
// Writer resolves coordinates to concept nodes, inserts and merges batches of
// concepts with their taxonomic relationships, and records mappings and
// variants. Aggregates groups concepts into equivalence classes and assembles
// their properties. Every write runs inside one graph.Store transaction via
// executeWrite so a failing batch leaves no trace.
package concepts
