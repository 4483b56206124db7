// Package store provides the graph store surface consumed by the Muninn
// retrieval engine, plus reference implementations.
//
// The engine reads the graph through the narrow Store interface: entity
// lookup, existence checks, neighbor enumeration and type-scoped entity
// enumeration. Writes, schema and migration belong to whatever system owns
// the graph; the Writer interface exists so the bundled implementations and
// the JSON import tooling can populate a store for tests and the CLI.
//
// Implementations:
//   - MemoryStore: thread-safe in-memory store with adjacency and type indexes
//   - BadgerStore: persistent store on badger/v4
//
// Example:
//
//	s := store.NewMemoryStore()
//	defer s.Close()
//
//	s.CreateEntity(ctx, &graph.Entity{ID: "e1", Type: "Person"})
//	s.CreateEntity(ctx, &graph.Entity{ID: "e2", Type: "Person"})
//	rel, _ := graph.NewRelation("r1", "KNOWS", "e1", "e2", 1.0)
//	s.CreateRelation(ctx, rel)
//
//	out, _ := s.GetRelations(ctx, "e1", graph.Outgoing)
//	fmt.Println(len(out)) // 1
package store

import (
	"context"

	"github.com/orneryd/muninn/pkg/graph"
)

// Store is the read surface the retrieval engine depends on.
//
// Implementations must be safe for concurrent readers. Returned entities and
// relations are borrowed: callers treat them as read-only for the duration of
// a query and never hold direct references between them, always re-resolving
// by id.
type Store interface {
	// GetEntity returns the entity or an error wrapping graph.ErrNotFound.
	GetEntity(ctx context.Context, id graph.EntityID) (*graph.Entity, error)

	// HasEntity reports whether the entity exists.
	HasEntity(ctx context.Context, id graph.EntityID) (bool, error)

	// GetRelations enumerates relations touching the entity. Outgoing
	// returns relations whose source is id, Incoming those whose target is
	// id, Both returns the union (outgoing first).
	GetRelations(ctx context.Context, id graph.EntityID, dir graph.Direction) ([]*graph.Relation, error)

	// EntitiesByType enumerates all entities of the given type.
	EntitiesByType(ctx context.Context, entityType string) ([]*graph.Entity, error)
}

// Writer is the optional write surface implemented by the bundled stores.
type Writer interface {
	CreateEntity(ctx context.Context, e *graph.Entity) error
	CreateRelation(ctx context.Context, r *graph.Relation) error
}

// Scanner is the optional full-enumeration surface. Vector search needs it;
// stores that cannot enumerate simply don't implement it and vector queries
// against them fail with graph.ErrUnsupportedQuery.
type Scanner interface {
	ScanEntities(ctx context.Context) ([]*graph.Entity, error)
}
