// Package graph defines the data model for the Muninn retrieval engine.
//
// Muninn operates on a labeled property graph of typed entities connected by
// typed, weighted relations. The engine never owns entity lifecycle: entities
// are borrowed from a store (see pkg/store) for the duration of a query and
// referenced by id everywhere else.
//
// Example:
//
//	alice := &graph.Entity{
//		ID:   "person-alice",
//		Type: "Person",
//		Properties: map[string]any{
//			"name": "Alice",
//			"role": "Engineer",
//		},
//	}
//
//	knows, err := graph.NewRelation("knows-1", "KNOWS", "person-alice", "person-bob", 0.9)
//	if err != nil {
//		log.Fatal(err)
//	}
package graph

import (
	"errors"
	"fmt"
	"time"
)

// Common errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRelation  = errors.New("invalid relation")
	ErrInvalidPath      = errors.New("invalid path")
	ErrStoreClosed      = errors.New("store closed")
	ErrUnsupportedQuery = errors.New("unsupported query kind")
)

// EntityID is a strongly-typed unique identifier for graph entities.
//
// A custom type keeps entity and relation ids from being mixed up and makes
// the traversal APIs self-describing.
type EntityID string

// Entity represents a typed node in the knowledge graph.
//
// Fields:
//   - ID: unique identifier (must be unique across all entities)
//   - Type: entity type tag, e.g. "Person", "Concept", "Document"
//   - Properties: key-value data (order-irrelevant)
//   - Embedding: optional fixed-length vector for semantic similarity
//   - Provenance: optional tag recording where the entity came from
//   - CreatedAt/UpdatedAt: lifecycle timestamps maintained by SetProperty
type Entity struct {
	ID         EntityID       `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Embedding  []float32      `json:"embedding,omitempty"`
	Provenance string         `json:"provenance,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at,omitempty"`
}

// SetProperty sets a property value and bumps the update timestamp.
func (e *Entity) SetProperty(key string, value any) {
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	e.Properties[key] = value
	e.UpdatedAt = time.Now()
}

// Property returns a property value and whether it exists.
func (e *Entity) Property(key string) (any, bool) {
	v, ok := e.Properties[key]
	return v, ok
}

// ReversedSuffix marks a relation type as a direction inversion produced by
// Relation.Reverse.
const ReversedSuffix = "_reversed"

// Relation represents a directed, typed, weighted edge between two entities.
//
// Weight must lie in [0.0, 1.0]. Source and target ids must be non-empty.
// Use NewRelation to get construction validation; a Relation built by hand
// can be checked with Validate.
type Relation struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Source     EntityID       `json:"source"`
	Target     EntityID       `json:"target"`
	Properties map[string]any `json:"properties,omitempty"`
	Weight     float64        `json:"weight"`
	Provenance string         `json:"provenance,omitempty"`
}

// NewRelation constructs a validated relation.
//
// Returns ErrInvalidRelation if either endpoint id is empty or the weight is
// outside [0.0, 1.0].
func NewRelation(id, relType string, source, target EntityID, weight float64) (*Relation, error) {
	r := &Relation{
		ID:     id,
		Type:   relType,
		Source: source,
		Target: target,
		Weight: weight,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the relation's construction invariants.
func (r *Relation) Validate() error {
	if r.Source == "" || r.Target == "" {
		return fmt.Errorf("%w: source and target ids must be non-empty", ErrInvalidRelation)
	}
	if r.Weight < 0.0 || r.Weight > 1.0 {
		return fmt.Errorf("%w: weight %v outside [0.0, 1.0]", ErrInvalidRelation, r.Weight)
	}
	return nil
}

// Reverse returns a new relation with swapped endpoints and the type suffixed
// to mark the direction inversion. The original is not modified; properties
// are shared, not copied.
func (r *Relation) Reverse() *Relation {
	return &Relation{
		ID:         r.ID + ReversedSuffix,
		Type:       r.Type + ReversedSuffix,
		Source:     r.Target,
		Target:     r.Source,
		Properties: r.Properties,
		Weight:     r.Weight,
		Provenance: r.Provenance,
	}
}

// ScoredEntity pairs an entity with a relevance score. Ranking and retrieval
// components return these sorted descending by score.
type ScoredEntity struct {
	Entity *Entity `json:"entity"`
	Score  float64 `json:"score"`
}
