package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/orneryd/muninn/pkg/graph"
)

// MemoryStore is a thread-safe in-memory graph store.
//
// Use cases:
//   - Unit testing (no disk I/O, fast cleanup)
//   - Loading JSON exports into memory for analysis
//   - Small graphs that fit entirely in RAM
//
// Lookup by id is O(1); relation enumeration is O(degree); type enumeration
// is O(k) for k entities of that type. All public methods are safe for
// concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	entities  map[graph.EntityID]*graph.Entity
	relations map[string]*graph.Relation

	byType   map[string]map[graph.EntityID]struct{}
	outgoing map[graph.EntityID]map[string]struct{}
	incoming map[graph.EntityID]map[string]struct{}

	closed bool
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Writer  = (*MemoryStore)(nil)
	_ Scanner = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:  make(map[graph.EntityID]*graph.Entity),
		relations: make(map[string]*graph.Relation),
		byType:    make(map[string]map[graph.EntityID]struct{}),
		outgoing:  make(map[graph.EntityID]map[string]struct{}),
		incoming:  make(map[graph.EntityID]map[string]struct{}),
	}
}

// CreateEntity adds an entity. The id must not already exist.
func (s *MemoryStore) CreateEntity(_ context.Context, e *graph.Entity) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("%w: entity id must be non-empty", graph.ErrInvalidRelation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return graph.ErrStoreClosed
	}
	if _, ok := s.entities[e.ID]; ok {
		return fmt.Errorf("entity %s: already exists", e.ID)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.entities[e.ID] = e
	if e.Type != "" {
		if s.byType[e.Type] == nil {
			s.byType[e.Type] = make(map[graph.EntityID]struct{})
		}
		s.byType[e.Type][e.ID] = struct{}{}
	}
	return nil
}

// CreateRelation adds a relation after validating it. Both endpoints must
// already exist in the store.
func (s *MemoryStore) CreateRelation(_ context.Context, r *graph.Relation) error {
	if r == nil {
		return fmt.Errorf("%w: nil relation", graph.ErrInvalidRelation)
	}
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return graph.ErrStoreClosed
	}
	if _, ok := s.entities[r.Source]; !ok {
		return fmt.Errorf("relation %s: source %s: %w", r.ID, r.Source, graph.ErrNotFound)
	}
	if _, ok := s.entities[r.Target]; !ok {
		return fmt.Errorf("relation %s: target %s: %w", r.ID, r.Target, graph.ErrNotFound)
	}
	s.relations[r.ID] = r
	if s.outgoing[r.Source] == nil {
		s.outgoing[r.Source] = make(map[string]struct{})
	}
	s.outgoing[r.Source][r.ID] = struct{}{}
	if s.incoming[r.Target] == nil {
		s.incoming[r.Target] = make(map[string]struct{})
	}
	s.incoming[r.Target][r.ID] = struct{}{}
	return nil
}

// GetEntity returns the entity or an error wrapping graph.ErrNotFound.
func (s *MemoryStore) GetEntity(_ context.Context, id graph.EntityID) (*graph.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, graph.ErrStoreClosed
	}
	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, graph.ErrNotFound)
	}
	return e, nil
}

// HasEntity reports whether the entity exists.
func (s *MemoryStore) HasEntity(_ context.Context, id graph.EntityID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, graph.ErrStoreClosed
	}
	_, ok := s.entities[id]
	return ok, nil
}

// GetRelations enumerates relations touching the entity in the given
// direction. For Both, outgoing relations come first.
func (s *MemoryStore) GetRelations(_ context.Context, id graph.EntityID, dir graph.Direction) ([]*graph.Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, graph.ErrStoreClosed
	}

	var rels []*graph.Relation
	if dir == graph.Outgoing || dir == graph.Both {
		for relID := range s.outgoing[id] {
			rels = append(rels, s.relations[relID])
		}
	}
	if dir == graph.Incoming || dir == graph.Both {
		for relID := range s.incoming[id] {
			rels = append(rels, s.relations[relID])
		}
	}
	return rels, nil
}

// EntitiesByType enumerates all entities of the given type.
func (s *MemoryStore) EntitiesByType(_ context.Context, entityType string) ([]*graph.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, graph.ErrStoreClosed
	}
	ids := s.byType[entityType]
	entities := make([]*graph.Entity, 0, len(ids))
	for id := range ids {
		entities = append(entities, s.entities[id])
	}
	return entities, nil
}

// EntityCount returns the number of stored entities.
func (s *MemoryStore) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// RelationCount returns the number of stored relations.
func (s *MemoryStore) RelationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.relations)
}

// AllEntities returns every stored entity. Used by export.
func (s *MemoryStore) AllEntities() []*graph.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entities := make([]*graph.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		entities = append(entities, e)
	}
	return entities
}

// AllRelations returns every stored relation. Used by export.
func (s *MemoryStore) AllRelations() []*graph.Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rels := make([]*graph.Relation, 0, len(s.relations))
	for _, r := range s.relations {
		rels = append(rels, r)
	}
	return rels
}

// ScanEntities returns every stored entity. Used by vector search.
func (s *MemoryStore) ScanEntities(_ context.Context) ([]*graph.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, graph.ErrStoreClosed
	}
	entities := make([]*graph.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		entities = append(entities, e)
	}
	return entities, nil
}

// Close marks the store closed. Subsequent calls fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
