// Package traverse implements pattern-constrained path enumeration over the
// graph store.
//
// A traversal walks depth-first from a start entity, honoring a
// graph.PathPattern: depth bounds, entity-type and exclusion constraints,
// relation-type allow-lists and positional sequences, direction, and cycle
// control. Discovered paths satisfy the Path chaining invariant; edges
// walked against their stored direction appear reversed via
// Relation.Reverse.
package traverse

import (
	"context"
	"fmt"

	"github.com/orneryd/muninn/pkg/graph"
	"github.com/orneryd/muninn/pkg/store"
)

// Traverser enumerates paths matching a pattern.
type Traverser struct {
	store store.Store
}

// NewTraverser creates a traverser over the store.
func NewTraverser(s store.Store) *Traverser {
	return &Traverser{store: s}
}

// TraverseWithPattern performs depth-limited search from startID.
//
// A missing start entity, or a start entity that itself violates the
// pattern's type or exclusion constraints, yields an empty list. Branches
// stop expanding at MaxDepth; paths shorter than MinPathLength are dropped
// from the output even though they were valid intermediate states.
// maxResults <= 0 means unlimited.
func (t *Traverser) TraverseWithPattern(ctx context.Context, startID graph.EntityID, pattern *graph.PathPattern, maxResults int) ([]*graph.Path, error) {
	if pattern == nil {
		pattern = &graph.PathPattern{MaxDepth: 1}
	}

	start, err := t.store.GetEntity(ctx, startID)
	if err != nil {
		// Missing start entities are not fatal; they degrade to no paths.
		return []*graph.Path{}, nil
	}
	if !pattern.AllowsEntity(start) {
		return []*graph.Path{}, nil
	}

	w := &walk{
		traverser:  t,
		pattern:    pattern,
		maxResults: maxResults,
		onPath:     map[graph.EntityID]int{startID: 1},
	}
	if err := w.expand(ctx, []*graph.Entity{start}, nil); err != nil {
		return nil, err
	}
	return w.found, nil
}

// FindAllPathsBetween returns paths from sourceID that end at targetID,
// capped at maxPaths (<= 0 means unlimited). A missing endpoint yields an
// empty list without traversal.
func (t *Traverser) FindAllPathsBetween(ctx context.Context, sourceID, targetID graph.EntityID, pattern *graph.PathPattern, maxPaths int) ([]*graph.Path, error) {
	for _, id := range []graph.EntityID{sourceID, targetID} {
		ok, err := t.store.HasEntity(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("traverse: existence check for %s: %w", id, err)
		}
		if !ok {
			return []*graph.Path{}, nil
		}
	}

	candidates, err := t.TraverseWithPattern(ctx, sourceID, pattern, 0)
	if err != nil {
		return nil, err
	}

	paths := make([]*graph.Path, 0)
	for _, p := range candidates {
		if end := p.EndNode(); end != nil && end.ID == targetID {
			paths = append(paths, p)
			if maxPaths > 0 && len(paths) >= maxPaths {
				break
			}
		}
	}
	return paths, nil
}

// DetectCycles reports whether any entity id appears more than once among
// the path's nodes.
func DetectCycles(p *graph.Path) bool {
	return p.HasCycle()
}

// FilterPathsWithoutCycles removes cyclic paths.
func FilterPathsWithoutCycles(paths []*graph.Path) []*graph.Path {
	acyclic := make([]*graph.Path, 0, len(paths))
	for _, p := range paths {
		if !p.HasCycle() {
			acyclic = append(acyclic, p)
		}
	}
	return acyclic
}

// walk carries the mutable state of one traversal.
type walk struct {
	traverser  *Traverser
	pattern    *graph.PathPattern
	maxResults int

	// onPath counts occurrences of each id on the current branch, for
	// cycle rejection when AllowCycles is unset.
	onPath map[graph.EntityID]int
	found  []*graph.Path
}

func (w *walk) full() bool {
	return w.maxResults > 0 && len(w.found) >= w.maxResults
}

// expand records the current state as a path (if long enough) and recurses
// into admissible neighbors.
func (w *walk) expand(ctx context.Context, nodes []*graph.Entity, edges []*graph.Relation) error {
	if w.full() {
		return nil
	}

	depth := len(edges)
	if depth >= w.pattern.MinPathLength {
		path, err := graph.NewPath(append([]*graph.Entity{}, nodes...), append([]*graph.Relation{}, edges...))
		if err != nil {
			return fmt.Errorf("traverse: %w", err)
		}
		w.found = append(w.found, path)
		if w.full() {
			return nil
		}
	}

	if depth >= w.pattern.MaxDepth {
		return nil
	}

	current := nodes[len(nodes)-1]
	rels, err := w.traverser.store.GetRelations(ctx, current.ID, w.pattern.Direction)
	if err != nil {
		return fmt.Errorf("traverse: relations for %s: %w", current.ID, err)
	}

	for _, rel := range rels {
		if !w.pattern.AllowsRelationAt(rel.Type, depth) {
			continue
		}

		// Forward lookup first; an edge whose target is the current
		// entity is walked against its direction and enters the path
		// reversed.
		edge := rel
		neighborID := rel.Target
		if rel.Source != current.ID {
			if rel.Target != current.ID {
				continue
			}
			edge = rel.Reverse()
			neighborID = rel.Source
		}

		if !w.pattern.AllowCycles && w.onPath[neighborID] > 0 {
			continue
		}

		neighbor, err := w.traverser.store.GetEntity(ctx, neighborID)
		if err != nil {
			continue // dangling relation endpoint
		}
		if !w.pattern.AllowsEntity(neighbor) {
			continue
		}

		w.onPath[neighborID]++
		err = w.expand(ctx, append(nodes, neighbor), append(edges, edge))
		w.onPath[neighborID]--
		if err != nil {
			return err
		}
		if w.full() {
			return nil
		}
	}
	return nil
}
