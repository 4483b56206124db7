// Package retrieve implements seed-based and filter-based entity retrieval.
//
// MultiHop performs bounded breadth-first expansion from seed entities with
// per-hop score decay; Filtered selects entities of a type by property
// constraints and caller predicates.
package retrieve

import (
	"context"
	"fmt"
	"sort"

	"github.com/orneryd/muninn/pkg/graph"
	"github.com/orneryd/muninn/pkg/store"
)

// DefaultScoreDecay is the per-hop multiplicative attenuation.
const DefaultScoreDecay = 0.7

// MultiHopOptions configures a multi-hop retrieval.
type MultiHopOptions struct {
	// MaxHops bounds the expansion; 0 returns only the seeds.
	MaxHops int
	// MaxResults truncates the ranked output (<= 0 means unlimited).
	MaxResults int
	// ScoreDecay is multiplied into a child's score per hop. Zero value is
	// replaced with DefaultScoreDecay.
	ScoreDecay float64
	// IncludeSeeds controls whether seeds appear in the output. Seeds are
	// always expanded for neighbor discovery either way.
	IncludeSeeds bool
	// RelationTypes, when non-empty, is an allow-list of relation types to
	// expand through.
	RelationTypes []string
}

// MultiHop performs bounded breadth-first expansion from seeds.
type MultiHop struct {
	store store.Store
}

// NewMultiHop creates a multi-hop retriever over the store.
func NewMultiHop(s store.Store) *MultiHop {
	return &MultiHop{store: s}
}

// Retrieve expands breadth-first from the seeds.
//
// Each seed starts with score 1.0; each hop multiplies the parent's score by
// the decay factor. An entity is visited at most once: the first-discovered
// hop wins and the entity is never re-expanded through a longer path, so
// the output never contains duplicate ids even with overlapping seeds.
// Results are sorted descending by score and truncated to MaxResults.
func (m *MultiHop) Retrieve(ctx context.Context, seeds []graph.EntityID, opts MultiHopOptions) ([]graph.ScoredEntity, error) {
	decay := opts.ScoreDecay
	if decay == 0 {
		decay = DefaultScoreDecay
	}

	type frontierItem struct {
		id    graph.EntityID
		score float64
	}

	visited := make(map[graph.EntityID]float64, len(seeds))
	seedSet := make(map[graph.EntityID]struct{}, len(seeds))
	frontier := make([]frontierItem, 0, len(seeds))
	for _, s := range seeds {
		if _, ok := visited[s]; ok {
			continue
		}
		visited[s] = 1.0
		seedSet[s] = struct{}{}
		frontier = append(frontier, frontierItem{id: s, score: 1.0})
	}

	for hop := 0; hop < opts.MaxHops && len(frontier) > 0; hop++ {
		var next []frontierItem
		for _, item := range frontier {
			rels, err := m.store.GetRelations(ctx, item.id, graph.Outgoing)
			if err != nil {
				return nil, fmt.Errorf("multihop: relations for %s: %w", item.id, err)
			}
			childScore := item.score * decay
			for _, rel := range rels {
				if !m.relationAllowed(rel.Type, opts.RelationTypes) {
					continue
				}
				if _, seen := visited[rel.Target]; seen {
					continue
				}
				visited[rel.Target] = childScore
				next = append(next, frontierItem{id: rel.Target, score: childScore})
			}
		}
		frontier = next
	}

	results := make([]graph.ScoredEntity, 0, len(visited))
	for id, score := range visited {
		if !opts.IncludeSeeds {
			if _, isSeed := seedSet[id]; isSeed {
				continue
			}
		}
		entity, err := m.store.GetEntity(ctx, id)
		if err != nil {
			continue // missing entities degrade to absence
		}
		results = append(results, graph.ScoredEntity{Entity: entity, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results, nil
}

func (m *MultiHop) relationAllowed(relType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, t := range allowed {
		if relType == t {
			return true
		}
	}
	return false
}
