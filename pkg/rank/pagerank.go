// Package rank implements personalized importance propagation over the graph
// store.
//
// The ranker runs a PageRank-style iteration restarted onto a seed set:
// every iteration re-injects alpha mass uniformly over the seeds and spreads
// the remaining (1-alpha) mass along outgoing relations. Entities reachable
// from the seeds accumulate score; everything with strictly positive score
// is returned, sorted descending.
package rank

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/orneryd/muninn/pkg/graph"
	"github.com/orneryd/muninn/pkg/store"
)

// Defaults for PageRanker options.
const (
	DefaultAlpha         = 0.15
	DefaultMaxIterations = 20
	DefaultEpsilon       = 1e-6
)

// PageRanker computes personalized relevance scores from seed entities.
//
// Alpha is the restart probability (mass re-injected onto the seeds every
// iteration), MaxIterations caps the loop, and Epsilon is the L1 convergence
// threshold.
type PageRanker struct {
	store store.Store

	Alpha         float64
	MaxIterations int
	Epsilon       float64
}

// NewPageRanker creates a ranker with default parameters.
func NewPageRanker(s store.Store) *PageRanker {
	return &PageRanker{
		store:         s,
		Alpha:         DefaultAlpha,
		MaxIterations: DefaultMaxIterations,
		Epsilon:       DefaultEpsilon,
	}
}

// Rank propagates relevance mass from the seeds and returns entities with
// strictly positive score, sorted descending, capped at maxResults
// (maxResults <= 0 means unlimited).
//
// An empty seed list returns an empty result without touching the store.
// Seeds missing from the store still receive restart mass; if a seed is
// isolated (no neighbors at all) it appears in the result with positive
// score. Entities with no outgoing relations retain their mass in place
// rather than leaking it.
func (p *PageRanker) Rank(ctx context.Context, seeds []graph.EntityID, maxResults int) ([]graph.ScoredEntity, error) {
	if len(seeds) == 0 {
		return []graph.ScoredEntity{}, nil
	}

	seedMass := 1.0 / float64(len(seeds))
	scores := make(map[graph.EntityID]float64, len(seeds))
	for _, s := range seeds {
		scores[s] += seedMass
	}

	outgoing := make(map[graph.EntityID][]*graph.Relation) // memoized neighbor lists

	for iter := 0; iter < p.MaxIterations; iter++ {
		next := make(map[graph.EntityID]float64, len(scores))

		// Restart: alpha mass back onto the seed set.
		for _, s := range seeds {
			next[s] += p.Alpha * seedMass
		}

		for id, mass := range scores {
			rels, ok := outgoing[id]
			if !ok {
				var err error
				rels, err = p.store.GetRelations(ctx, id, graph.Outgoing)
				if err != nil {
					return nil, fmt.Errorf("rank: relations for %s: %w", id, err)
				}
				outgoing[id] = rels
			}

			spread := (1.0 - p.Alpha) * mass
			if len(rels) == 0 {
				// Dangling entity keeps its mass in place.
				next[id] += spread
				continue
			}
			share := spread / float64(len(rels))
			for _, rel := range rels {
				next[rel.Target] += share
			}
		}

		if l1Delta(scores, next) < p.Epsilon {
			scores = next
			break
		}
		scores = next
	}

	return p.collect(ctx, scores, maxResults)
}

// collect resolves positive-score ids to entities and sorts descending.
func (p *PageRanker) collect(ctx context.Context, scores map[graph.EntityID]float64, maxResults int) ([]graph.ScoredEntity, error) {
	results := make([]graph.ScoredEntity, 0, len(scores))
	for id, score := range scores {
		if score <= 0 {
			continue
		}
		entity, err := p.store.GetEntity(ctx, id)
		if err != nil {
			// Ids that don't resolve degrade silently; the mass they
			// carried is simply not reportable.
			continue
		}
		results = append(results, graph.ScoredEntity{Entity: entity, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func l1Delta(prev, next map[graph.EntityID]float64) float64 {
	delta := 0.0
	for id, v := range next {
		delta += math.Abs(v - prev[id])
	}
	for id, v := range prev {
		if _, ok := next[id]; !ok {
			delta += math.Abs(v)
		}
	}
	return delta
}
