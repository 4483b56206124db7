package muninn

import (
	"context"
	"fmt"
	"sort"

	"github.com/orneryd/muninn/pkg/cache"
	"github.com/orneryd/muninn/pkg/graph"
	"github.com/orneryd/muninn/pkg/retrieve"
	"github.com/orneryd/muninn/pkg/score"
	"github.com/orneryd/muninn/pkg/store"
)

// Rank computes personalized relevance scores from the seeds, memoized
// through the retrieval cache. Seed order does not affect the cache key.
func (e *Engine) Rank(ctx context.Context, seeds []graph.EntityID, maxResults int) ([]graph.ScoredEntity, error) {
	kwargs := cache.Kwargs{
		"op":    "rank",
		"seeds": canonicalSeeds(seeds),
		"max":   maxResults,
		"alpha": e.ranker.Alpha,
	}
	v, err := e.cache.GetOrCompute(ctx, kwargs, func(ctx context.Context) (any, error) {
		return e.ranker.Rank(ctx, seeds, maxResults)
	})
	if err != nil {
		return nil, err
	}
	return v.([]graph.ScoredEntity), nil
}

// MultiHop expands breadth-first from the seeds with per-hop decay,
// memoized through the retrieval cache.
func (e *Engine) MultiHop(ctx context.Context, seeds []graph.EntityID, opts retrieve.MultiHopOptions) ([]graph.ScoredEntity, error) {
	if opts.ScoreDecay == 0 {
		opts.ScoreDecay = e.cfg.Retrieval.ScoreDecay
	}
	kwargs := cache.Kwargs{
		"op":       "multihop",
		"seeds":    canonicalSeeds(seeds),
		"hops":     opts.MaxHops,
		"max":      opts.MaxResults,
		"decay":    opts.ScoreDecay,
		"incl":     opts.IncludeSeeds,
		"reltypes": fmt.Sprintf("%v", opts.RelationTypes),
	}
	v, err := e.cache.GetOrCompute(ctx, kwargs, func(ctx context.Context) (any, error) {
		return e.multihop.Retrieve(ctx, seeds, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.([]graph.ScoredEntity), nil
}

// Filter selects entities of a type by property constraints. Not memoized:
// caller predicates aren't canonicalizable into a cache key.
func (e *Engine) Filter(ctx context.Context, opts retrieve.FilterOptions) ([]graph.ScoredEntity, error) {
	return e.filtered.Retrieve(ctx, opts)
}

// Traverse enumerates paths from startID matching the pattern.
func (e *Engine) Traverse(ctx context.Context, startID graph.EntityID, pattern *graph.PathPattern, maxResults int) ([]*graph.Path, error) {
	return e.traverser.TraverseWithPattern(ctx, startID, pattern, maxResults)
}

// FindPaths enumerates paths from sourceID ending at targetID.
func (e *Engine) FindPaths(ctx context.Context, sourceID, targetID graph.EntityID, pattern *graph.PathPattern, maxPaths int) ([]*graph.Path, error) {
	return e.traverser.FindAllPathsBetween(ctx, sourceID, targetID, pattern, maxPaths)
}

// Scorer exposes the path scorer for callers that post-process paths.
func (e *Engine) Scorer() *score.PathScorer {
	return e.scorer
}

// CacheStats returns retrieval-cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.GetStats()
}

// ClearCache drops all memoized retrievals, e.g. after the underlying graph
// changes.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// Store returns the underlying graph store.
func (e *Engine) Store() store.Store {
	return e.store
}

// canonicalSeeds renders seeds order-independently for cache keys.
func canonicalSeeds(seeds []graph.EntityID) string {
	ids := make([]string, 0, len(seeds))
	for _, s := range seeds {
		ids = append(ids, string(s))
	}
	sort.Strings(ids)
	return fmt.Sprintf("%v", ids)
}
