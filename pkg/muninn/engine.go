// Package muninn wires the retrieval components into one engine.
//
// The Engine owns a graph store, the retrieval cache, and one instance of
// each retrieval component. Callers either invoke components through the
// typed convenience methods (Rank, MultiHop, Filter, Traverse, FindPaths)
// or submit a graph.GraphQuery to Query, the single dispatcher over query
// kinds.
//
// Example:
//
//	eng := muninn.New(store, muninn.Options{})
//
//	scored, err := eng.Rank(ctx, []graph.EntityID{"doc-1"}, 10)
//
//	res, err := eng.Query(ctx, graph.GraphQuery{
//		Kind:     graph.QueryTraversal,
//		EntityID: "doc-1",
//		MaxDepth: 2,
//	})
package muninn

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/orneryd/muninn/pkg/cache"
	"github.com/orneryd/muninn/pkg/config"
	"github.com/orneryd/muninn/pkg/graph"
	"github.com/orneryd/muninn/pkg/math/vector"
	"github.com/orneryd/muninn/pkg/metrics"
	"github.com/orneryd/muninn/pkg/plan"
	"github.com/orneryd/muninn/pkg/rank"
	"github.com/orneryd/muninn/pkg/retrieve"
	"github.com/orneryd/muninn/pkg/score"
	"github.com/orneryd/muninn/pkg/store"
	"github.com/orneryd/muninn/pkg/traverse"
)

// Options configures an Engine. Zero value uses config defaults and a no-op
// logger.
type Options struct {
	Config *config.Config
	Logger zerolog.Logger
}

// Engine is the retrieval and traversal engine facade.
//
// The engine holds no cross-call mutable state except the retrieval cache;
// all store reads run without engine locks, so queries from multiple
// goroutines proceed concurrently.
type Engine struct {
	store  store.Store
	cache  *cache.RetrievalCache
	cfg    *config.Config
	logger zerolog.Logger

	ranker    *rank.PageRanker
	multihop  *retrieve.MultiHop
	filtered  *retrieve.Filtered
	traverser *traverse.Traverser
	scorer    *score.PathScorer

	custom CustomHandler
}

// CustomHandler serves queries of kind QueryCustom. The handler receives the
// query's free-form Custom parameters via the full query value.
type CustomHandler func(ctx context.Context, q graph.GraphQuery) (*graph.GraphResult, error)

// SetCustomHandler installs the handler for custom queries. Without one,
// custom queries fail with graph.ErrUnsupportedQuery. Must be called before
// the engine serves queries.
func (e *Engine) SetCustomHandler(h CustomHandler) {
	e.custom = h
}

// The engine is the query runner behind plan execution.
var _ plan.QueryRunner = (*Engine)(nil)

// New creates an engine over the store.
func New(s store.Store, opts Options) *Engine {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	ranker := rank.NewPageRanker(s)
	ranker.Alpha = cfg.Rank.Alpha
	ranker.MaxIterations = cfg.Rank.MaxIterations
	ranker.Epsilon = cfg.Rank.Epsilon

	return &Engine{
		store:     s,
		cache:     cache.NewRetrievalCache(cfg.Cache.MaxSize, cfg.Cache.TTL),
		cfg:       cfg,
		logger:    opts.Logger,
		ranker:    ranker,
		multihop:  retrieve.NewMultiHop(s),
		filtered:  retrieve.NewFiltered(s, opts.Logger),
		traverser: traverse.NewTraverser(s),
		scorer:    score.NewPathScorer(opts.Logger),
	}
}

// Query dispatches a single graph query by kind.
//
// Not-found conditions degrade to empty results; only construction errors,
// store failures and unsupported kinds surface as errors. The result always
// carries TotalCount and ExecutionTime.
func (e *Engine) Query(ctx context.Context, q graph.GraphQuery) (*graph.GraphResult, error) {
	start := time.Now()
	done := metrics.TimeQuery(string(q.Kind))

	res, err := e.dispatch(ctx, q)
	done(err == nil)
	if err != nil {
		return nil, err
	}

	res.TotalCount = len(res.Entities) + len(res.Paths)
	res.ExecutionTime = time.Since(start)
	return res, nil
}

func (e *Engine) dispatch(ctx context.Context, q graph.GraphQuery) (*graph.GraphResult, error) {
	switch q.Kind {
	case graph.QueryEntityLookup:
		return e.entityLookup(ctx, q)
	case graph.QueryVectorSearch:
		return e.vectorSearch(ctx, q)
	case graph.QueryTraversal:
		return e.traversal(ctx, q)
	case graph.QueryPathFinding:
		return e.pathFinding(ctx, q)
	case graph.QuerySubgraph:
		return e.subgraph(ctx, q)
	case graph.QueryFiltered:
		return e.filteredQuery(ctx, q)
	case graph.QueryCustom:
		if e.custom == nil {
			return nil, fmt.Errorf("%w: no custom handler installed", graph.ErrUnsupportedQuery)
		}
		return e.custom(ctx, q)
	default:
		return nil, fmt.Errorf("%w: kind %q", graph.ErrUnsupportedQuery, q.Kind)
	}
}

func (e *Engine) entityLookup(ctx context.Context, q graph.GraphQuery) (*graph.GraphResult, error) {
	entity, err := e.store.GetEntity(ctx, q.EntityID)
	if errors.Is(err, graph.ErrNotFound) {
		return &graph.GraphResult{Entities: []*graph.Entity{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &graph.GraphResult{
		Entities: []*graph.Entity{entity},
		Scores:   []float64{1.0},
	}, nil
}

// vectorSearch scans entity embeddings for cosine similarity against the
// query vector. Requires a store implementing store.Scanner.
func (e *Engine) vectorSearch(ctx context.Context, q graph.GraphQuery) (*graph.GraphResult, error) {
	scanner, ok := e.store.(store.Scanner)
	if !ok {
		return nil, fmt.Errorf("%w: store cannot enumerate entities for vector search", graph.ErrUnsupportedQuery)
	}
	if len(q.Embedding) == 0 {
		return &graph.GraphResult{Entities: []*graph.Entity{}}, nil
	}

	entities, err := scanner.ScanEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	scored := make([]graph.ScoredEntity, 0)
	for _, entity := range entities {
		if len(entity.Embedding) == 0 {
			continue
		}
		sim := vector.CosineSimilarity(q.Embedding, entity.Embedding)
		if sim < q.ScoreThreshold {
			continue
		}
		scored = append(scored, graph.ScoredEntity{Entity: entity, Score: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if q.MaxResults > 0 && len(scored) > q.MaxResults {
		scored = scored[:q.MaxResults]
	}
	return scoredResult(scored), nil
}

func (e *Engine) traversal(ctx context.Context, q graph.GraphQuery) (*graph.GraphResult, error) {
	pattern := e.effectivePattern(q)
	paths, err := e.traverser.TraverseWithPattern(ctx, q.EntityID, pattern, q.MaxResults)
	if err != nil {
		return nil, err
	}
	return &graph.GraphResult{Paths: e.rankTraversal(paths, q)}, nil
}

func (e *Engine) pathFinding(ctx context.Context, q graph.GraphQuery) (*graph.GraphResult, error) {
	pattern := e.effectivePattern(q)
	paths, err := e.traverser.FindAllPathsBetween(ctx, q.EntityID, q.TargetID, pattern, q.MaxResults)
	if err != nil {
		return nil, err
	}
	return &graph.GraphResult{Paths: e.rankTraversal(paths, q)}, nil
}

func (e *Engine) filteredQuery(ctx context.Context, q graph.GraphQuery) (*graph.GraphResult, error) {
	scored, err := e.filtered.Retrieve(ctx, retrieve.FilterOptions{
		EntityType:      q.EntityType,
		PropertyFilters: q.PropertyFilters,
		MaxResults:      q.MaxResults,
	})
	if err != nil {
		return nil, err
	}
	return scoredResult(scored), nil
}

// subgraph collects every entity and relation within MaxDepth hops of the
// seed, following edges in both directions.
func (e *Engine) subgraph(ctx context.Context, q graph.GraphQuery) (*graph.GraphResult, error) {
	depth := q.MaxDepth
	if depth <= 0 {
		depth = e.cfg.Traversal.MaxDepth
	}

	seed, err := e.store.GetEntity(ctx, q.EntityID)
	if errors.Is(err, graph.ErrNotFound) {
		return &graph.GraphResult{Entities: []*graph.Entity{}}, nil
	}
	if err != nil {
		return nil, err
	}

	entities := []*graph.Entity{seed}
	seen := map[graph.EntityID]struct{}{seed.ID: {}}
	var relations []*graph.Relation
	seenRels := map[string]struct{}{}

	frontier := []graph.EntityID{seed.ID}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []graph.EntityID
		for _, id := range frontier {
			rels, err := e.store.GetRelations(ctx, id, graph.Both)
			if err != nil {
				return nil, fmt.Errorf("subgraph: relations for %s: %w", id, err)
			}
			for _, rel := range rels {
				if _, ok := seenRels[rel.ID]; ok {
					continue
				}
				seenRels[rel.ID] = struct{}{}
				relations = append(relations, rel)

				for _, nid := range []graph.EntityID{rel.Source, rel.Target} {
					if _, ok := seen[nid]; ok {
						continue
					}
					neighbor, err := e.store.GetEntity(ctx, nid)
					if err != nil {
						continue // dangling endpoint
					}
					seen[nid] = struct{}{}
					entities = append(entities, neighbor)
					next = append(next, nid)
				}
			}
		}
		frontier = next
	}

	return &graph.GraphResult{Entities: entities, Relations: relations}, nil
}

// effectivePattern returns the query's pattern, or one bounded by the
// query's MaxDepth (falling back to the configured default).
func (e *Engine) effectivePattern(q graph.GraphQuery) *graph.PathPattern {
	if q.Pattern != nil {
		return q.Pattern
	}
	depth := q.MaxDepth
	if depth <= 0 {
		depth = e.cfg.Traversal.MaxDepth
	}
	return &graph.PathPattern{MaxDepth: depth}
}

// rankTraversal scores discovered paths by inverse length and ranks them.
func (e *Engine) rankTraversal(paths []*graph.Path, q graph.GraphQuery) []*graph.Path {
	e.scorer.ScoreByLength(paths, true)
	return e.scorer.RankPaths(paths, q.MaxResults, q.ScoreThreshold)
}

func scoredResult(scored []graph.ScoredEntity) *graph.GraphResult {
	res := &graph.GraphResult{
		Entities: make([]*graph.Entity, 0, len(scored)),
		Scores:   make([]float64, 0, len(scored)),
	}
	for _, se := range scored {
		res.Entities = append(res.Entities, se.Entity)
		res.Scores = append(res.Scores, se.Score)
	}
	return res
}
