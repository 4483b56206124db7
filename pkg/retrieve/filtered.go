package retrieve

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/rs/zerolog"

	"github.com/orneryd/muninn/pkg/graph"
	"github.com/orneryd/muninn/pkg/store"
)

// Predicate is a caller-supplied filter. A predicate that panics does not
// abort the scan: the offending entity is skipped and scanning continues.
type Predicate func(*graph.Entity) bool

// FilterOptions configures a filtered retrieval.
type FilterOptions struct {
	// EntityType is required for efficient enumeration. Without it the
	// retrieval returns no results (documented limitation).
	EntityType string
	// PropertyFilters are exact-value constraints.
	PropertyFilters map[string]any
	// PropertyExists lists properties that must be present, any value.
	PropertyExists []string
	// Predicate is an optional extra filter applied after the above.
	Predicate Predicate
	// ScoreByMatchCount scores each entity by the fraction of filter
	// clauses it satisfies instead of a constant 1.0.
	ScoreByMatchCount bool
	// MaxResults truncates the ranked output (<= 0 means unlimited).
	MaxResults int
}

// Filtered selects entities of a type by property constraints.
type Filtered struct {
	store  store.Store
	logger zerolog.Logger
}

// NewFiltered creates a filtered retriever over the store.
func NewFiltered(s store.Store, logger zerolog.Logger) *Filtered {
	return &Filtered{store: s, logger: logger}
}

// Retrieve selects entities of opts.EntityType matching every filter clause.
//
// With ScoreByMatchCount, score = satisfied clauses / total clauses, clamped
// to [0, 1]; matching entities under that scheme still satisfy all clauses,
// so the fraction reflects clause count, not partial matches. Otherwise all
// matches score 1.0. Results are sorted descending and capped at MaxResults.
func (f *Filtered) Retrieve(ctx context.Context, opts FilterOptions) ([]graph.ScoredEntity, error) {
	if opts.EntityType == "" {
		f.logger.Warn().Msg("filtered retrieval without entity type returns no results")
		return []graph.ScoredEntity{}, nil
	}

	candidates, err := f.store.EntitiesByType(ctx, opts.EntityType)
	if err != nil {
		return nil, fmt.Errorf("filtered: entities of type %s: %w", opts.EntityType, err)
	}

	totalClauses := len(opts.PropertyFilters) + len(opts.PropertyExists)
	if opts.Predicate != nil {
		totalClauses++
	}

	results := make([]graph.ScoredEntity, 0, len(candidates))
	for _, entity := range candidates {
		matched, ok := f.matchClauses(entity, opts)
		if !ok {
			continue
		}

		score := 1.0
		if opts.ScoreByMatchCount && totalClauses > 0 {
			score = float64(matched) / float64(totalClauses)
			if score > 1.0 {
				score = 1.0
			}
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

// matchClauses evaluates every clause against the entity, returning the
// satisfied count and whether the entity matches overall.
func (f *Filtered) matchClauses(entity *graph.Entity, opts FilterOptions) (matched int, ok bool) {
	for key, want := range opts.PropertyFilters {
		got, exists := entity.Property(key)
		if !exists || !reflect.DeepEqual(got, want) {
			return 0, false
		}
		matched++
	}
	for _, key := range opts.PropertyExists {
		if _, exists := entity.Property(key); !exists {
			return 0, false
		}
		matched++
	}
	if opts.Predicate != nil {
		if !f.safePredicate(opts.Predicate, entity) {
			return 0, false
		}
		matched++
	}
	return matched, true
}

// safePredicate runs the caller's predicate, treating a panic as a non-match.
func (f *Filtered) safePredicate(pred Predicate, entity *graph.Entity) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn().
				Str("entity", string(entity.ID)).
				Interface("panic", r).
				Msg("filter predicate panicked; entity skipped")
			result = false
		}
	}()
	return pred(entity)
}
