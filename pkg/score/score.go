// Package score assigns, combines and ranks scores on discovered paths.
//
// Every strategy annotates the paths it is given with a score in [0, 1] and
// never mutates their topology. Strategies are pure given their inputs; the
// only side channel is a warning log when a caller-supplied scoring function
// fails.
package score

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/orneryd/muninn/pkg/graph"
)

// Aggregation selects how edge weights fold into a path score.
type Aggregation string

const (
	AggregationMean Aggregation = "mean"
	AggregationSum  Aggregation = "sum"
	AggregationMin  Aggregation = "min"
	AggregationMax  Aggregation = "max"
)

// DefaultRelationPenalty is the score for a path containing an edge outside
// the preferred relation-type set.
const DefaultRelationPenalty = 0.5

// PathScorer scores and ranks paths.
type PathScorer struct {
	logger zerolog.Logger
}

// NewPathScorer creates a scorer. The logger receives warnings from failing
// custom scoring functions.
func NewPathScorer(logger zerolog.Logger) *PathScorer {
	return &PathScorer{logger: logger}
}

// ScoreByLength scores paths by their length.
//
// With inverse set (the usual choice), shorter paths score higher and the
// shortest path maps to exactly 1.0; otherwise longer paths score higher and
// the longest maps to 1.0. When every path has the same length they all
// receive 1.0.
func (s *PathScorer) ScoreByLength(paths []*graph.Path, inverse bool) []*graph.Path {
	if len(paths) == 0 {
		return paths
	}

	minLen, maxLen := paths[0].Length(), paths[0].Length()
	for _, p := range paths[1:] {
		if l := p.Length(); l < minLen {
			minLen = l
		} else if l > maxLen {
			maxLen = l
		}
	}

	for _, p := range paths {
		switch {
		case minLen == maxLen:
			p.Score = 1.0
		case inverse:
			p.Score = float64(1+minLen) / float64(1+p.Length())
		default:
			p.Score = float64(1+p.Length()) / float64(1+maxLen)
		}
	}
	return paths
}

// ScoreByWeights aggregates edge weights into a path score. A zero-edge path
// scores 1.0. Sum aggregation is clamped so outputs stay inside [0, 1].
func (s *PathScorer) ScoreByWeights(paths []*graph.Path, agg Aggregation) []*graph.Path {
	if agg == "" {
		agg = AggregationMean
	}
	for _, p := range paths {
		p.Score = aggregateWeights(p.Edges, agg)
	}
	return paths
}

func aggregateWeights(edges []*graph.Relation, agg Aggregation) float64 {
	if len(edges) == 0 {
		return 1.0
	}
	switch agg {
	case AggregationSum:
		sum := 0.0
		for _, e := range edges {
			sum += e.Weight
		}
		return clamp01(sum)
	case AggregationMin:
		min := edges[0].Weight
		for _, e := range edges[1:] {
			if e.Weight < min {
				min = e.Weight
			}
		}
		return min
	case AggregationMax:
		max := edges[0].Weight
		for _, e := range edges[1:] {
			if e.Weight > max {
				max = e.Weight
			}
		}
		return max
	default: // mean
		sum := 0.0
		for _, e := range edges {
			sum += e.Weight
		}
		return sum / float64(len(edges))
	}
}

// ScoreByRelationTypes gives a path 1.0 when every edge's type is in the
// preferred set, else the penalty value. A zero-edge path scores 1.0.
// penalty <= 0 falls back to DefaultRelationPenalty.
func (s *PathScorer) ScoreByRelationTypes(paths []*graph.Path, preferred []string, penalty float64) []*graph.Path {
	if penalty <= 0 {
		penalty = DefaultRelationPenalty
	}
	preferredSet := make(map[string]struct{}, len(preferred))
	for _, t := range preferred {
		preferredSet[t] = struct{}{}
	}

	for _, p := range paths {
		score := 1.0
		for _, e := range p.Edges {
			if _, ok := preferredSet[e.Type]; !ok {
				score = penalty
				break
			}
		}
		p.Score = score
	}
	return paths
}

// ScoreFunc is a caller-supplied path scoring function.
type ScoreFunc func(*graph.Path) float64

// ScoreCustom applies a caller-supplied function, clamping its output to
// [0, 1]. A function that panics yields score 0 for that path, logged, and
// does not abort the batch.
func (s *PathScorer) ScoreCustom(paths []*graph.Path, fn ScoreFunc) []*graph.Path {
	for _, p := range paths {
		p.Score = clamp01(s.safeScore(fn, p))
	}
	return paths
}

func (s *PathScorer) safeScore(fn ScoreFunc, p *graph.Path) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn().
				Interface("panic", r).
				Int("path_length", p.Length()).
				Msg("custom path scorer panicked; path scored 0")
			score = 0
		}
	}()
	return fn(p)
}

// Combine merges N already-scored lists over the same paths (same order)
// into one, via a weighted average. Weights are normalized to sum to 1.0;
// nil weights means uniform. The first list's path objects carry the result.
func (s *PathScorer) Combine(scored [][]*graph.Path, weights []float64) []*graph.Path {
	if len(scored) == 0 {
		return nil
	}
	base := scored[0]

	if weights == nil {
		weights = make([]float64, len(scored))
		for i := range weights {
			weights[i] = 1.0
		}
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		total = 1.0
	}

	for i, p := range base {
		combined := 0.0
		for j, list := range scored {
			if i < len(list) && j < len(weights) {
				combined += list[i].Score * (weights[j] / total)
			}
		}
		p.Score = combined
	}
	return base
}

// RankPaths sorts paths descending by score (a missing score reads as 0.0),
// drops paths below minScore, and truncates to topK (<= 0 means unlimited).
// Ranking an already-ranked-and-filtered list with the same arguments yields
// the same list.
func (s *PathScorer) RankPaths(paths []*graph.Path, topK int, minScore float64) []*graph.Path {
	ranked := make([]*graph.Path, 0, len(paths))
	for _, p := range paths {
		if p.Score >= minScore {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
