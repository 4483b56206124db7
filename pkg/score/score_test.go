package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/muninn/pkg/graph"
	"github.com/orneryd/muninn/pkg/logging"
)

// pathOfLength builds a linear path with n edges carrying the given weights
// (weights may be shorter than n; missing weights default to 1.0).
func pathOfLength(t *testing.T, n int, weights ...float64) *graph.Path {
	t.Helper()
	nodes := make([]*graph.Entity, n+1)
	edges := make([]*graph.Relation, n)
	for i := 0; i <= n; i++ {
		nodes[i] = &graph.Entity{ID: graph.EntityID(rune('a' + i))}
	}
	for i := 0; i < n; i++ {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		edges[i] = &graph.Relation{
			ID:     string(rune('a'+i)) + string(rune('b'+i)),
			Type:   "LINKS",
			Source: nodes[i].ID,
			Target: nodes[i+1].ID,
			Weight: w,
		}
	}
	p, err := graph.NewPath(nodes, edges)
	require.NoError(t, err)
	return p
}

func newScorer() *PathScorer {
	return NewPathScorer(logging.Nop())
}

func TestScoreByLengthInverse(t *testing.T) {
	s := newScorer()
	short := pathOfLength(t, 1)
	long := pathOfLength(t, 3)

	s.ScoreByLength([]*graph.Path{short, long}, true)

	assert.Equal(t, 1.0, short.Score, "shortest path maps to 1.0")
	assert.InDelta(t, 0.5, long.Score, 1e-9) // (1+1)/(1+3)
}

func TestScoreByLengthDirect(t *testing.T) {
	s := newScorer()
	short := pathOfLength(t, 1)
	long := pathOfLength(t, 3)

	s.ScoreByLength([]*graph.Path{short, long}, false)

	assert.Equal(t, 1.0, long.Score, "longest path maps to 1.0")
	assert.InDelta(t, 0.5, short.Score, 1e-9) // (1+1)/(1+3)
}

func TestScoreByLengthAllEqual(t *testing.T) {
	s := newScorer()
	p1 := pathOfLength(t, 2)
	p2 := pathOfLength(t, 2)

	s.ScoreByLength([]*graph.Path{p1, p2}, true)

	assert.Equal(t, 1.0, p1.Score)
	assert.Equal(t, 1.0, p2.Score)
}

func TestScoreByWeights(t *testing.T) {
	tests := []struct {
		name     string
		agg      Aggregation
		weights  []float64
		expected float64
	}{
		{"mean", AggregationMean, []float64{0.7, 0.6}, 0.65},
		{"default is mean", "", []float64{0.7, 0.6}, 0.65},
		{"min", AggregationMin, []float64{0.7, 0.6}, 0.6},
		{"max", AggregationMax, []float64{0.7, 0.6}, 0.7},
		{"sum clamped", AggregationSum, []float64{0.7, 0.6}, 1.0},
		{"sum within range", AggregationSum, []float64{0.2, 0.3}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScorer()
			p := pathOfLength(t, len(tt.weights), tt.weights...)
			s.ScoreByWeights([]*graph.Path{p}, tt.agg)
			assert.InDelta(t, tt.expected, p.Score, 1e-9)
		})
	}
}

func TestScoreByWeightsZeroEdgePath(t *testing.T) {
	s := newScorer()
	p := pathOfLength(t, 0)

	s.ScoreByWeights([]*graph.Path{p}, AggregationMean)
	assert.Equal(t, 1.0, p.Score)
}

func TestScoreByRelationTypes(t *testing.T) {
	s := newScorer()
	preferred := pathOfLength(t, 2)
	p := pathOfLength(t, 2)
	p.Edges[1].Type = "UNRELATED"
	trivial := pathOfLength(t, 0)

	s.ScoreByRelationTypes([]*graph.Path{preferred, p, trivial}, []string{"LINKS"}, 0.3)

	assert.Equal(t, 1.0, preferred.Score)
	assert.Equal(t, 0.3, p.Score)
	assert.Equal(t, 1.0, trivial.Score, "zero-edge path scores full")
}

func TestScoreByRelationTypesDefaultPenalty(t *testing.T) {
	s := newScorer()
	p := pathOfLength(t, 1)
	p.Edges[0].Type = "UNRELATED"

	s.ScoreByRelationTypes([]*graph.Path{p}, []string{"LINKS"}, 0)
	assert.Equal(t, DefaultRelationPenalty, p.Score)
}

func TestScoreCustomClampsAndRecovers(t *testing.T) {
	s := newScorer()
	over := pathOfLength(t, 1)
	under := pathOfLength(t, 1)
	panics := pathOfLength(t, 1)

	s.ScoreCustom([]*graph.Path{over, under, panics}, func(p *graph.Path) float64 {
		switch p {
		case over:
			return 3.5
		case under:
			return -1.0
		default:
			panic("scorer bug")
		}
	})

	assert.Equal(t, 1.0, over.Score, "clamped from above")
	assert.Equal(t, 0.0, under.Score, "clamped from below")
	assert.Equal(t, 0.0, panics.Score, "panic scores zero without aborting the batch")
}

func TestCombineWeightedAverage(t *testing.T) {
	s := newScorer()

	// Two strategies scored copies of the same path in the same order.
	byLength := pathOfLength(t, 1)
	byLength.Score = 1.0
	byWeight := pathOfLength(t, 1)
	byWeight.Score = 0.5

	combined := s.Combine([][]*graph.Path{{byLength}, {byWeight}}, []float64{3, 1})

	require.Len(t, combined, 1)
	// Weights normalize to 0.75 and 0.25.
	assert.InDelta(t, 1.0*0.75+0.5*0.25, combined[0].Score, 1e-9)
	assert.Same(t, byLength, combined[0], "the first list carries the result")
}

func TestCombineUniformWeights(t *testing.T) {
	s := newScorer()
	p := pathOfLength(t, 1)
	p.Score = 0.8

	combined := s.Combine([][]*graph.Path{{p}}, nil)
	require.Len(t, combined, 1)
	assert.InDelta(t, 0.8, combined[0].Score, 1e-9)
}

func TestRankPaths(t *testing.T) {
	s := newScorer()
	high := pathOfLength(t, 1)
	high.Score = 0.9
	mid := pathOfLength(t, 1)
	mid.Score = 0.5
	low := pathOfLength(t, 1)
	low.Score = 0.1
	unscored := pathOfLength(t, 1) // score 0.0

	ranked := s.RankPaths([]*graph.Path{low, unscored, high, mid}, 2, 0.2)

	require.Len(t, ranked, 2)
	assert.Equal(t, high, ranked[0])
	assert.Equal(t, mid, ranked[1])
}

func TestRankPathsIdempotent(t *testing.T) {
	s := newScorer()
	a := pathOfLength(t, 1)
	a.Score = 0.9
	b := pathOfLength(t, 1)
	b.Score = 0.4

	once := s.RankPaths([]*graph.Path{b, a}, 5, 0.2)
	twice := s.RankPaths(once, 5, 0.2)

	assert.Equal(t, once, twice)
}
