package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/muninn/pkg/graph"
	"github.com/orneryd/muninn/pkg/store"
)

// chainStore builds e1 -> e2 -> e3 with a side branch e1 -> e4.
func chainStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	for _, id := range []graph.EntityID{"e1", "e2", "e3", "e4"} {
		require.NoError(t, s.CreateEntity(ctx, &graph.Entity{ID: id, Type: "Concept"}))
	}
	for _, e := range []struct {
		id       string
		relType  string
		from, to graph.EntityID
	}{
		{"r12", "LINKS", "e1", "e2"},
		{"r23", "LINKS", "e2", "e3"},
		{"r14", "RELATED", "e1", "e4"},
	} {
		rel, err := graph.NewRelation(e.id, e.relType, e.from, e.to, 1.0)
		require.NoError(t, err)
		require.NoError(t, s.CreateRelation(ctx, rel))
	}
	return s
}

func scoresByID(scored []graph.ScoredEntity) map[graph.EntityID]float64 {
	m := make(map[graph.EntityID]float64, len(scored))
	for _, se := range scored {
		m[se.Entity.ID] = se.Score
	}
	return m
}

func TestMultiHopZeroHopsReturnsSeedsOnly(t *testing.T) {
	s := chainStore(t)
	m := NewMultiHop(s)

	results, err := m.Retrieve(context.Background(), []graph.EntityID{"e1"}, MultiHopOptions{
		MaxHops:      0,
		IncludeSeeds: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, graph.EntityID("e1"), results[0].Entity.ID)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestMultiHopDecayPerHop(t *testing.T) {
	s := chainStore(t)
	m := NewMultiHop(s)

	results, err := m.Retrieve(context.Background(), []graph.EntityID{"e1"}, MultiHopOptions{
		MaxHops:    2,
		ScoreDecay: 0.7,
	})
	require.NoError(t, err)

	byID := scoresByID(results)
	assert.NotContains(t, byID, graph.EntityID("e1"), "seeds excluded by default")
	assert.InDelta(t, 0.7, byID["e2"], 1e-9)
	assert.InDelta(t, 0.7, byID["e4"], 1e-9)
	assert.InDelta(t, 0.49, byID["e3"], 1e-9)

	// Sorted non-increasing.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestMultiHopFirstDiscoveryWins(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	// Diamond: a -> b -> d and a -> d directly. d is found at hop 1 first
	// and must not be rescored through the longer route.
	for _, id := range []graph.EntityID{"a", "b", "d"} {
		require.NoError(t, s.CreateEntity(ctx, &graph.Entity{ID: id, Type: "Concept"}))
	}
	for i, e := range [][2]graph.EntityID{{"a", "b"}, {"b", "d"}, {"a", "d"}} {
		rel, err := graph.NewRelation(string(rune('0'+i)), "LINKS", e[0], e[1], 1.0)
		require.NoError(t, err)
		require.NoError(t, s.CreateRelation(ctx, rel))
	}

	m := NewMultiHop(s)
	results, err := m.Retrieve(ctx, []graph.EntityID{"a"}, MultiHopOptions{MaxHops: 2, ScoreDecay: 0.5})
	require.NoError(t, err)

	byID := scoresByID(results)
	assert.InDelta(t, 0.5, byID["d"], 1e-9, "hop-1 discovery wins over hop-2 route")
}

func TestMultiHopRelationTypeAllowList(t *testing.T) {
	s := chainStore(t)
	m := NewMultiHop(s)

	results, err := m.Retrieve(context.Background(), []graph.EntityID{"e1"}, MultiHopOptions{
		MaxHops:       2,
		RelationTypes: []string{"LINKS"},
	})
	require.NoError(t, err)

	byID := scoresByID(results)
	assert.Contains(t, byID, graph.EntityID("e2"))
	assert.NotContains(t, byID, graph.EntityID("e4"), "RELATED edges are not expanded")
}

func TestMultiHopNoDuplicatesWithOverlappingSeeds(t *testing.T) {
	s := chainStore(t)
	m := NewMultiHop(s)

	results, err := m.Retrieve(context.Background(), []graph.EntityID{"e1", "e2"}, MultiHopOptions{
		MaxHops:      2,
		IncludeSeeds: true,
	})
	require.NoError(t, err)

	seen := make(map[graph.EntityID]int)
	for _, se := range results {
		seen[se.Entity.ID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "entity %s appears once", id)
	}
}

func TestMultiHopMaxResults(t *testing.T) {
	s := chainStore(t)
	m := NewMultiHop(s)

	results, err := m.Retrieve(context.Background(), []graph.EntityID{"e1"}, MultiHopOptions{
		MaxHops:    2,
		MaxResults: 1,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.7, results[0].Score, 1e-9, "highest score survives truncation")
}
