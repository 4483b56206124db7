package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/muninn/pkg/graph"
)

func step(id string, deps ...string) *QueryStep {
	return &QueryStep{
		ID:        id,
		Operation: "lookup",
		Query:     graph.GraphQuery{Kind: graph.QueryEntityLookup, EntityID: graph.EntityID(id)},
		DependsOn: deps,
	}
}

func batchIDs(batch []*QueryStep) []string {
	ids := make([]string, 0, len(batch))
	for _, s := range batch {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestNewStepDefaults(t *testing.T) {
	s := NewStep("rank", graph.GraphQuery{Kind: graph.QueryEntityLookup})

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, DefaultStepCost, s.Cost())

	s2 := &QueryStep{EstimatedCost: 2.0}
	assert.Equal(t, 2.0, s2.Cost())
}

func TestGetExecutableSteps(t *testing.T) {
	p := NewQueryPlan("demo", step("a"), step("b", "a"), step("c", "a", "b"))

	ready := p.GetExecutableSteps(map[string]bool{})
	assert.Equal(t, []string{"a"}, batchIDs(ready))

	ready = p.GetExecutableSteps(map[string]bool{"a": true})
	assert.Equal(t, []string{"b"}, batchIDs(ready))

	ready = p.GetExecutableSteps(map[string]bool{"a": true, "b": true})
	assert.Equal(t, []string{"c"}, batchIDs(ready))

	ready = p.GetExecutableSteps(map[string]bool{"a": true, "b": true, "c": true})
	assert.Empty(t, ready)
}

func TestGetExecutionOrderChain(t *testing.T) {
	// c depends on b depends on a: three singleton batches.
	p := NewQueryPlan("chain", step("a"), step("b", "a"), step("c", "b"))

	batches := p.GetExecutionOrder()
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"a"}, batchIDs(batches[0]))
	assert.Equal(t, []string{"b"}, batchIDs(batches[1]))
	assert.Equal(t, []string{"c"}, batchIDs(batches[2]))
}

func TestGetExecutionOrderDiamond(t *testing.T) {
	// b and c both depend on a; d depends on both.
	p := NewQueryPlan("diamond",
		step("a"),
		step("b", "a"),
		step("c", "a"),
		step("d", "b", "c"),
	)

	batches := p.GetExecutionOrder()
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"a"}, batchIDs(batches[0]))
	assert.ElementsMatch(t, []string{"b", "c"}, batchIDs(batches[1]))
	assert.Equal(t, []string{"d"}, batchIDs(batches[2]))
}

func TestGetExecutionOrderBreaksDeadlock(t *testing.T) {
	// a and b depend on each other; c is free.
	p := NewQueryPlan("cycle",
		step("a", "b"),
		step("b", "a"),
		step("c"),
	)

	batches := p.GetExecutionOrder()
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"c"}, batchIDs(batches[0]))
	assert.ElementsMatch(t, []string{"a", "b"}, batchIDs(batches[1]),
		"deadlocked steps are scheduled together rather than dropped")
}

func TestGetExecutionOrderDanglingDependency(t *testing.T) {
	p := NewQueryPlan("dangling", step("a", "ghost"))

	batches := p.GetExecutionOrder()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a"}, batchIDs(batches[0]))
}

func TestCalculateTotalCost(t *testing.T) {
	a := step("a")
	a.EstimatedCost = 1.5
	b := step("b") // defaults to 0.5
	p := NewQueryPlan("cost", a, b)

	assert.InDelta(t, 2.0, p.CalculateTotalCost(), 1e-9)
}
