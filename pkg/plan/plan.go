// Package plan models a multi-step retrieval request as a dependency graph
// of query steps and computes safe parallel execution batches.
package plan

import (
	"github.com/google/uuid"

	"github.com/orneryd/muninn/pkg/graph"
)

// DefaultStepCost is assumed for steps with no cost estimate.
const DefaultStepCost = 0.5

// QueryStep is one node of a query plan.
type QueryStep struct {
	// ID identifies the step within its plan. Empty ids are assigned on
	// NewStep.
	ID string `json:"id"`
	// Operation is a free-form tag naming what the step does, e.g.
	// "rank" or "traverse".
	Operation string `json:"operation"`
	// Query is dispatched to the engine when the step runs.
	Query graph.GraphQuery `json:"query"`
	// Description is human-readable.
	Description string `json:"description,omitempty"`
	// EstimatedCost is a relative cost estimate; zero reads as
	// DefaultStepCost.
	EstimatedCost float64 `json:"estimated_cost,omitempty"`
	// DependsOn lists step ids that must complete before this step runs.
	DependsOn []string `json:"depends_on,omitempty"`
}

// NewStep creates a step with a generated id and the default cost.
func NewStep(operation string, query graph.GraphQuery) *QueryStep {
	return &QueryStep{
		ID:            uuid.NewString(),
		Operation:     operation,
		Query:         query,
		EstimatedCost: DefaultStepCost,
	}
}

// Cost returns the step's estimated cost, defaulting when unset.
func (s *QueryStep) Cost() float64 {
	if s.EstimatedCost <= 0 {
		return DefaultStepCost
	}
	return s.EstimatedCost
}

// QueryPlan is an ordered list of steps derived from one caller request.
type QueryPlan struct {
	Steps         []*QueryStep `json:"steps"`
	OriginalQuery string       `json:"original_query,omitempty"`
	Optimized     bool         `json:"optimized,omitempty"`
}

// NewQueryPlan creates a plan for the given original request text.
func NewQueryPlan(originalQuery string, steps ...*QueryStep) *QueryPlan {
	return &QueryPlan{Steps: steps, OriginalQuery: originalQuery}
}

// AddStep appends a step to the plan.
func (p *QueryPlan) AddStep(step *QueryStep) {
	p.Steps = append(p.Steps, step)
}

// GetExecutableSteps returns the steps whose dependencies are all in
// completed and which are not themselves completed yet.
func (p *QueryPlan) GetExecutableSteps(completed map[string]bool) []*QueryStep {
	executable := make([]*QueryStep, 0)
	for _, step := range p.Steps {
		if completed[step.ID] {
			continue
		}
		ready := true
		for _, dep := range step.DependsOn {
			if !completed[dep] {
				ready = false
				break
			}
		}
		if ready {
			executable = append(executable, step)
		}
	}
	return executable
}

// GetExecutionOrder levels the plan into batches: each batch contains every
// step executable given the batches before it, so steps within a batch can
// run in parallel. A dependency cycle or a dependency on an unknown step id
// would otherwise stall the leveling; the remaining steps are then scheduled
// together as one final batch so that no step is silently dropped.
func (p *QueryPlan) GetExecutionOrder() [][]*QueryStep {
	completed := make(map[string]bool, len(p.Steps))
	batches := make([][]*QueryStep, 0)

	for len(completed) < len(p.Steps) {
		batch := p.GetExecutableSteps(completed)
		if len(batch) == 0 {
			var remaining []*QueryStep
			for _, step := range p.Steps {
				if !completed[step.ID] {
					remaining = append(remaining, step)
				}
			}
			batches = append(batches, remaining)
			break
		}
		for _, step := range batch {
			completed[step.ID] = true
		}
		batches = append(batches, batch)
	}
	return batches
}

// CalculateTotalCost sums the estimated cost of every step.
func (p *QueryPlan) CalculateTotalCost() float64 {
	total := 0.0
	for _, step := range p.Steps {
		total += step.Cost()
	}
	return total
}
