package plan

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/orneryd/muninn/pkg/graph"
)

// QueryRunner dispatches a single graph query. It is implemented by the
// engine; the indirection keeps this package free of an engine dependency.
type QueryRunner interface {
	Query(ctx context.Context, q graph.GraphQuery) (*graph.GraphResult, error)
}

// Executor runs a query plan batch by batch. Steps within a batch share no
// mutable state beyond the underlying store, which supports concurrent
// reads, so they run in parallel.
type Executor struct {
	runner QueryRunner
	logger zerolog.Logger
}

// NewExecutor creates an executor dispatching steps through runner.
func NewExecutor(runner QueryRunner, logger zerolog.Logger) *Executor {
	return &Executor{runner: runner, logger: logger}
}

// Execute runs every batch of the plan in order, fanning each batch's steps
// out concurrently. It returns results keyed by step id. The first failing
// step cancels its batch's siblings and aborts the remaining batches.
func (e *Executor) Execute(ctx context.Context, p *QueryPlan) (map[string]*graph.GraphResult, error) {
	results := make(map[string]*graph.GraphResult, len(p.Steps))
	var mu sync.Mutex

	for i, batch := range p.GetExecutionOrder() {
		e.logger.Debug().
			Int("batch", i).
			Int("steps", len(batch)).
			Msg("executing plan batch")

		g, gctx := errgroup.WithContext(ctx)
		for _, step := range batch {
			step := step
			g.Go(func() error {
				res, err := e.runner.Query(gctx, step.Query)
				if err != nil {
					return fmt.Errorf("plan: step %s (%s): %w", step.ID, step.Operation, err)
				}
				mu.Lock()
				results[step.ID] = res
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return results, nil
}
