package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"race_preview/pkg/core/generation"
)

// Runner executes one generation job. *generation.Unit implements it.
type Runner interface {
	Run(ctx context.Context, job generation.Job) generation.Outcome
}

// RunBatch launches every job, waits for all of them and returns the
// outcomes keyed by entity. A failed job never stops the others. limit
// bounds the number of jobs in flight; 0 or less means unbounded.
func RunBatch(ctx context.Context, runner Runner, jobs []generation.Job, limit int) map[string]generation.Outcome {
	outcomes := make([]generation.Outcome, len(jobs))

	g := new(errgroup.Group)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			outcomes[i] = runner.Run(ctx, job)
			return nil // Don't fail the group
		})
	}
	_ = g.Wait()

	byEntity := make(map[string]generation.Outcome, len(jobs))
	for _, o := range outcomes {
		byEntity[o.Entity] = o
	}
	return byEntity
}
