// Package workpool wraps golang.org/x/sync's errgroup and semaphore into
// the bounded, cancellable task pools the ingestion orchestrator uses per
// phase (spec.md §4.5, §5). Generalizes the teacher's hand-rolled
// goroutine/channel pipeline in core/pipeline/interface.go into one
// reusable primitive.
package workpool

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool runs tasks with bounded concurrency and cooperative cancellation:
// once the context is cancelled, no new task starts, and Wait returns the
// first non-nil error (or nil if every task succeeded or was skipped).
type Pool struct {
	group *errgroup.Group
	sem   *semaphore.Weighted
	ctx   context.Context
}

// New builds a Pool bound to ctx with at most `concurrency` tasks running
// at once.
func New(ctx context.Context, concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	return &Pool{group: g, sem: semaphore.NewWeighted(int64(concurrency)), ctx: gctx}
}

// Go schedules task, blocking until a worker slot is free or the pool's
// context is cancelled. A cancelled context short-circuits without
// starting task, satisfying "no new tasks are started" (spec.md §5).
func (p *Pool) Go(task func(ctx context.Context) error) {
	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		// Context already done; start nothing. Wait reports only errors
		// returned by tasks, so a cancellation alone makes it return nil.
		p.group.Go(func() error { return nil })
		return
	}
	p.group.Go(func() error {
		defer p.sem.Release(1)
		select {
		case <-p.ctx.Done():
			return p.ctx.Err()
		default:
		}
		return task(p.ctx)
	})
}

// Wait blocks until every scheduled task has returned and returns the
// first error encountered, if any.
func (p *Pool) Wait() error {
	return p.group.Wait()
}
