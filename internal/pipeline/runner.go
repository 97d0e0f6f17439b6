package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// Runner serializes the runs of one task: at most one run is in flight, and
// any number of triggers arriving during a run collapse into one follow-up.
type Runner struct {
	name string
	fn   func(ctx context.Context) error

	mu      sync.Mutex
	running bool
	pending bool
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewRunner creates a runner for fn.
func NewRunner(name string, fn func(ctx context.Context) error) *Runner {
	return &Runner{name: name, fn: fn, logger: slog.Default()}
}

func (r *Runner) Name() string { return r.name }

// Trigger requests a run and returns immediately. Failures are logged.
func (r *Runner) Trigger(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.pending = true
		r.mu.Unlock()
		return
	}
	r.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	go r.loop(ctx)
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()
	for {
		if ctx.Err() == nil {
			if err := r.fn(ctx); err != nil {
				r.logger.Warn("Task failed", logfields.Task(r.name), logfields.Error(err))
			}
		}

		r.mu.Lock()
		if r.pending && ctx.Err() == nil {
			r.pending = false
			r.mu.Unlock()
			continue
		}
		r.pending = false
		r.running = false
		r.mu.Unlock()
		return
	}
}

// Wait blocks until no run is in flight or queued.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Runners is a set of runners waited on together.
type Runners []*Runner

// Wait blocks until every runner is idle.
func (rs Runners) Wait() {
	for _, r := range rs {
		r.Wait()
	}
}
