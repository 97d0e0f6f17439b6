package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// TaskFunc is the body of a graph task.
type TaskFunc func(ctx context.Context) error

type task struct {
	name string
	deps []string
	run  TaskFunc
}

// Graph is a DAG of named tasks.
type Graph struct {
	tasks  map[string]*task
	logger *slog.Logger
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{tasks: map[string]*task{}, logger: slog.Default()}
}

// Add registers a task. Duplicate names are rejected; dependencies are
// checked when the graph is planned.
func (g *Graph) Add(name string, run TaskFunc, deps ...string) error {
	if _, dup := g.tasks[name]; dup {
		return ferrors.InternalError("duplicate task").WithContext("task", name).Build()
	}
	g.tasks[name] = &task{name: name, deps: deps, run: run}
	return nil
}

// Has reports whether a task is registered.
func (g *Graph) Has(name string) bool {
	_, ok := g.tasks[name]
	return ok
}

// Names lists registered tasks, sorted.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.tasks))
	for n := range g.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Plan returns targets and their transitive dependencies in a deterministic
// topological order.
func (g *Graph) Plan(targets ...string) ([]string, error) {
	selected := map[string]bool{}
	dependents := map[string][]string{}

	var visit func(name string) error
	visit = func(name string) error {
		if selected[name] {
			return nil
		}
		t, ok := g.tasks[name]
		if !ok {
			return ferrors.ValidationError("unknown task").WithContext("task", name).Build()
		}
		selected[name] = true
		for _, dep := range t.deps {
			if _, ok := g.tasks[dep]; !ok {
				return ferrors.ValidationError("unknown dependency").
					WithContext("task", name).
					WithContext("dependency", dep).
					Build()
			}
			dependents[dep] = append(dependents[dep], name)
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, target := range targets {
		if err := visit(target); err != nil {
			return nil, err
		}
	}

	inDegree := make(map[string]int, len(selected))
	for name := range selected {
		inDegree[name] = len(g.tasks[name].deps)
	}

	queue := make([]string, 0)
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(selected))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		next := dependents[current]
		sort.Strings(next)
		for _, d := range next {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if len(order) != len(selected) {
		return nil, ferrors.ValidationError("circular task dependency").Build()
	}
	return order, nil
}

// TaskState is the outcome of one task in a graph run.
type TaskState string

const (
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
	TaskSkipped   TaskState = "skipped"
)

// TaskOutcome records how a task finished.
type TaskOutcome struct {
	State    TaskState
	Err      error
	Duration time.Duration
}

// RunReport maps task names to outcomes.
type RunReport map[string]TaskOutcome

// Failed lists failed and skipped tasks, sorted.
func (r RunReport) Failed() []string {
	var out []string
	for name, o := range r {
		if o.State != TaskSucceeded {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Run executes targets and their dependencies. Each task starts in its own
// goroutine as soon as its dependencies succeeded; a failed task skips only
// its dependents. The returned error combines every task failure.
func (g *Graph) Run(ctx context.Context, targets ...string) (RunReport, error) {
	order, err := g.Plan(targets...)
	if err != nil {
		return nil, err
	}

	done := make(map[string]chan struct{}, len(order))
	for _, name := range order {
		done[name] = make(chan struct{})
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report = make(RunReport, len(order))
		errs   error
	)
	record := func(name string, o TaskOutcome) {
		mu.Lock()
		defer mu.Unlock()
		report[name] = o
		if o.State == TaskFailed {
			errs = multierr.Append(errs, ferrors.WrapError(o.Err, categoryOf(o.Err), "task failed").
				WithContext("task", name).
				Build())
		}
	}
	outcome := func(name string) TaskOutcome {
		mu.Lock()
		defer mu.Unlock()
		return report[name]
	}

	for _, name := range order {
		t := g.tasks[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done[t.name])

			for _, dep := range t.deps {
				<-done[dep]
				if outcome(dep).State != TaskSucceeded {
					g.logger.Warn("Task skipped", logfields.Task(t.name), slog.String("dependency", dep))
					record(t.name, TaskOutcome{State: TaskSkipped})
					return
				}
			}
			if err := ctx.Err(); err != nil {
				record(t.name, TaskOutcome{State: TaskFailed, Err: err})
				return
			}

			start := time.Now()
			g.logger.Info("Task started", logfields.Task(t.name))
			err := t.run(ctx)
			o := TaskOutcome{State: TaskSucceeded, Err: err, Duration: time.Since(start)}
			if err != nil {
				o.State = TaskFailed
				g.logger.Error("Task failed", logfields.Task(t.name), logfields.Error(err))
			} else {
				g.logger.Info("Task finished", logfields.Task(t.name), logfields.Duration(o.Duration))
			}
			record(t.name, o)
		}()
	}
	wg.Wait()
	return report, errs
}
