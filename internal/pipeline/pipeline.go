package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
)

// Notifier receives the failures caught by a pipeline's error boundary.
type Notifier interface {
	Notify(ctx context.Context, pipeline string, err error)
}

// Result describes one pipeline run.
type Result struct {
	Pipeline string
	RunID    string
	Read     int
	Written  []string
	Skipped  int
	// Aborted is set when the error boundary caught a step failure; nothing
	// was written and Err holds the failure.
	Aborted  bool
	Err      error
	Duration time.Duration
}

// Hook runs after a pipeline wrote at least one file.
type Hook func(ctx context.Context, res *Result)

// Pipeline is a fixed source, step list and sink.
type Pipeline struct {
	name     string
	fs       afero.Fs
	source   asset.Source
	sink     asset.Sink
	steps    []Step
	notifier Notifier
	hooks    []Hook
	recorder metrics.Recorder
	logger   *slog.Logger
}

// New creates a pipeline. Nil steps, as produced by When, are dropped.
func New(name string, fsys afero.Fs, source asset.Source, sink asset.Sink, steps ...Step) *Pipeline {
	p := &Pipeline{
		name:     name,
		fs:       fsys,
		source:   source,
		sink:     sink,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, s := range steps {
		if s != nil {
			p.steps = append(p.steps, s)
		}
	}
	return p
}

// WithBoundary installs an error boundary reporting to n.
func (p *Pipeline) WithBoundary(n Notifier) *Pipeline {
	p.notifier = n
	return p
}

// WithRecorder sets the metrics recorder.
func (p *Pipeline) WithRecorder(r metrics.Recorder) *Pipeline {
	if r != nil {
		p.recorder = r
	}
	return p
}

// WithLogger sets the logger.
func (p *Pipeline) WithLogger(l *slog.Logger) *Pipeline {
	if l != nil {
		p.logger = l
	}
	return p
}

// OnWritten registers a hook run after output was written.
func (p *Pipeline) OnWritten(h Hook) *Pipeline {
	p.hooks = append(p.hooks, h)
	return p
}

func (p *Pipeline) Name() string { return p.name }

// Steps returns the names of the active steps in order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Run executes the pipeline once. Cancellation is honoured between steps.
// With a boundary installed, step failures abort the run without error;
// source and sink failures are always returned.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{Pipeline: p.name, RunID: uuid.NewString()}
	log := p.logger.With(logfields.Pipeline(p.name), logfields.RunID(res.RunID))

	finish := func(label metrics.ResultLabel) {
		res.Duration = time.Since(start)
		p.recorder.ObservePipelineDuration(p.name, res.Duration)
		p.recorder.IncPipelineResult(p.name, label)
		p.recorder.AddFiles(p.name, len(res.Written), res.Skipped)
	}

	files, err := p.source.Read(ctx, p.fs)
	if err != nil {
		finish(labelFor(err))
		return res, err
	}
	res.Read = len(files)
	log.Debug("Pipeline started", logfields.Files(len(files)))

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			finish(metrics.ResultCanceled)
			return res, err
		}
		in := len(files)
		files, err = step.Apply(ctx, files)
		if err != nil {
			if p.notifier != nil && ctx.Err() == nil {
				res.Aborted = true
				res.Err = err
				p.notifier.Notify(ctx, p.name, err)
				log.Warn("Pipeline aborted", logfields.Step(step.Name()), logfields.Error(err))
				finish(metrics.ResultAborted)
				return res, nil
			}
			finish(labelFor(err))
			return res, ferrors.WrapError(err, categoryOf(err), "step failed").
				WithContext("pipeline", p.name).
				WithContext("step", step.Name()).
				Build()
		}
		if _, ok := step.(filterStep); ok {
			res.Skipped += in - len(files)
		}
	}

	if len(files) > 0 {
		res.Written, err = p.sink.Write(ctx, p.fs, files)
		if err != nil {
			finish(labelFor(err))
			return res, err
		}
	}

	finish(metrics.ResultSuccess)
	log.Info("Pipeline finished",
		logfields.Files(len(res.Written)),
		slog.Int("skipped", res.Skipped),
		logfields.Duration(res.Duration))

	if len(res.Written) > 0 {
		for _, h := range p.hooks {
			h(ctx, res)
		}
	}
	return res, nil
}

func labelFor(err error) metrics.ResultLabel {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return metrics.ResultCanceled
	}
	return metrics.ResultFailed
}

func categoryOf(err error) ferrors.ErrorCategory {
	if classified, ok := ferrors.AsClassified(err); ok {
		return classified.Category()
	}
	return ferrors.CategoryBuild
}
