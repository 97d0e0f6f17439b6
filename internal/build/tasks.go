package build

import (
	"context"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/pipeline"
	"git.home.luguber.info/inful/assetpipe/internal/watch"
)

// Task names.
const (
	TaskHTML   = "build:html"
	TaskSass   = "build:sass"
	TaskJS     = "build:js"
	TaskSprite = "build:sprite"
	TaskImg    = "build:img"
	TaskFonts  = "build:fonts"
	TaskBuild  = "build"
	TaskClean  = "clean"
)

// Graph registers every task. Pipelines are constructed per run, so runs of
// one task never share per-run state.
func (s *Service) Graph() *pipeline.Graph {
	g := pipeline.NewGraph()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(g.Add(TaskHTML, s.runTask(s.HTML)))
	must(g.Add(TaskSass, s.runTask(s.Style)))
	must(g.Add(TaskJS, s.runTask(s.Script)))
	must(g.Add(TaskSprite, s.runTask(s.Sprite)))
	must(g.Add(TaskImg, s.runTask(s.Images), TaskSprite))
	must(g.Add(TaskFonts, s.runTask(s.Fonts)))
	must(g.Add(TaskBuild, func(context.Context) error { return nil },
		TaskHTML, TaskSass, TaskFonts, TaskJS, TaskImg))
	must(g.Add(TaskClean, s.Clean))
	return g
}

// runTask turns a pipeline constructor into a task. An aborted run is a
// task failure so that dependents are skipped and build exits non-zero.
func (s *Service) runTask(newPipeline func() *pipeline.Pipeline) pipeline.TaskFunc {
	return func(ctx context.Context) error {
		p := newPipeline()
		res, err := p.Run(ctx)
		if err != nil {
			return err
		}
		if res.Aborted {
			return ferrors.WrapError(res.Err, ferrors.CategoryBuild, "pipeline aborted").
				WithContext("pipeline", p.Name()).
				Build()
		}
		return nil
	}
}

// Build runs the aggregate build task.
func (s *Service) Build(ctx context.Context) (pipeline.RunReport, error) {
	s.logger.Info("Build started", logfields.Mode(s.mode.String()))
	return s.Graph().Run(ctx, TaskBuild)
}

// Clean removes the destination root and forgets recorded fingerprints.
func (s *Service) Clean(ctx context.Context) error {
	if err := asset.Remove(s.fs, s.cfg.Paths.Dist.Root); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.Reset(ctx, TaskImg); err != nil {
			return err
		}
	}
	s.logger.Info("Cleaned destination", logfields.Path(s.cfg.Paths.Dist.Root))
	return nil
}

// WatchRules binds each watched kind to a serialized runner of its task.
// Runs go through g, so build:img first rebuilds the sprite sheet. The
// runners are returned so callers can wait for in-flight runs on shutdown.
func (s *Service) WatchRules(g *pipeline.Graph) ([]watch.Rule, pipeline.Runners) {
	w := s.cfg.Paths.Watch
	tasks := []struct{ glob, task string }{
		{w.HTML, TaskHTML},
		{w.Style, TaskSass},
		{w.JS, TaskJS},
		{w.Img, TaskImg},
		{w.Fonts, TaskFonts},
	}
	rules := make([]watch.Rule, 0, len(tasks))
	runners := make(pipeline.Runners, 0, len(tasks))
	for _, t := range tasks {
		task := t.task
		runner := pipeline.NewRunner(task, func(ctx context.Context) error {
			_, err := g.Run(ctx, task)
			return err
		})
		rules = append(rules, watch.Rule{Glob: asset.Clean(t.glob), Task: task, Runner: runner})
		runners = append(runners, runner)
	}
	return rules, runners
}
