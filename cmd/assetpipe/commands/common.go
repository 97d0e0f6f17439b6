package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	"git.home.luguber.info/inful/assetpipe/internal/build"
	"git.home.luguber.info/inful/assetpipe/internal/config"
	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/livereload"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
	"git.home.luguber.info/inful/assetpipe/internal/notify"
	"git.home.luguber.info/inful/assetpipe/internal/pipeline"
	"git.home.luguber.info/inful/assetpipe/internal/server"
	"git.home.luguber.info/inful/assetpipe/internal/state"
	"git.home.luguber.info/inful/assetpipe/internal/watch"
)

// Global carries state shared by all commands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default: <root>/assetpipe.yaml if present)"`
	Root    string           `short:"r" help:"Project root" default:"." type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Default   DefaultCmd   `cmd:"" default:"withargs" help:"Build, then serve and watch until interrupted"`
	Build     BuildCmd     `cmd:"" help:"Run every pipeline once"`
	Clean     CleanCmd     `cmd:"" help:"Remove the destination directory"`
	Watch     WatchCmd     `cmd:"" help:"Rebuild on source changes"`
	Webserver WebserverCmd `cmd:"" help:"Serve the destination directory with live reload"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// project is the per-invocation wiring: configuration, mode, filesystem,
// build service and the optional live reload hub and metrics registry.
type project struct {
	cfg      *config.Config
	mode     config.Mode
	root     string
	fs       afero.Fs
	svc      *build.Service
	hub      *livereload.Hub
	registry *prometheus.Registry
	runners  pipeline.Runners
	logger   *slog.Logger
}

const shutdownTimeout = 5 * time.Second

type projectOptions struct {
	liveReload bool
	store      bool
}

func openProject(root *CLI, logger *slog.Logger, opts projectOptions) (*project, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := filepath.Abs(root.Root)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid project root").Build()
	}
	if st, statErr := os.Stat(dir); statErr != nil || !st.IsDir() {
		return nil, ferrors.ConfigError("project root not found or not a directory").WithContext("root", dir).Build()
	}

	for _, f := range config.LoadEnvFiles(dir) {
		logger.Debug("Loaded env file", logfields.Path(f))
	}
	cfgPath, required := root.Config, true
	if cfgPath == "" {
		cfgPath, required = filepath.Join(dir, config.DefaultFile), false
	}
	cfg, err := config.Load(cfgPath, required)
	if err != nil {
		return nil, err
	}
	mode := config.ModeFromEnv()

	p := &project{
		cfg:    cfg,
		mode:   mode,
		root:   dir,
		fs:     afero.NewBasePathFs(afero.NewOsFs(), dir),
		logger: logger,
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		p.registry = prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(p.registry)
	}

	notifier := notify.Multi{notify.Log{Logger: logger}}
	if cfg.Notify.Desktop {
		notifier = append(notifier, notify.NewDesktop(cfg.Notify.Title))
	}

	p.svc = build.NewService(cfg, mode, p.fs, dir).
		WithNotifier(notifier).
		WithRecorder(recorder).
		WithLogger(logger)

	if opts.liveReload && cfg.Server.LiveReload {
		p.hub = livereload.NewHub(recorder)
		p.svc.WithReloader(p.hub)
	}
	if opts.store {
		st, err := state.NewSQLiteStore(filepath.Join(dir, filepath.FromSlash(cfg.Cache.Path)))
		if err != nil {
			logger.Warn("Fingerprint store unavailable; image checks use timestamps only", logfields.Error(err))
		} else {
			p.svc.WithStore(st)
		}
	}

	logger.Info("Project loaded",
		slog.String("root", dir),
		slog.String("preset", string(cfg.Preset)),
		logfields.Mode(mode.String()))
	return p, nil
}

// Close waits for watch runs still in flight, then releases the store.
func (p *project) Close() {
	p.runners.Wait()
	if err := p.svc.Close(); err != nil {
		p.logger.Warn("Failed to release build resources", logfields.Error(err))
	}
}

func (p *project) server() *server.Server {
	opts := server.Options{
		Files:       afero.NewBasePathFs(p.fs, asset.Clean(p.cfg.Paths.Dist.Root)),
		Host:        p.cfg.Server.Host,
		Port:        p.cfg.Server.Port,
		Hub:         p.hub,
		MetricsPath: p.cfg.Metrics.Path,
		Logger:      p.logger,
	}
	if p.registry != nil {
		opts.Metrics = metrics.HTTPHandler(p.registry)
	}
	return server.New(opts)
}

func (p *project) watcher() (*watch.Watcher, error) {
	rules, runners := p.svc.WatchRules(p.svc.Graph())
	w, err := watch.New(p.root, rules...)
	if err != nil {
		return nil, err
	}
	p.runners = append(p.runners, runners...)
	return w.WithLogger(p.logger), nil
}

// build runs the aggregate task and reports failed or skipped tasks.
func (p *project) build(ctx context.Context) error {
	report, err := p.svc.Build(ctx)
	if failed := report.Failed(); len(failed) > 0 {
		p.logger.Warn("Build finished with failures", slog.Any("tasks", failed))
	}
	return err
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
