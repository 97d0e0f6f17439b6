package build

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/livereload"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
	"git.home.luguber.info/inful/assetpipe/internal/minify"
	"git.home.luguber.info/inful/assetpipe/internal/notify"
	"git.home.luguber.info/inful/assetpipe/internal/pipeline"
	"git.home.luguber.info/inful/assetpipe/internal/sass"
	"git.home.luguber.info/inful/assetpipe/internal/state"
)

// Reloader is told about written output. *livereload.Hub satisfies it.
type Reloader interface {
	Reload(kind livereload.Kind) string
}

// Service builds the pipelines for one project.
type Service struct {
	cfg  *config.Config
	mode config.Mode
	// fs is rooted at the project root; root is its OS path, used where
	// tools need absolute filenames.
	fs   afero.Fs
	root string

	compiler sass.Compiler
	store    state.Store
	notifier pipeline.Notifier
	reloader Reloader
	recorder metrics.Recorder
	logger   *slog.Logger
	min      *minify.Minifier
}

// NewService creates a service over fs, whose root is the OS directory root.
func NewService(cfg *config.Config, mode config.Mode, fs afero.Fs, root string) *Service {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Service{
		cfg:      cfg,
		mode:     mode,
		fs:       fs,
		root:     root,
		compiler: sass.NewDart(cfg.Style.SassBinary),
		notifier: notify.Log{},
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		min:      minify.New(),
	}
}

// WithCompiler replaces the Dart Sass compiler.
func (s *Service) WithCompiler(c sass.Compiler) *Service {
	s.compiler = c
	return s
}

// WithStore enables fingerprint checks in the image pipeline.
func (s *Service) WithStore(st state.Store) *Service {
	s.store = st
	return s
}

// WithNotifier sets the error boundary target of the style and script
// pipelines.
func (s *Service) WithNotifier(n pipeline.Notifier) *Service {
	if n != nil {
		s.notifier = n
	}
	return s
}

// WithReloader enables live reload notifications after writes.
func (s *Service) WithReloader(r Reloader) *Service {
	s.reloader = r
	return s
}

func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

func (s *Service) WithLogger(l *slog.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *Service) Mode() config.Mode { return s.mode }

// Close releases the compiler process and the fingerprint store.
func (s *Service) Close() error {
	var err error
	if c, ok := s.compiler.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	if s.store != nil {
		err = multierr.Append(err, s.store.Close())
	}
	return err
}

func (s *Service) newPipeline(name string, src asset.Source, sink asset.Sink, steps ...pipeline.Step) *pipeline.Pipeline {
	return pipeline.New(name, s.fs, src, sink, steps...).
		WithRecorder(s.recorder).
		WithLogger(s.logger)
}

func (s *Service) reload(kind livereload.Kind) pipeline.Hook {
	return func(_ context.Context, _ *pipeline.Result) {
		if s.reloader != nil {
			s.reloader.Reload(kind)
		}
	}
}
