// Package server is the development server: static files from the
// destination root, live reload endpoints and optional metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/afero"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/livereload"
)

// Options configures the server.
type Options struct {
	// Files is the tree served at "/", usually a base path over the
	// destination root.
	Files       afero.Fs
	Host        string
	Port        int
	Hub         *livereload.Hub // nil disables live reload
	Metrics     http.Handler    // nil disables the metrics endpoint
	MetricsPath string
	Logger      *slog.Logger
}

// Server serves the built site.
type Server struct {
	opts Options
	srv  *http.Server
	ln   net.Listener
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	return &Server{opts: opts}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	var files http.Handler = http.FileServer(http.FS(afero.NewIOFS(s.opts.Files)))
	if s.opts.Hub != nil {
		files = livereload.Inject(files)
		mux.Handle(livereload.EventsPath, s.opts.Hub)
		mux.HandleFunc(livereload.ScriptPath, livereload.ServeScript)
	}
	mux.Handle("/", files)
	if s.opts.Metrics != nil {
		mux.Handle(s.opts.MetricsPath, s.opts.Metrics)
	}
	return chain(s.opts.Logger, mux)
}

// Start binds the listener and serves in the background.
func (s *Server) Start(_ context.Context) error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryServer, "failed to bind dev server").
			WithContext("addr", addr).
			Build()
	}
	s.ln = ln
	// No write timeout: live reload streams are long-lived.
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.opts.Logger.Error("Dev server error", "error", err)
		}
	}()
	s.opts.Logger.Info("Dev server started", slog.String("url", s.URL()))
	return nil
}

// URL returns the base URL once started.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return fmt.Sprintf("http://%s/", s.ln.Addr().String())
}

// Stop shuts the server down and closes live reload streams.
func (s *Server) Stop(ctx context.Context) error {
	if s.opts.Hub != nil {
		s.opts.Hub.Shutdown()
	}
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("dev server shutdown: %w", err)
	}
	s.opts.Logger.Info("Dev server stopped")
	return nil
}

// Run starts the server and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}
