package commands

import (
	"context"

	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct{}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := openProject(root, g.Logger, projectOptions{store: true})
	if err != nil {
		return err
	}
	defer p.Close()

	watcher, err := p.watcher()
	if err != nil {
		return err
	}
	err = watcher.Run(ctx)
	cancel()
	p.runners.Wait()
	return err
}

// WebserverCmd implements the 'webserver' command.
type WebserverCmd struct {
	Port int `short:"p" help:"Override server.port"`
}

func (w *WebserverCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := openProject(root, g.Logger, projectOptions{liveReload: true})
	if err != nil {
		return err
	}
	defer p.Close()
	if w.Port > 0 {
		p.cfg.Server.Port = w.Port
	}
	return p.server().Run(ctx)
}

// DefaultCmd builds once, then serves and watches until interrupted.
type DefaultCmd struct {
	Port int `short:"p" help:"Override server.port"`
}

func (d *DefaultCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := openProject(root, g.Logger, projectOptions{liveReload: true, store: true})
	if err != nil {
		return err
	}
	defer p.Close()
	if d.Port > 0 {
		p.cfg.Server.Port = d.Port
	}
	return p.serveAndWatch(ctx)
}

// serveAndWatch runs the initial build, then the server and the watcher
// together. A failed initial build is logged; serving continues.
func (p *project) serveAndWatch(ctx context.Context) error {
	if err := p.build(ctx); err != nil {
		p.logger.Error("Initial build failed", logfields.Error(err))
	}
	if ctx.Err() != nil {
		return nil
	}

	watcher, err := p.watcher()
	if err != nil {
		return err
	}
	srv := p.server()
	if err := srv.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	watchErr := make(chan error, 1)
	go func() { watchErr <- watcher.Run(ctx) }()

	select {
	case <-ctx.Done():
		err = <-watchErr
	case err = <-watchErr:
		cancel()
	}
	p.runners.Wait()

	p.logger.Info("Shutting down")
	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer stop()
	if stopErr := srv.Stop(shutdownCtx); stopErr != nil {
		p.logger.Warn("Dev server shutdown error", logfields.Error(stopErr))
	}
	return err
}
