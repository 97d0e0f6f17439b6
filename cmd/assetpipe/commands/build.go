package commands

import (
	"git.home.luguber.info/inful/assetpipe/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Clean bool `help:"Remove the destination directory first"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := openProject(root, g.Logger, projectOptions{store: true})
	if err != nil {
		return err
	}
	defer p.Close()

	if b.Clean {
		if _, err := p.svc.Graph().Run(ctx, build.TaskClean); err != nil {
			return err
		}
	}
	return p.build(ctx)
}

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := openProject(root, g.Logger, projectOptions{store: true})
	if err != nil {
		return err
	}
	defer p.Close()

	_, err = p.svc.Graph().Run(ctx, build.TaskClean)
	return err
}
