package build

import (
	"context"
	"path"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	"git.home.luguber.info/inful/assetpipe/internal/css"
	"git.home.luguber.info/inful/assetpipe/internal/include"
	"git.home.luguber.info/inful/assetpipe/internal/livereload"
	"git.home.luguber.info/inful/assetpipe/internal/pipeline"
	"git.home.luguber.info/inful/assetpipe/internal/sass"
	"git.home.luguber.info/inful/assetpipe/internal/script"
	"git.home.luguber.info/inful/assetpipe/internal/sourcemap"
	"git.home.luguber.info/inful/assetpipe/internal/sprite"
)

// HTML resolves partials and, in production, collapses whitespace.
func (s *Service) HTML() *pipeline.Pipeline {
	p := s.cfg.Paths
	dev := s.mode.IsDevelopment()
	return s.newPipeline(TaskHTML, asset.Src(p.Src.HTML), asset.Dest(p.Dist.HTML),
		pipeline.When(s.cfg.HTML.Includes, s.includeStep(include.HTML)),
		pipeline.When(!dev, pipeline.Map("minify", func(_ context.Context, f *asset.File) (*asset.File, error) {
			out, err := s.min.HTML(f.Contents)
			if err != nil {
				return nil, err
			}
			cp := f.Clone()
			cp.Contents = out
			return cp, nil
		})),
	).OnWritten(s.reload(livereload.KindPage))
}

// Style compiles the Sass entry point.
func (s *Service) Style() *pipeline.Pipeline {
	p := s.cfg.Paths
	dev := s.mode.IsDevelopment()
	return s.newPipeline(TaskSass, asset.Src(p.Src.Style), asset.Dest(p.Dist.Style),
		pipeline.When(dev, pipeline.Map("sourcemap:init", mapInit)),
		pipeline.When(s.cfg.Style.Delay > 0, wait(s.cfg.Style.Delay)),
		pipeline.Map("sass", s.compileSass),
		pipeline.Map("autoprefix", func(_ context.Context, f *asset.File) (*asset.File, error) {
			out, err := css.Autoprefix(f.Contents)
			if err != nil {
				return nil, err
			}
			cp := f.Clone()
			cp.Contents = out
			return cp, nil
		}),
		pipeline.When(!dev, pipeline.Func("uncss", s.uncss)),
		pipeline.When(!dev, pipeline.Map("minify", func(_ context.Context, f *asset.File) (*asset.File, error) {
			out, err := s.min.CSS(f.Contents)
			if err != nil {
				return nil, err
			}
			cp := f.Clone()
			cp.Contents = out
			return cp, nil
		})),
		pipeline.When(dev, pipeline.Map("sourcemap:write", mapWrite)),
	).WithBoundary(s.notifier).OnWritten(s.reload(livereload.KindCSS))
}

// Script resolves includes and runs esbuild.
func (s *Service) Script() *pipeline.Pipeline {
	p := s.cfg.Paths
	dev := s.mode.IsDevelopment()
	opts := script.Options{Transpile: s.cfg.Script.Transpile, Target: s.cfg.Script.Target}
	return s.newPipeline(TaskJS, asset.Src(p.Src.JS), asset.Dest(p.Dist.JS),
		s.includeStep(include.Script),
		pipeline.When(dev, pipeline.Map("sourcemap:init", mapInit)),
		pipeline.Map("transpile", func(_ context.Context, f *asset.File) (*asset.File, error) {
			return script.Transpile(f, opts)
		}),
		pipeline.When(!dev, pipeline.Map("minify", func(_ context.Context, f *asset.File) (*asset.File, error) {
			return script.Minify(f, opts)
		})),
		pipeline.When(dev, pipeline.Map("sourcemap:write", mapWrite)),
	).WithBoundary(s.notifier).OnWritten(s.reload(livereload.KindPage))
}

// Sprite packs the icons; the sheet and its stylesheet go to separate
// directories.
func (s *Service) Sprite() *pipeline.Pipeline {
	p := s.cfg.Paths
	c := s.cfg.Sprite
	opts := sprite.Options{ImgName: c.ImgName, ImgPath: c.ImgPath, CSSName: c.CSSName, Prefix: c.Prefix, Padding: c.Padding}
	sink := asset.Route{ByExt: map[string]asset.Sink{
		strings.ToLower(path.Ext(c.ImgName)): asset.Dest(p.Dist.SpriteImg),
		strings.ToLower(path.Ext(c.CSSName)): asset.Dest(p.Dist.SpriteStyle),
	}}
	return s.newPipeline(TaskSprite, asset.Src(p.Src.Sprite), sink,
		pipeline.Func("sprite", func(_ context.Context, files []*asset.File) ([]*asset.File, error) {
			return sprite.Build(files, opts)
		}),
	)
}

// Fonts copies font files verbatim.
func (s *Service) Fonts() *pipeline.Pipeline {
	p := s.cfg.Paths
	return s.newPipeline(TaskFonts, asset.Src(p.Src.Fonts), asset.Dest(p.Dist.Fonts))
}

func (s *Service) includeStep(syntax include.Syntax) pipeline.Step {
	r := include.NewResolver(s.fs, syntax)
	return pipeline.Map("include", func(_ context.Context, f *asset.File) (*asset.File, error) {
		out, err := r.Expand(f.SourcePath(), f.Contents)
		if err != nil {
			return nil, err
		}
		cp := f.Clone()
		cp.Contents = out
		return cp, nil
	})
}

// compileSass turns one entry point into CSS. Partials are dropped.
func (s *Service) compileSass(ctx context.Context, f *asset.File) (*asset.File, error) {
	if strings.HasPrefix(path.Base(f.Path), "_") {
		return nil, nil
	}
	filename := filepath.Join(s.root, filepath.FromSlash(f.SourcePath()))
	includes := []string{filepath.Dir(filename)}
	for _, dir := range s.cfg.Style.IncludePaths {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(s.root, filepath.FromSlash(dir))
		}
		includes = append(includes, dir)
	}

	res, err := s.compiler.Compile(ctx, sass.Request{
		Source:       string(f.Contents),
		Filename:     filename,
		Root:         s.root,
		IncludePaths: includes,
		SourceMap:    f.TrackMap,
	})
	if err != nil {
		return nil, err
	}
	out := f.WithExt(".css")
	out.Contents = []byte(res.CSS)
	out.SourceMap = nil
	if f.TrackMap && res.SourceMap != "" {
		out.SourceMap = []byte(res.SourceMap)
	}
	return out, nil
}

// uncss drops rules unused by the html sources.
func (s *Service) uncss(ctx context.Context, files []*asset.File) ([]*asset.File, error) {
	pages, err := asset.Src(s.cfg.Paths.Src.HTML).Read(ctx, s.fs)
	if err != nil {
		return nil, err
	}
	var expand *include.Resolver
	if s.cfg.HTML.Includes {
		expand = include.NewResolver(s.fs, include.HTML)
	}
	docs := make([][]byte, 0, len(pages))
	for _, page := range pages {
		doc := page.Contents
		if expand != nil {
			if doc, err = expand.Expand(page.SourcePath(), page.Contents); err != nil {
				return nil, err
			}
		}
		docs = append(docs, doc)
	}

	u, err := css.NewUncss(docs, s.cfg.Style.UncssIgnore)
	if err != nil {
		return nil, err
	}
	out := make([]*asset.File, 0, len(files))
	for _, f := range files {
		stripped, err := u.Strip(f.Contents)
		if err != nil {
			return nil, err
		}
		cp := f.Clone()
		cp.Contents = stripped
		out = append(out, cp)
	}
	return out, nil
}

func mapInit(_ context.Context, f *asset.File) (*asset.File, error) {
	return sourcemap.Init(f), nil
}

func mapWrite(_ context.Context, f *asset.File) (*asset.File, error) {
	return sourcemap.Write(f)
}

// wait delays the batch; editors that save in two writes otherwise hand the
// compiler a truncated file.
func wait(d time.Duration) pipeline.Step {
	return pipeline.Func("wait", func(ctx context.Context, files []*asset.File) ([]*asset.File, error) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
			return files, nil
		}
	})
}
