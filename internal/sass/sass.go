// Package sass compiles SCSS to CSS through the Dart Sass embedded protocol.
package sass

import (
	"context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bep/godartsass/v2"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Request is one compilation. Filename and IncludePaths are absolute OS
// paths; Root is used to make source map entries project-relative.
type Request struct {
	Source       string
	Filename     string
	Root         string
	IncludePaths []string
	SourceMap    bool
}

// Response holds the compiled CSS and, when requested, a v3 source map.
type Response struct {
	CSS       string
	SourceMap string
}

// Compiler compiles one stylesheet.
type Compiler interface {
	Compile(ctx context.Context, req Request) (Response, error)
}

// Dart runs the dart-sass binary in embedded mode. The process is started
// on first use and shared by all compilations.
type Dart struct {
	binary string

	once       sync.Once
	transpiler *godartsass.Transpiler
	startErr   error
}

// NewDart returns a compiler using binary, or "sass" from PATH when empty.
func NewDart(binary string) *Dart {
	if binary == "" {
		binary = "sass"
	}
	return &Dart{binary: binary}
}

func (d *Dart) start() error {
	d.once.Do(func() {
		d.transpiler, d.startErr = godartsass.Start(godartsass.Options{
			DartSassEmbeddedFilename: d.binary,
		})
		if d.startErr != nil {
			d.startErr = ferrors.WrapError(d.startErr, ferrors.CategoryRuntime, "failed to start dart-sass").
				WithContext("binary", d.binary).
				Build()
		}
	})
	return d.startErr
}

// Compile implements Compiler.
func (d *Dart) Compile(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if err := d.start(); err != nil {
		return Response{}, err
	}

	res, err := d.transpiler.Execute(godartsass.Args{
		Source:                  req.Source,
		URL:                     fileURL(req.Filename),
		IncludePaths:            req.IncludePaths,
		OutputStyle:             godartsass.OutputStyleExpanded,
		SourceSyntax:            godartsass.SourceSyntaxSCSS,
		EnableSourceMap:         req.SourceMap,
		SourceMapIncludeSources: req.SourceMap,
	})
	if err != nil {
		return Response{}, ferrors.WrapError(err, ferrors.CategoryCompile, "sass compilation failed").
			WithContext("path", req.Filename).
			Build()
	}

	out := Response{CSS: res.CSS}
	if req.SourceMap && res.SourceMap != "" {
		out.SourceMap = RelativizeSources(res.SourceMap, req.Root)
	}
	return out, nil
}

// Close stops the dart-sass process if it was started.
func (d *Dart) Close() error {
	if d.transpiler == nil {
		return nil
	}
	return d.transpiler.Close()
}

func fileURL(name string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(name)}
	return u.String()
}

// RelativizeSources rewrites file: URLs in a source map's sources to slash
// paths relative to root. Maps that fail to decode are returned unchanged.
func RelativizeSources(sourceMap, root string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(sourceMap), &m); err != nil {
		return sourceMap
	}
	sources, ok := m["sources"].([]any)
	if !ok {
		return sourceMap
	}
	for i, s := range sources {
		str, ok := s.(string)
		if !ok || !strings.HasPrefix(str, "file:") {
			continue
		}
		u, err := url.Parse(str)
		if err != nil {
			continue
		}
		p := filepath.FromSlash(u.Path)
		if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		}
		sources[i] = filepath.ToSlash(p)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sourceMap
	}
	return string(data)
}
