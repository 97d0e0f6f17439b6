// Package script transpiles and minifies JavaScript with esbuild.
package script

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Options configures the transform.
type Options struct {
	// Transpile lowers syntax to ES2015; otherwise output keeps modern syntax.
	Transpile bool
	// Target overrides the esbuild target ("es2015" ... "esnext").
	Target string
}

func (o Options) target() api.Target {
	if !o.Transpile {
		return api.ESNext
	}
	switch strings.ToLower(o.Target) {
	case "es2016":
		return api.ES2016
	case "es2017":
		return api.ES2017
	case "es2018":
		return api.ES2018
	case "es2019":
		return api.ES2019
	case "es2020":
		return api.ES2020
	case "esnext":
		return api.ESNext
	}
	return api.ES2015
}

// Transpile rewrites f for the configured target. A tracked file also gets
// a source map.
func Transpile(f *asset.File, opts Options) (*asset.File, error) {
	to := api.TransformOptions{
		Loader:     api.LoaderJS,
		Target:     opts.target(),
		Sourcefile: f.SourcePath(),
		Charset:    api.CharsetUTF8,
	}
	if f.TrackMap {
		to.Sourcemap = api.SourceMapExternal
		to.SourcesContent = api.SourcesContentInclude
	}
	return transform(f, to)
}

// Minify compresses whitespace, identifiers and syntax.
func Minify(f *asset.File, opts Options) (*asset.File, error) {
	return transform(f, api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            opts.target(),
		Sourcefile:        f.SourcePath(),
		Charset:           api.CharsetUTF8,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
	})
}

func transform(f *asset.File, to api.TransformOptions) (*asset.File, error) {
	res := api.Transform(string(f.Contents), to)
	if len(res.Errors) > 0 {
		return nil, ferrors.CompileError(formatMessage(res.Errors[0])).
			WithContext("path", f.SourcePath()).
			WithContext("errors", len(res.Errors)).
			Build()
	}
	cp := f.Clone()
	cp.Contents = res.Code
	if len(res.Map) > 0 {
		cp.SourceMap = res.Map
	}
	return cp, nil
}

func formatMessage(m api.Message) string {
	if m.Location == nil {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
}
