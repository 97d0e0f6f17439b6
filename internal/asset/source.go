package asset

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Source produces the files a pipeline run starts from.
type Source interface {
	Read(ctx context.Context, fsys afero.Fs) ([]*File, error)
}

// Glob reads every file matching Include and none of Exclude. Patterns use
// doublestar syntax relative to the filesystem root ("src/img/**/*.*").
type Glob struct {
	Include []string
	Exclude []string
}

// Src is shorthand for a Glob over include patterns.
func Src(include ...string) Glob {
	return Glob{Include: include}
}

// Excluding returns a copy of g that also drops files matching patterns.
func (g Glob) Excluding(patterns ...string) Glob {
	g.Exclude = append(append([]string{}, g.Exclude...), patterns...)
	return g
}

// Read implements Source. A pattern without glob metacharacters that matches
// nothing is a not-found error; an empty wildcard match is not.
func (g Glob) Read(ctx context.Context, fsys afero.Fs) ([]*File, error) {
	iofs := afero.NewIOFS(fsys)
	seen := map[string]bool{}
	var files []*File

	for _, raw := range g.Include {
		pattern := Clean(raw)
		matches, err := doublestar.Glob(iofs, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "glob failed").
				WithContext("pattern", raw).
				Build()
		}
		if len(matches) == 0 && !hasMeta(pattern) {
			return nil, ferrors.NewError(ferrors.CategoryNotFound, "source file not found").
				WithContext("path", raw).
				Build()
		}
		sort.Strings(matches)
		base, _ := doublestar.SplitPattern(pattern)

		for _, m := range matches {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if seen[m] || g.excluded(m) {
				continue
			}
			seen[m] = true

			f, err := readFile(fsys, base, m)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return files, nil
}

func (g Glob) excluded(name string) bool {
	for _, ex := range g.Exclude {
		if ok, _ := doublestar.Match(Clean(ex), name); ok {
			return true
		}
	}
	return false
}

func readFile(fsys afero.Fs, base, name string) (*File, error) {
	info, err := fsys.Stat(name)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat failed").WithContext("path", name).Build()
	}
	data, err := afero.ReadFile(fsys, name)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read failed").WithContext("path", name).Build()
	}
	rel := name
	if base != "." && base != "" {
		rel = strings.TrimPrefix(name, base+"/")
	}
	return &File{Base: base, Path: rel, Contents: data, ModTime: info.ModTime()}, nil
}

// Clean normalizes a configured path or pattern to the unrooted slash form
// io/fs expects: "./src/" becomes "src".
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return "."
	}
	return path.Clean(p)
}

// GlobBase returns the static directory prefix of pattern.
func GlobBase(pattern string) string {
	base, _ := doublestar.SplitPattern(Clean(pattern))
	return base
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{\\")
}
