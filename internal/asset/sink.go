package asset

import (
	"bytes"
	"context"
	"os"
	"path"
	"time"

	"github.com/spf13/afero"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Sink receives the files a pipeline run produced and returns the paths it
// wrote, relative to the filesystem root.
type Sink interface {
	Write(ctx context.Context, fsys afero.Fs, files []*File) ([]string, error)
}

// Dir writes each file at Path under the directory.
type Dir string

// Dest is shorthand for a Dir sink.
func Dest(dir string) Dir { return Dir(Clean(dir)) }

// Write implements Sink. A destination that already holds identical bytes
// is only touched, so rewriting unchanged output does not produce write
// events for watchers.
func (d Dir) Write(ctx context.Context, fsys afero.Fs, files []*File) ([]string, error) {
	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		target := path.Join(string(d), f.Path)
		if err := writeFile(fsys, target, f.Contents); err != nil {
			return written, err
		}
		written = append(written, target)
	}
	return written, nil
}

func writeFile(fsys afero.Fs, target string, data []byte) error {
	if existing, err := afero.ReadFile(fsys, target); err == nil && bytes.Equal(existing, data) {
		now := time.Now()
		_ = fsys.Chtimes(target, now, now)
		return nil
	}
	if err := fsys.MkdirAll(path.Dir(target), 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create directory failed").
			WithContext("path", path.Dir(target)).
			Build()
	}
	if err := afero.WriteFile(fsys, target, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write failed").
			WithContext("path", target).
			Build()
	}
	return nil
}

// Route dispatches files to sinks by extension; files with an unrouted
// extension go to Default, or are an error when Default is nil.
type Route struct {
	ByExt   map[string]Sink
	Default Sink
}

// Write implements Sink.
func (r Route) Write(ctx context.Context, fsys afero.Fs, files []*File) ([]string, error) {
	groups := map[Sink][]*File{}
	var order []Sink
	for _, f := range files {
		s, ok := r.ByExt[f.Ext()]
		if !ok {
			s = r.Default
		}
		if s == nil {
			return nil, ferrors.InternalError("no sink for extension").WithContext("path", f.Path).Build()
		}
		if _, seen := groups[s]; !seen {
			order = append(order, s)
		}
		groups[s] = append(groups[s], f)
	}
	var written []string
	for _, s := range order {
		out, err := s.Write(ctx, fsys, groups[s])
		written = append(written, out...)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Remove deletes dir and everything below it; a missing dir is not an error.
func Remove(fsys afero.Fs, dir string) error {
	dir = Clean(dir)
	if dir == "." {
		return ferrors.ValidationError("refusing to remove the project root").Build()
	}
	if err := fsys.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "remove failed").WithContext("path", dir).Build()
	}
	return nil
}
