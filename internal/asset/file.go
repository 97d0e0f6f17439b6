// Package asset models the files flowing through a pipeline and the glob
// sources and directory sinks at either end.
package asset

import (
	"bytes"
	"path"
	"strings"
	"time"
)

// File is one asset in flight. Path is slash-separated and relative to Base,
// the static prefix of the glob that matched it; sinks write Path under
// their directory.
type File struct {
	Base     string
	Path     string
	Contents []byte
	ModTime  time.Time

	// TrackMap is switched on by the source map init step; map-producing
	// steps then fill SourceMap.
	TrackMap  bool
	SourceMap []byte
}

// SourcePath is the path the file was read from, relative to the project root.
func (f *File) SourcePath() string {
	if f.Base == "" || f.Base == "." {
		return f.Path
	}
	return path.Join(f.Base, f.Path)
}

// Ext returns the lower-cased extension including the dot.
func (f *File) Ext() string {
	return strings.ToLower(path.Ext(f.Path))
}

// Stem returns the base name without extension.
func (f *File) Stem() string {
	base := path.Base(f.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// WithExt returns a copy of f whose Path has ext in place of its extension.
func (f *File) WithExt(ext string) *File {
	cp := f.Clone()
	cp.Path = strings.TrimSuffix(f.Path, path.Ext(f.Path)) + ext
	return cp
}

// Clone returns a deep copy of f.
func (f *File) Clone() *File {
	cp := *f
	cp.Contents = bytes.Clone(f.Contents)
	cp.SourceMap = bytes.Clone(f.SourceMap)
	return &cp
}
