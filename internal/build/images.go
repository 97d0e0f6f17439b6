package build

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	"git.home.luguber.info/inful/assetpipe/internal/imagemin"
	"git.home.luguber.info/inful/assetpipe/internal/livereload"
	"git.home.luguber.info/inful/assetpipe/internal/pipeline"
	"git.home.luguber.info/inful/assetpipe/internal/state"
)

// Images optimizes changed images outside the sprite icon directory.
func (s *Service) Images() *pipeline.Pipeline {
	p := s.cfg.Paths
	c := s.cfg.Images
	opt := imagemin.New(imagemin.Options{
		JPEGQuality:      c.JPEGQuality,
		SVGRemoveViewBox: c.SVGRemoveViewBox,
		SVGCleanupIDs:    c.SVGCleanupIDs,
	}, s.min).WithLogger(s.logger)

	ch := &changed{fs: s.fs, dest: asset.Clean(p.Dist.Img), store: s.store, pending: map[string]state.Fingerprint{}}
	return s.newPipeline(TaskImg,
		asset.Src(p.Src.Img).Excluding(p.Src.Sprite),
		fingerprintSink{Dir: asset.Dest(p.Dist.Img), changed: ch},
		pipeline.Filter("changed", ch.keep),
		pipeline.Map("imagemin", func(_ context.Context, f *asset.File) (*asset.File, error) {
			return opt.Optimize(f)
		}),
	).OnWritten(s.reload(livereload.KindPage))
}

// changed keeps a file unless its destination exists, is not older than the
// source and, when a fingerprint was recorded, the source hash is unchanged.
// Kept files leave a pending fingerprint that the sink records after a
// successful write.
type changed struct {
	fs    afero.Fs
	dest  string
	store state.Store

	mu      sync.Mutex
	pending map[string]state.Fingerprint
}

func (c *changed) keep(ctx context.Context, f *asset.File) (bool, error) {
	fp := state.Fingerprint{
		Pipeline:  TaskImg,
		Path:      f.SourcePath(),
		Hash:      state.Hash(f.Contents),
		Size:      int64(len(f.Contents)),
		UpdatedAt: time.Now().UTC(),
	}
	if c.stale(ctx, f, fp) {
		c.mu.Lock()
		c.pending[f.Path] = fp
		c.mu.Unlock()
		return true, nil
	}
	return false, nil
}

func (c *changed) stale(ctx context.Context, f *asset.File, fp state.Fingerprint) bool {
	info, err := c.fs.Stat(path.Join(c.dest, f.Path))
	if err != nil || info.IsDir() {
		return true
	}
	if info.ModTime().Before(f.ModTime) {
		return true
	}
	if c.store == nil {
		return false
	}
	recorded, ok, err := c.store.Get(ctx, fp.Pipeline, fp.Path)
	if err != nil {
		return true
	}
	return ok && recorded.Hash != fp.Hash
}

// fingerprintSink writes through Dir and then records the fingerprints of
// what was written.
type fingerprintSink struct {
	asset.Dir
	changed *changed
}

func (s fingerprintSink) Write(ctx context.Context, fsys afero.Fs, files []*asset.File) ([]string, error) {
	written, err := s.Dir.Write(ctx, fsys, files)
	if err != nil || s.changed.store == nil {
		return written, err
	}
	s.changed.mu.Lock()
	defer s.changed.mu.Unlock()
	for _, f := range files {
		fp, ok := s.changed.pending[f.Path]
		if !ok {
			continue
		}
		if err := s.changed.store.Put(ctx, fp); err != nil {
			return written, err
		}
		delete(s.changed.pending, f.Path)
	}
	return written, nil
}
