// Package imagemin losslessly recompresses raster and vector images.
package imagemin

import (
	"bytes"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"

	units "github.com/docker/go-units"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/minify"
)

// Options tunes the per-format optimizers.
type Options struct {
	// JPEGQuality above zero re-encodes JPEGs at that quality.
	JPEGQuality      int
	SVGRemoveViewBox bool
	SVGCleanupIDs    bool
}

// Optimizer picks an optimizer by extension; unknown formats pass through.
type Optimizer struct {
	opts   Options
	min    *minify.Minifier
	logger *slog.Logger
}

func New(opts Options, m *minify.Minifier) *Optimizer {
	if m == nil {
		m = minify.New()
	}
	return &Optimizer{opts: opts, min: m, logger: slog.Default()}
}

// WithLogger sets the logger used for per-file debug lines.
func (o *Optimizer) WithLogger(l *slog.Logger) *Optimizer {
	if l != nil {
		o.logger = l
	}
	return o
}

// Optimize returns f with the smaller of its original and optimized
// contents.
func (o *Optimizer) Optimize(f *asset.File) (*asset.File, error) {
	var (
		out []byte
		err error
	)
	switch f.Ext() {
	case ".gif":
		out, err = o.gif(f.Contents)
	case ".jpg", ".jpeg":
		out, err = o.jpeg(f.Contents)
	case ".png":
		out, err = o.png(f.Contents)
	case ".svg":
		out, err = o.svg(f.Contents)
	default:
		return f, nil
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryBuild, "image optimization failed").
			WithContext("path", f.SourcePath()).
			Build()
	}

	saved := int64(len(f.Contents) - len(out))
	if saved <= 0 {
		o.logger.Debug("Image already optimal", logfields.Path(f.SourcePath()))
		return f, nil
	}
	o.logger.Debug("Optimized image",
		logfields.Path(f.SourcePath()),
		logfields.Bytes(saved),
		slog.String("saved", units.HumanSize(float64(saved))))

	cp := f.Clone()
	cp.Contents = out
	return cp, nil
}

func (o *Optimizer) gif(data []byte) ([]byte, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Optimizer) jpeg(data []byte) ([]byte, error) {
	stripped, err := stripJPEG(data)
	if err != nil {
		return nil, err
	}
	if o.opts.JPEGQuality <= 0 {
		return stripped, nil
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: o.opts.JPEGQuality}); err != nil {
		return nil, err
	}
	if buf.Len() < len(stripped) {
		return buf.Bytes(), nil
	}
	return stripped, nil
}

func (o *Optimizer) png(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Optimizer) svg(data []byte) ([]byte, error) {
	cleaned, err := cleanSVG(data, o.opts.SVGRemoveViewBox, o.opts.SVGCleanupIDs)
	if err != nil {
		return nil, err
	}
	return o.min.SVG(cleaned)
}
