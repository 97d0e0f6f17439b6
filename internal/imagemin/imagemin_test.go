package imagemin

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
)

func gradient() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	return img
}

func TestPNGIsRecompressedLosslessly(t *testing.T) {
	var raw bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&raw, gradient()))

	f := &asset.File{Path: "a.png", Contents: raw.Bytes()}
	out, err := New(Options{}, nil).Optimize(f)
	require.NoError(t, err)
	assert.Less(t, len(out.Contents), len(f.Contents))

	decoded, err := png.Decode(bytes.NewReader(out.Contents))
	require.NoError(t, err)
	assert.Equal(t, color.NRGBAModel.Convert(gradient().At(10, 20)), color.NRGBAModel.Convert(decoded.At(10, 20)))
}

func TestKeepsOriginalWhenNotSmaller(t *testing.T) {
	var best bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	require.NoError(t, enc.Encode(&best, gradient()))

	f := &asset.File{Path: "a.png", Contents: best.Bytes()}
	out, err := New(Options{}, nil).Optimize(f)
	require.NoError(t, err)
	assert.Same(t, f, out)
}

func jpegWithMetadata(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(), &jpeg.Options{Quality: 90}))
	data := buf.Bytes()

	exif := append([]byte{0xFF, 0xE1, 0x00, 0x12}, []byte("Exif\x00\x00metadata..")...)
	comment := []byte{0xFF, 0xFE, 0x00, 0x07, 'h', 'e', 'l', 'l', 'o'}
	out := append([]byte{}, data[:2]...)
	out = append(out, exif...)
	out = append(out, comment...)
	return append(out, data[2:]...)
}

func TestJPEGMetadataIsStripped(t *testing.T) {
	data := jpegWithMetadata(t)
	f := &asset.File{Path: "photo.JPG", Contents: data}

	out, err := New(Options{}, nil).Optimize(f)
	require.NoError(t, err)
	assert.Equal(t, len(data)-20-9, len(out.Contents))
	assert.NotContains(t, string(out.Contents), "Exif")
	assert.NotContains(t, string(out.Contents), "hello")

	_, err = jpeg.Decode(bytes.NewReader(out.Contents))
	require.NoError(t, err)
}

func TestJPEGReencodeWithQuality(t *testing.T) {
	f := &asset.File{Path: "photo.jpg", Contents: jpegWithMetadata(t)}
	out, err := New(Options{JPEGQuality: 40}, nil).Optimize(f)
	require.NoError(t, err)
	assert.Less(t, len(out.Contents), len(f.Contents)-29)
}

func TestStripJPEGRejectsGarbage(t *testing.T) {
	_, err := stripJPEG([]byte("plain"))
	require.Error(t, err)
	_, err = New(Options{}, nil).Optimize(&asset.File{Path: "bad.jpg", Contents: []byte("plain")})
	require.Error(t, err)
}

func TestGIFReencode(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 8, 8), []color.Color{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, pal, nil))
	padded := append(buf.Bytes()[:len(buf.Bytes())-1], 0x21, 0xFE, 0x04, 'n', 'o', 't', 'e', 0x00, 0x3B)

	out, err := New(Options{}, nil).Optimize(&asset.File{Path: "a.gif", Contents: padded})
	require.NoError(t, err)
	_, err = gif.DecodeAll(bytes.NewReader(out.Contents))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out.Contents), len(padded))
}

func TestSVGRemovesRedundantViewBoxKeepsIDs(t *testing.T) {
	in := `<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg" width="24" height="24" viewBox="0 0 24 24">
  <!-- drawn by hand -->
  <g id="layer1">
    <rect x="0" y="0" width="24" height="24"/>
  </g>
</svg>
`
	out, err := New(Options{SVGRemoveViewBox: true}, nil).Optimize(&asset.File{Path: "i.svg", Contents: []byte(in)})
	require.NoError(t, err)
	s := string(out.Contents)
	assert.NotContains(t, s, "viewBox")
	assert.Contains(t, s, `id="layer1"`)
	assert.NotContains(t, s, "drawn by hand")
}

func TestSVGKeepsMeaningfulViewBox(t *testing.T) {
	in := `<svg xmlns="http://www.w3.org/2000/svg" width="48" height="48" viewBox="0 0 24 24"><rect width="24" height="24"/></svg>`
	out, err := cleanSVG([]byte(in), true, false)
	require.NoError(t, err)
	assert.Contains(t, string(out), `viewBox="0 0 24 24"`)
}

func TestSVGCleanupIDs(t *testing.T) {
	in := `<svg xmlns="http://www.w3.org/2000/svg"><defs><linearGradient id="g"/></defs><rect id="unused" fill="url(#g)"/></svg>`
	out, err := cleanSVG([]byte(in), false, true)
	require.NoError(t, err)
	assert.Contains(t, string(out), `id="g"`)
	assert.NotContains(t, string(out), `id="unused"`)
}

func TestUnknownFormatPassesThrough(t *testing.T) {
	f := &asset.File{Path: "a.webp", Contents: []byte("whatever")}
	out, err := New(Options{}, nil).Optimize(f)
	require.NoError(t, err)
	assert.Same(t, f, out)
}
