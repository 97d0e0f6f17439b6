package sprite

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

func pngIcon(t *testing.T, name string, w, h int, c color.Color) *asset.File {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &asset.File{Base: "src/img/icons", Path: name, Contents: buf.Bytes()}
}

var opts = Options{
	ImgName: "sprite.png",
	ImgPath: "../img/sprite.png",
	CSSName: "_sprite.scss",
	Prefix:  "icon-",
}

func overlaps(a, b *Block) bool {
	return a.X < b.X+b.W && b.X < a.X+a.W && a.Y < b.Y+b.H && b.Y < a.Y+a.H
}

func TestPackPlacesWithoutOverlap(t *testing.T) {
	blocks := []*Block{
		{Name: "a", W: 16, H: 16}, {Name: "b", W: 32, H: 8}, {Name: "c", W: 8, H: 24},
		{Name: "d", W: 16, H: 16}, {Name: "e", W: 4, H: 4},
	}
	w, h := Pack(blocks)

	for i, a := range blocks {
		assert.LessOrEqual(t, a.X+a.W, w)
		assert.LessOrEqual(t, a.Y+a.H, h)
		for _, b := range blocks[i+1:] {
			assert.False(t, overlaps(a, b), "%s overlaps %s", a.Name, b.Name)
		}
	}
	assert.Equal(t, "b", blocks[0].Name, "largest side first")
}

func TestPackIsDeterministic(t *testing.T) {
	mk := func() []*Block {
		return []*Block{{Name: "z", W: 10, H: 10}, {Name: "a", W: 10, H: 10}, {Name: "m", W: 5, H: 20}}
	}
	first, second := mk(), mk()
	second[0], second[2] = second[2], second[0]

	w1, h1 := Pack(first)
	w2, h2 := Pack(second)
	assert.Equal(t, w1, w2)
	assert.Equal(t, h1, h2)
	for i := range first {
		assert.Equal(t, *first[i], *second[i])
	}
}

func TestBuildEmitsSheetAndStylesheet(t *testing.T) {
	icons := []*asset.File{
		pngIcon(t, "home.png", 16, 16, color.NRGBA{R: 255, A: 255}),
		pngIcon(t, "mail.png", 8, 8, color.NRGBA{B: 255, A: 255}),
	}

	out, err := Build(icons, opts)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "sprite.png", out[0].Path)
	assert.Equal(t, "_sprite.scss", out[1].Path)

	sheet, err := png.Decode(bytes.NewReader(out[0].Contents))
	require.NoError(t, err)
	assert.Equal(t, 24, sheet.Bounds().Dx())
	assert.Equal(t, 16, sheet.Bounds().Dy())
	r, _, _, a := sheet.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), a)

	scss := string(out[1].Contents)
	for _, name := range []string{"icon-home", "icon-mail"} {
		assert.Equal(t, 1, strings.Count(scss, "\n."+name+" {"), name)
		assert.Contains(t, scss, "$"+name+": (")
		assert.Contains(t, scss, "$"+name+"-image: '../img/sprite.png';")
	}
	assert.Contains(t, scss, "$icon-mail-x: 16px;")
	assert.Contains(t, scss, "$icon-mail-offset-x: -16px;")
	assert.Contains(t, scss, "$spritesheet-width: 24px;")
	assert.Contains(t, scss, "@mixin sprite($sprite)")
}

func TestBuildWithPadding(t *testing.T) {
	p := opts
	p.Padding = 2
	sheet, err := PackIcons([]*asset.File{
		pngIcon(t, "a.png", 4, 4, color.Black),
		pngIcon(t, "b.png", 4, 4, color.White),
	}, p)
	require.NoError(t, err)
	assert.Equal(t, 12, sheet.Width)
	assert.Equal(t, 4, sheet.Sprites[0].Width)
}

func TestBuildNoIcons(t *testing.T) {
	out, err := Build(nil, opts)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBuildRejectsCollidingStems(t *testing.T) {
	_, err := Build([]*asset.File{
		pngIcon(t, "home.png", 4, 4, color.Black),
		pngIcon(t, "home.gif", 4, 4, color.Black),
	}, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate sprite name")
}

func TestBuildRejectsUndecodableIcon(t *testing.T) {
	_, err := Build([]*asset.File{{Base: "src/img/icons", Path: "broken.png", Contents: []byte("nope")}}, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot decode")
}

func TestBuildRejectsInvalidNames(t *testing.T) {
	for _, name := range []string{"arrow.left.png", "my icon.png", "a$b.png"} {
		_, err := Build([]*asset.File{pngIcon(t, name, 4, 4, color.Black)}, opts)
		require.Error(t, err, name)
		ce, ok := ferrors.AsClassified(err)
		require.True(t, ok)
		assert.Equal(t, ferrors.CategoryValidation, ce.Category())
		assert.Equal(t, "invalid sprite name", ce.Message())
		p, _ := ce.Context().GetString("path")
		assert.Equal(t, "src/img/icons/"+name, p)
	}
}

func TestBuildRejectsLeadingDigitWithoutPrefix(t *testing.T) {
	p := opts
	p.Prefix = ""
	_, err := Build([]*asset.File{pngIcon(t, "1up.png", 4, 4, color.Black)}, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sprite name")

	_, err = Build([]*asset.File{pngIcon(t, "arrow_left-2.png", 4, 4, color.Black)}, p)
	require.NoError(t, err)
}
