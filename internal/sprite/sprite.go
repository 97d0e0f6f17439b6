// Package sprite packs icons into one PNG sheet and writes the SCSS that
// positions them.
package sprite

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	"image/png"
	"regexp"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Options name the outputs.
type Options struct {
	ImgName string // sheet file name
	ImgPath string // sheet URL written into the stylesheet
	CSSName string
	Prefix  string // prepended to icon names: "icon-" gives $icon-home
	Padding int
}

// Sprite is one placed icon.
type Sprite struct {
	Name          string
	X, Y          int
	Width, Height int
}

// Sheet is the packed result.
type Sheet struct {
	Width, Height int
	Sprites       []Sprite // sorted by name
	Image         *image.NRGBA
}

// Build packs icons and returns the sheet image and stylesheet as two
// files, or nothing when there are no icons.
func Build(icons []*asset.File, opts Options) ([]*asset.File, error) {
	if len(icons) == 0 {
		return nil, nil
	}
	sheet, err := PackIcons(icons, opts)
	if err != nil {
		return nil, err
	}

	var img bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&img, sheet.Image); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryBuild, "failed to encode sprite sheet").Build()
	}

	now := time.Now()
	return []*asset.File{
		{Path: opts.ImgName, Contents: img.Bytes(), ModTime: now},
		{Path: opts.CSSName, Contents: []byte(SCSS(sheet, opts)), ModTime: now},
	}, nil
}

// validName accepts names usable both as a CSS class and a Sass variable.
var validName = regexp.MustCompile(`^-?[A-Za-z_][A-Za-z0-9_-]*$`)

// PackIcons decodes and places icons.
func PackIcons(icons []*asset.File, opts Options) (*Sheet, error) {
	images := make(map[string]image.Image, len(icons))
	blocks := make([]*Block, 0, len(icons))
	for _, f := range icons {
		name := opts.Prefix + f.Stem()
		if !validName.MatchString(name) {
			return nil, ferrors.ValidationError("invalid sprite name").
				WithContext("name", name).
				WithContext("path", f.SourcePath()).
				Build()
		}
		if _, dup := images[name]; dup {
			return nil, ferrors.ValidationError("duplicate sprite name").
				WithContext("name", name).
				WithContext("path", f.SourcePath()).
				Build()
		}
		img, _, err := image.Decode(bytes.NewReader(f.Contents))
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryBuild, "cannot decode sprite icon").
				WithContext("path", f.SourcePath()).
				Build()
		}
		images[name] = img
		b := img.Bounds()
		blocks = append(blocks, &Block{Name: name, W: b.Dx() + opts.Padding, H: b.Dy() + opts.Padding})
	}

	w, h := Pack(blocks)
	sheet := &Sheet{Width: w, Height: h, Image: image.NewNRGBA(image.Rect(0, 0, w, h))}
	for _, b := range blocks {
		img := images[b.Name]
		bounds := img.Bounds()
		dst := image.Rect(b.X, b.Y, b.X+bounds.Dx(), b.Y+bounds.Dy())
		draw.Draw(sheet.Image, dst, img, bounds.Min, draw.Src)
		sheet.Sprites = append(sheet.Sprites, Sprite{
			Name: b.Name, X: b.X, Y: b.Y, Width: bounds.Dx(), Height: bounds.Dy(),
		})
	}
	sort.Slice(sheet.Sprites, func(i, j int) bool { return sheet.Sprites[i].Name < sheet.Sprites[j].Name })
	return sheet, nil
}

// SCSS renders the variables, the helper mixins and one selector per icon.
func SCSS(sheet *Sheet, opts Options) string {
	var b strings.Builder
	px := func(n int) string { return fmt.Sprintf("%dpx", n) }
	imageURL := fmt.Sprintf("'%s'", opts.ImgPath)

	names := make([]string, 0, len(sheet.Sprites))
	for _, s := range sheet.Sprites {
		v := "$" + s.Name
		names = append(names, v)
		fmt.Fprintf(&b, "%s-name: '%s';\n", v, s.Name)
		fmt.Fprintf(&b, "%s-x: %s;\n", v, px(s.X))
		fmt.Fprintf(&b, "%s-y: %s;\n", v, px(s.Y))
		fmt.Fprintf(&b, "%s-offset-x: %s;\n", v, px(-s.X))
		fmt.Fprintf(&b, "%s-offset-y: %s;\n", v, px(-s.Y))
		fmt.Fprintf(&b, "%s-width: %s;\n", v, px(s.Width))
		fmt.Fprintf(&b, "%s-height: %s;\n", v, px(s.Height))
		fmt.Fprintf(&b, "%s-total-width: %s;\n", v, px(sheet.Width))
		fmt.Fprintf(&b, "%s-total-height: %s;\n", v, px(sheet.Height))
		fmt.Fprintf(&b, "%s-image: %s;\n", v, imageURL)
		fmt.Fprintf(&b, "%s: (%s, %s, %s, %s, %s, %s, %s, %s, %s, '%s', );\n", v,
			px(s.X), px(s.Y), px(-s.X), px(-s.Y), px(s.Width), px(s.Height),
			px(sheet.Width), px(sheet.Height), imageURL, s.Name)
	}
	fmt.Fprintf(&b, "$spritesheet-width: %s;\n", px(sheet.Width))
	fmt.Fprintf(&b, "$spritesheet-height: %s;\n", px(sheet.Height))
	fmt.Fprintf(&b, "$spritesheet-image: %s;\n", imageURL)
	fmt.Fprintf(&b, "$spritesheet-sprites: (%s, );\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "$spritesheet: (%s, %s, %s, $spritesheet-sprites, );\n", px(sheet.Width), px(sheet.Height), imageURL)
	b.WriteString(mixins)
	for _, s := range sheet.Sprites {
		fmt.Fprintf(&b, "\n.%s {\n  @include sprite($%s);\n}\n", s.Name, s.Name)
	}
	return b.String()
}

const mixins = `
@mixin sprite-width($sprite) {
  width: nth($sprite, 5);
}

@mixin sprite-height($sprite) {
  height: nth($sprite, 6);
}

@mixin sprite-position($sprite) {
  background-position: nth($sprite, 3) nth($sprite, 4);
}

@mixin sprite-image($sprite) {
  background-image: url(nth($sprite, 9));
}

@mixin sprite($sprite) {
  @include sprite-image($sprite);
  @include sprite-position($sprite);
  @include sprite-width($sprite);
  @include sprite-height($sprite);
}
`
