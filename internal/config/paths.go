package config

import (
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Kind names a class of source asset.
type Kind string

const (
	KindHTML   Kind = "html"
	KindStyle  Kind = "style"
	KindJS     Kind = "js"
	KindImg    Kind = "img"
	KindSprite Kind = "sprite"
	KindFonts  Kind = "fonts"
)

// Kinds lists every asset kind in pipeline order.
var Kinds = []Kind{KindHTML, KindStyle, KindJS, KindSprite, KindImg, KindFonts}

// PathsConfig is the path table: source globs, destination directories and
// watch globs per asset kind. Paths are relative to the project root.
type PathsConfig struct {
	Src   SourcePaths `yaml:"src"`
	Dist  DestPaths   `yaml:"dist"`
	Watch WatchPaths  `yaml:"watch"`
}

type SourcePaths struct {
	HTML   string `yaml:"html"`
	Style  string `yaml:"style"`
	JS     string `yaml:"js"`
	Img    string `yaml:"img"`
	Sprite string `yaml:"sprite"`
	Fonts  string `yaml:"fonts"`
}

type DestPaths struct {
	Root        string `yaml:"root"`
	HTML        string `yaml:"html"`
	Style       string `yaml:"style"`
	SpriteStyle string `yaml:"sprite_style"`
	JS          string `yaml:"js"`
	Img         string `yaml:"img"`
	SpriteImg   string `yaml:"sprite_img"`
	Fonts       string `yaml:"fonts"`
}

type WatchPaths struct {
	HTML  string `yaml:"html"`
	Style string `yaml:"style"`
	JS    string `yaml:"js"`
	Img   string `yaml:"img"`
	Fonts string `yaml:"fonts"`
}

// PathEntry is one row of the path table.
type PathEntry struct {
	Kind   Kind
	Source string
	Dest   string
	Watch  string // empty for kinds without a watch rule
}

// Entry returns the path table row for kind.
func (p PathsConfig) Entry(kind Kind) PathEntry {
	switch kind {
	case KindHTML:
		return PathEntry{Kind: kind, Source: p.Src.HTML, Dest: p.Dist.HTML, Watch: p.Watch.HTML}
	case KindStyle:
		return PathEntry{Kind: kind, Source: p.Src.Style, Dest: p.Dist.Style, Watch: p.Watch.Style}
	case KindJS:
		return PathEntry{Kind: kind, Source: p.Src.JS, Dest: p.Dist.JS, Watch: p.Watch.JS}
	case KindImg:
		return PathEntry{Kind: kind, Source: p.Src.Img, Dest: p.Dist.Img, Watch: p.Watch.Img}
	case KindSprite:
		return PathEntry{Kind: kind, Source: p.Src.Sprite, Dest: p.Dist.SpriteImg}
	case KindFonts:
		return PathEntry{Kind: kind, Source: p.Src.Fonts, Dest: p.Dist.Fonts, Watch: p.Watch.Fonts}
	}
	return PathEntry{Kind: kind}
}

// Table returns the path table in pipeline order.
func (p PathsConfig) Table() []PathEntry {
	out := make([]PathEntry, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, p.Entry(k))
	}
	return out
}

// Validate checks that every kind has exactly one source and destination,
// that watched kinds have a watch glob, and that paths stay inside the root.
func (c *Config) Validate() error {
	var problems []string
	for _, e := range c.Paths.Table() {
		if strings.TrimSpace(e.Source) == "" {
			problems = append(problems, fmt.Sprintf("paths.src.%s is empty", e.Kind))
		}
		if strings.TrimSpace(e.Dest) == "" {
			problems = append(problems, fmt.Sprintf("destination for %s is empty", e.Kind))
		}
		if e.Kind != KindSprite && strings.TrimSpace(e.Watch) == "" {
			problems = append(problems, fmt.Sprintf("paths.watch.%s is empty", e.Kind))
		}
		for _, p := range []string{e.Source, e.Dest, e.Watch} {
			if escapesRoot(p) {
				problems = append(problems, fmt.Sprintf("%s path %q leaves the project root", e.Kind, p))
			}
		}
	}
	if strings.TrimSpace(c.Paths.Dist.Root) == "" {
		problems = append(problems, "paths.dist.root is empty")
	}
	if strings.TrimSpace(c.Paths.Dist.SpriteStyle) == "" {
		problems = append(problems, "paths.dist.sprite_style is empty")
	}
	if c.Sprite.ImgName == "" || c.Sprite.CSSName == "" {
		problems = append(problems, "sprite.img_name and sprite.css_name are required")
	}
	if c.Sprite.Padding < 0 {
		problems = append(problems, "sprite.padding must be >= 0")
	}
	if c.Images.JPEGQuality < 0 || c.Images.JPEGQuality > 100 {
		problems = append(problems, "images.jpeg_quality must be within 0..100")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be within 1..65535")
	}
	if c.Style.Delay < 0 {
		problems = append(problems, "style.delay must be >= 0")
	}
	if len(problems) > 0 {
		return ferrors.ValidationError("invalid configuration").
			WithContext("problems", problems).
			Build()
	}
	return nil
}

func escapesRoot(p string) bool {
	p = strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "./")
	return strings.HasPrefix(p, "/") || p == ".." || strings.HasPrefix(p, "../")
}
