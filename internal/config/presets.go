package config

import "time"

// Preset selects one of the two shipped configurations.
type Preset string

const (
	// PresetStandard transpiles scripts and writes the sprite sheet into the
	// destination tree.
	PresetStandard Preset = "standard"
	// PresetLegacy skips transpiling, compiles styles without delay and writes
	// the sprite sheet back into src/img.
	PresetLegacy Preset = "legacy"
)

func (p Preset) Valid() bool {
	return p == PresetStandard || p == PresetLegacy
}

// Default returns the configuration for preset with every field populated.
func Default(preset Preset) *Config {
	cfg := &Config{
		Preset: preset,
		Paths: PathsConfig{
			Src: SourcePaths{
				HTML:   "src/*.html",
				Style:  "src/scss/main.scss",
				JS:     "src/js/main.js",
				Img:    "src/img/**/*.*",
				Sprite: "src/img/icons/*.*",
				Fonts:  "src/fonts/**/*.*",
			},
			Dist: DestPaths{
				Root:        "dist/",
				HTML:        "dist/",
				Style:       "dist/css/",
				SpriteStyle: "src/scss/components/",
				JS:          "dist/js/",
				Img:         "dist/img/",
				SpriteImg:   "dist/img/",
				Fonts:       "dist/fonts/",
			},
			Watch: WatchPaths{
				HTML:  "src/*.html",
				Style: "src/scss/**/*.scss",
				JS:    "src/js/**/*.js",
				Img:   "src/img/**/*.*",
				Fonts: "src/fonts/**/*.*",
			},
		},
		HTML:   HTMLConfig{Includes: true},
		Style:  StyleConfig{Delay: 100 * time.Millisecond},
		Script: ScriptConfig{Transpile: true, Target: "es2015"},
		Sprite: SpriteConfig{
			ImgName: "sprite.png",
			ImgPath: "../img/sprite.png",
			CSSName: "_sprite.scss",
			Prefix:  "icon-",
		},
		Images:  ImagesConfig{SVGRemoveViewBox: true},
		Server:  ServerConfig{Host: "localhost", Port: 3000, LiveReload: true},
		Notify:  NotifyConfig{Title: "Build error"},
		Cache:   CacheConfig{Path: ".assetpipe/state.db"},
		Metrics: MetricsConfig{Path: "/metrics"},
	}
	if preset == PresetLegacy {
		cfg.Script.Transpile = false
		cfg.Style.Delay = 0
		cfg.Paths.Dist.SpriteImg = "src/img/"
	}
	return cfg
}
