// Package config loads the assetpipe configuration: the path table, the
// per-pipeline settings and the build mode.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// DefaultFile is the configuration file looked up in the project root.
const DefaultFile = "assetpipe.yaml"

// Config represents the application configuration.
type Config struct {
	Preset  Preset        `yaml:"preset"`
	Paths   PathsConfig   `yaml:"paths"`
	HTML    HTMLConfig    `yaml:"html"`
	Style   StyleConfig   `yaml:"style"`
	Script  ScriptConfig  `yaml:"script"`
	Sprite  SpriteConfig  `yaml:"sprite"`
	Images  ImagesConfig  `yaml:"images"`
	Server  ServerConfig  `yaml:"server"`
	Notify  NotifyConfig  `yaml:"notify"`
	Cache   CacheConfig   `yaml:"cache"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// HTMLConfig controls the html pipeline.
type HTMLConfig struct {
	Includes bool `yaml:"includes"` // resolve <!--= partial --> directives
}

// StyleConfig controls the sass pipeline.
type StyleConfig struct {
	// Delay is waited before compiling; editors that save in two writes
	// otherwise hand the compiler a truncated file.
	Delay        time.Duration `yaml:"delay"`
	IncludePaths []string      `yaml:"include_paths,omitempty"`
	UncssIgnore  []string      `yaml:"uncss_ignore,omitempty"`
	SassBinary   string        `yaml:"sass_binary,omitempty"`
}

// ScriptConfig controls the js pipeline.
type ScriptConfig struct {
	Transpile bool   `yaml:"transpile"`
	Target    string `yaml:"target"`
}

// SpriteConfig mirrors the sprite sheet naming options.
type SpriteConfig struct {
	ImgName string `yaml:"img_name"`
	ImgPath string `yaml:"img_path"` // URL written into the stylesheet
	CSSName string `yaml:"css_name"`
	Prefix  string `yaml:"prefix"`
	Padding int    `yaml:"padding"`
}

// ImagesConfig holds per-format optimizer settings.
type ImagesConfig struct {
	JPEGQuality      int  `yaml:"jpeg_quality"` // 0 keeps pixels untouched
	SVGRemoveViewBox bool `yaml:"svg_remove_viewbox"`
	SVGCleanupIDs    bool `yaml:"svg_cleanup_ids"`
}

// ServerConfig configures the development server.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	LiveReload bool   `yaml:"live_reload"`
}

// NotifyConfig configures the error notification surface.
type NotifyConfig struct {
	Title   string `yaml:"title"`
	Desktop bool   `yaml:"desktop"`
}

// CacheConfig locates the fingerprint database.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig exposes Prometheus metrics on the dev server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads the configuration file at path. A missing file yields the
// defaults unless required is set.
func Load(path string, required bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			cfg := Default(PresetStandard)
			return cfg, cfg.Validate()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", path).
			Build()
	}
	cfg, err := Parse(data)
	if err != nil {
		if _, ok := ferrors.AsClassified(err); ok {
			return nil, err
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid config file").
			WithContext("path", path).
			Build()
	}
	return cfg, nil
}

// Parse decodes YAML configuration on top of the defaults of its preset.
// ${VAR} references are expanded from the environment first.
func Parse(data []byte) (*Config, error) {
	expanded := []byte(os.ExpandEnv(string(data)))

	var head struct {
		Preset Preset `yaml:"preset"`
	}
	if err := yaml.Unmarshal(expanded, &head); err != nil {
		return nil, err
	}
	if head.Preset == "" {
		head.Preset = PresetStandard
	}
	if !head.Preset.Valid() {
		return nil, ferrors.ConfigError("unknown preset").WithContext("preset", string(head.Preset)).Build()
	}

	cfg := Default(head.Preset)
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, err
	}
	cfg.Preset = head.Preset
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
