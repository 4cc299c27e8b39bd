// Package config loads riskviz settings.
//
// Settings are layered: built-in defaults, then an optional TOML file
// (riskviz.toml by default), then RISKVIZ_* environment variables. Command-line
// flags are applied on top by the CLI.
//
// A minimal file:
//
//	[core]
//	seed = 42
//	samples = 200
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[labels]
//	LOW_tight = "Confident low"
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/matzehuels/riskviz/pkg/compose"
	"github.com/matzehuels/riskviz/pkg/dotplot"
	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/sample"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "riskviz.toml"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the complete riskviz configuration.
type Config struct {
	Core   Core              `toml:"core"`
	Render Render            `toml:"render"`
	Cache  Cache             `toml:"cache"`
	Server Server            `toml:"server"`
	Labels map[string]string `toml:"labels"`
}

// Core holds the composition settings.
type Core struct {
	Seed        uint64  `toml:"seed" env:"RISKVIZ_SEED"`
	Samples     int     `toml:"samples" env:"RISKVIZ_SAMPLES"`
	Bins        int     `toml:"bins" env:"RISKVIZ_BINS"`
	Margin      float64 `toml:"margin" env:"RISKVIZ_MARGIN"`
	MaxFeatures int     `toml:"max_features" env:"RISKVIZ_MAX_FEATURES"`
	Workers     int     `toml:"workers" env:"RISKVIZ_WORKERS"`
}

// Render holds the artifact settings.
type Render struct {
	View    string   `toml:"view" env:"RISKVIZ_VIEW"`
	Formats []string `toml:"formats" env:"RISKVIZ_FORMATS" envSeparator:","`
	Width   int      `toml:"width" env:"RISKVIZ_WIDTH"`
	Dataset string   `toml:"dataset" env:"RISKVIZ_DATASET"`
}

// Cache selects and configures the cache backend.
type Cache struct {
	Backend  string        `toml:"backend" env:"RISKVIZ_CACHE"`
	Dir      string        `toml:"dir" env:"RISKVIZ_CACHE_DIR"`
	RedisURL string        `toml:"redis_url" env:"RISKVIZ_REDIS_URL"`
	TTL      time.Duration `toml:"ttl" env:"RISKVIZ_CACHE_TTL"`
}

// Server holds the HTTP server settings.
type Server struct {
	Addr string `toml:"addr" env:"RISKVIZ_ADDR"`
}

// DefaultLabels maps the case labels of the reference cohort to their
// semantic descriptions.
func DefaultLabels() map[string]string {
	return map[string]string{
		"LOW_tight":  "Confident low",
		"MID_wide":   "Uncertain mid",
		"HIGH_tight": "Confident high",
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Core: Core{
			Seed:    compose.DefaultSeed,
			Samples: sample.DefaultCount,
			Bins:    dotplot.DefaultBins,
			Margin:  dotplot.DefaultMargin,
			Workers: compose.DefaultWorkers,
		},
		Render: Render{
			View:    "dotplot",
			Formats: []string{"svg"},
			Width:   720,
		},
		Cache: Cache{
			Backend: BackendFile,
			TTL:     7 * 24 * time.Hour,
		},
		Server: Server{
			Addr: ":8080",
		},
		Labels: DefaultLabels(),
	}
}

// Load builds a Config from defaults, the TOML file at path and the
// environment. An empty path looks for [DefaultFile] and silently skips it
// when absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return Config{}, err
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !required {
		return nil
	}
	if os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	// Labels from the file extend the defaults instead of replacing them.
	defaults := c.Labels
	c.Labels = nil
	if err := toml.Unmarshal(data, c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	for k, v := range defaults {
		if _, ok := c.Labels[k]; !ok {
			if c.Labels == nil {
				c.Labels = make(map[string]string, len(defaults))
			}
			c.Labels[k] = v
		}
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Core.Samples <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "core.samples must be positive, got %d", c.Core.Samples)
	case c.Core.Bins <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "core.bins must be positive, got %d", c.Core.Bins)
	case c.Core.Margin < 0:
		return errors.New(errors.ErrCodeInvalidInput, "core.margin cannot be negative, got %g", c.Core.Margin)
	case c.Core.MaxFeatures < 0:
		return errors.New(errors.ErrCodeInvalidInput, "core.max_features cannot be negative, got %d", c.Core.MaxFeatures)
	case c.Core.Workers <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "core.workers must be positive, got %d", c.Core.Workers)
	case c.Render.Width < 0:
		return errors.New(errors.ErrCodeInvalidInput, "render.width cannot be negative, got %d", c.Render.Width)
	case c.Cache.TTL < 0:
		return errors.New(errors.ErrCodeInvalidInput, "cache.ttl cannot be negative")
	}
	if !slices.Contains([]string{BackendFile, BackendRedis, BackendNone}, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.redis_url is required for the redis backend")
	}
	return nil
}

// ComposeOptions returns the composition options described by the core
// section.
func (c Config) ComposeOptions() compose.Options {
	margin := c.Core.Margin
	return compose.Options{
		Samples:     c.Core.Samples,
		Bins:        c.Core.Bins,
		Margin:      &margin,
		MaxFeatures: c.Core.MaxFeatures,
		Seed:        c.Core.Seed,
		Workers:     c.Core.Workers,
	}
}

// SemanticLabel returns the description for a case label, or the label
// itself when none is configured.
func (c Config) SemanticLabel(label string) string {
	if s, ok := c.Labels[label]; ok {
		return s
	}
	return label
}
