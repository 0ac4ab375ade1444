// Package config loads the sitesmith build configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/sitesmith/internal/foundation/errors"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "sitesmith.yaml"

// Defaults.
const (
	DefaultSourceDir         = "src"
	DefaultOutputDir         = "dist"
	DefaultTailwindConfig    = "tailwind.config.js"
	DefaultMaxComponentDepth = 32
	DefaultDebounce          = 200 * time.Millisecond
)

// Config represents the build configuration.
type Config struct {
	SourceDir         string        `yaml:"source_dir"`
	OutputDir         string        `yaml:"output_dir"`
	TailwindConfig    string        `yaml:"tailwind_config"`
	MaxComponentDepth int           `yaml:"max_component_depth"`
	Watch             WatchConfig   `yaml:"watch"`
	Logging           LoggingConfig `yaml:"logging"`
}

// WatchConfig configures the watch loop.
type WatchConfig struct {
	Debounce    time.Duration `yaml:"debounce"`
	MetricsAddr string        `yaml:"metrics_addr,omitempty"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration at path. Environment variables from .env
// files are loaded first and ${VAR} references in the file are expanded.
// A missing file at the default path yields the defaults; a missing file
// named explicitly is an error.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	explicit := path != "" && path != DefaultPath
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "read configuration").
			Fatal().
			WithContext("path", path).
			Build()
	}

	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes configuration YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "parse configuration").
			Fatal().
			Build()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SourceDir == "" {
		c.SourceDir = DefaultSourceDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.TailwindConfig == "" {
		c.TailwindConfig = DefaultTailwindConfig
	}
	if c.MaxComponentDepth == 0 {
		c.MaxComponentDepth = DefaultMaxComponentDepth
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = DefaultDebounce
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the configuration for values the builder cannot work with.
func (c *Config) Validate() error {
	if filepath.Clean(c.SourceDir) == filepath.Clean(c.OutputDir) {
		return foundationerrors.ValidationError("output_dir must differ from source_dir").
			WithContext("source_dir", c.SourceDir).
			WithContext("output_dir", c.OutputDir).
			Build()
	}
	if c.MaxComponentDepth < 0 {
		return foundationerrors.ValidationError("max_component_depth must be positive").
			WithContext("max_component_depth", c.MaxComponentDepth).
			Build()
	}
	if c.Watch.Debounce < 0 {
		return foundationerrors.ValidationError("watch.debounce must not be negative").
			WithContext("debounce", c.Watch.Debounce.String()).
			Build()
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return foundationerrors.ValidationError(fmt.Sprintf("unsupported logging.format %q (text|json)", c.Logging.Format)).Build()
	}
	return nil
}

// SlogLevel maps the configured level to slog.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	switch l.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, foundationerrors.ValidationError(fmt.Sprintf("unsupported logging.level %q", l.Level)).Build()
	}
}

// loadEnvFiles loads .env and .env.local when present. Existing process
// environment variables win.
func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", slog.String("path", name), slog.String("error", err.Error()))
		}
	}
}
