// Package config loads the client configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"dockhand/pkg/bytesize"
	"dockhand/pkg/duration"
)

// Config is the resolved client configuration. Validation happens at
// Load, not at use.
type Config struct {
	SocketPath      string // empty = auto-detect
	RequestTimeout  time.Duration
	LogLevel        string
	MaxBuildContext int64 // bytes; 0 = unlimited
}

// fileConfig is the YAML shape; durations and sizes are human strings.
type fileConfig struct {
	SocketPath      string `yaml:"socket_path"`
	RequestTimeout  string `yaml:"request_timeout"`
	LogLevel        string `yaml:"log_level"`
	MaxBuildContext string `yaml:"max_build_context"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RequestTimeout:  60 * time.Second,
		LogLevel:        "info",
		MaxBuildContext: 512 << 20,
	}
}

// Load reads the config file at path (a missing file falls back to
// defaults) and then applies DOCKHAND_* environment overrides. A .env
// file in the working directory is honored when present.
func Load(path string) (*Config, error) {
	// Missing .env is the normal case, not an error.
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded environment from .env")
	}

	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			log.Debug("config file not found, using defaults", "path", path)
		} else {
			var fc fileConfig
			if err := yaml.Unmarshal(raw, &fc); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			if err := cfg.apply(fc); err != nil {
				return nil, fmt.Errorf("invalid config %s: %w", path, err)
			}
		}
	}

	env := fileConfig{
		SocketPath:      os.Getenv("DOCKHAND_SOCKET"),
		RequestTimeout:  os.Getenv("DOCKHAND_TIMEOUT"),
		LogLevel:        os.Getenv("DOCKHAND_LOG_LEVEL"),
		MaxBuildContext: os.Getenv("DOCKHAND_MAX_BUILD_CONTEXT"),
	}
	if err := cfg.apply(env); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	return cfg, nil
}

// apply overlays non-empty values from a file or environment layer.
func (c *Config) apply(fc fileConfig) error {
	if fc.SocketPath != "" {
		c.SocketPath = fc.SocketPath
	}
	if fc.RequestTimeout != "" {
		d, err := duration.Parse(fc.RequestTimeout)
		if err != nil {
			return err
		}
		c.RequestTimeout = d
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.MaxBuildContext != "" {
		n, err := bytesize.Parse(fc.MaxBuildContext)
		if err != nil {
			return err
		}
		c.MaxBuildContext = n
	}
	return nil
}
