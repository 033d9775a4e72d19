// Package config loads render defaults from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/james-see/midi2wav/pkg/render"
	"github.com/james-see/midi2wav/pkg/render/engines"
)

// Config holds defaults that the command line may override.
type Config struct {
	SampleRate   int    `yaml:"sample_rate"`
	Effects      bool   `yaml:"effects"`
	Engine       string `yaml:"engine"`
	BlockSize    int    `yaml:"block_size"`
	MaxPolyphony int    `yaml:"max_polyphony"`
	LogLevel     string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SampleRate: render.DefaultSampleRate,
		Engine:     engines.MeltySynthName,
		LogLevel:   "info",
	}
}

// Load reads a YAML file on top of Default. An empty path returns the defaults.
// The result is not validated; callers apply their overrides and then call
// Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &render.InputError{Field: "config", Value: path, Err: err}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &render.InputError{Field: "config", Value: path, Err: err}
	}
	return cfg, nil
}

var errNegative = errors.New("must not be negative")

// Validate checks value ranges. Every failure is a *render.InputError.
func (c *Config) Validate() error {
	if err := (render.Config{SampleRate: c.SampleRate}).Validate(); err != nil {
		return err
	}
	if c.BlockSize < 0 {
		return &render.InputError{Field: "block_size", Value: strconv.Itoa(c.BlockSize), Err: errNegative}
	}
	if c.MaxPolyphony < 0 {
		return &render.InputError{Field: "max_polyphony", Value: strconv.Itoa(c.MaxPolyphony), Err: errNegative}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return &render.InputError{Field: "log_level", Value: c.LogLevel, Err: err}
	}
	return nil
}

// NewEngine builds the configured engine and applies the tuning knobs it supports.
func (c *Config) NewEngine() (render.Engine, error) {
	engine, err := engines.Lookup(c.Engine)
	if err != nil {
		return nil, &render.InputError{Field: "engine", Value: c.Engine, Err: err}
	}
	if m, ok := engine.(*engines.MeltySynth); ok {
		if c.BlockSize > 0 {
			m.BlockSize = c.BlockSize
		}
		if c.MaxPolyphony > 0 {
			m.MaximumPolyphony = c.MaxPolyphony
		}
	}
	return engine, nil
}

// SlogLevel returns the configured log level, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
