// Package config loads the settings shared by the ttb commands.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// TTB_* environment variables. Command-line flags are applied last by the
// caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/kinarow/egtb/internal/tablebase"
)

// Environment variables read by Load.
const (
	EnvDir      = "TTB_DIR"
	EnvWorkers  = "TTB_WORKERS"
	EnvLogLevel = "TTB_LOG_LEVEL"
	EnvDims     = "TTB_DIMS"
	EnvRun      = "TTB_RUN_LENGTH"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the settings for one tablebase family.
type Config struct {
	Dims      []int  `yaml:"dims"`
	RunLength int    `yaml:"run_length"`
	Dir       string `yaml:"dir"`
	Workers   int    `yaml:"workers"`
	LogLevel  string `yaml:"log_level"`
}

// Default returns tic-tac-toe settings.
func Default() Config {
	return Config{
		Dims:      []int{3, 3},
		RunLength: 3,
		Dir:       "./data/tablebases",
		Workers:   runtime.NumCPU(),
		LogLevel:  "info",
	}
}

// Load returns the defaults overlaid with the file at path (skipped when
// path is empty) and the environment. The result is not validated, so
// flags can still fix it up.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := loadEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	if v := os.Getenv(EnvDir); v != "" {
		cfg.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalid, EnvWorkers, v)
		}
		cfg.Workers = n
	}
	if v := os.Getenv(EnvRun); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalid, EnvRun, v)
		}
		cfg.RunLength = n
	}
	if v := os.Getenv(EnvDims); v != "" {
		dims, err := ParseDims(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDims, err)
		}
		cfg.Dims = dims
	}
	return nil
}

// ParseDims parses a shape such as "3x3" or "4x4x4".
func ParseDims(s string) ([]int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	dims := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: dimensions %q", ErrInvalid, s)
		}
		dims[i] = n
	}
	return dims, nil
}

// FormatDims is the inverse of ParseDims.
func FormatDims(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "x")
}

// Validate checks the shape, worker count and log level.
func (c Config) Validate() error {
	if len(c.Dims) == 0 {
		return fmt.Errorf("%w: no dimensions", ErrInvalid)
	}
	for _, d := range c.Dims {
		if d < 1 {
			return fmt.Errorf("%w: dimension %d", ErrInvalid, d)
		}
	}
	if c.RunLength < 1 {
		return fmt.Errorf("%w: run length %d", ErrInvalid, c.RunLength)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d", ErrInvalid, c.Workers)
	}
	if c.Dir == "" {
		return fmt.Errorf("%w: empty directory", ErrInvalid)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// Tablebase converts c into the settings the tablebase package takes.
func (c Config) Tablebase(logger zerolog.Logger) tablebase.Config {
	return tablebase.Config{
		Dir:       c.Dir,
		Dims:      append([]int(nil), c.Dims...),
		RunLength: c.RunLength,
		Workers:   c.Workers,
		Logger:    logger,
	}
}
