// Package config provides YAML configuration for a collection run.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/FranksOps/kanari/internal/search"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoKeywords            = errors.New("keywords is required")
	ErrInvalidLookback       = errors.New("lookback_days must be non-negative")
	ErrInvalidPageSize       = errors.New("page_size must be between 1 and 100")
	ErrInvalidMaxPages       = errors.New("max_pages must be at least 1")
	ErrInvalidConcurrency    = errors.New("concurrency must be non-negative")
	ErrInvalidArchiveBackend = errors.New("archive.backend must be one of: none, sqlite, postgres, csv, json")
	ErrMissingArchiveDSN     = errors.New("archive.dsn is required for the selected backend")
	ErrInvalidLogLevel       = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Config represents one collection run's configuration. The per-variant
// differences of the legacy dashboard scripts are explicit fields here.
type Config struct {
	Keywords       string   `yaml:"keywords"`
	Excluded       string   `yaml:"excluded"`
	Categories     []string `yaml:"categories"`
	AllowedSources []string `yaml:"allowed_sources"`
	LookbackDays   int      `yaml:"lookback_days"`
	PageSize       int      `yaml:"page_size"`
	MaxPages       int      `yaml:"max_pages"`
	CleanMode      bool     `yaml:"clean_mode"`
	UnifiedBrand   string   `yaml:"unified_brand"`
	Concurrency    int      `yaml:"concurrency"`

	RequestInterval time.Duration `yaml:"request_interval"`
	RequestJitter   float64       `yaml:"request_jitter"`
	Timeout         time.Duration `yaml:"timeout"`

	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`

	// MetricsPort exposes /metrics when > 0.
	MetricsPort int `yaml:"metrics_port"`
}

// ArchiveConfig selects the optional run-archive backend.
type ArchiveConfig struct {
	// Backend: none (default), sqlite, postgres, csv, json.
	Backend string `yaml:"backend"`
	// DSN is the database DSN or file path, depending on the backend.
	DSN string `yaml:"dsn"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and validates a YAML config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values with the reference behavior.
func (c *Config) ApplyDefaults() {
	if c.PageSize == 0 {
		c.PageSize = search.MaxDisplay
	}
	if c.MaxPages == 0 {
		c.MaxPages = 3
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = 7
	}
	if len(c.Categories) == 0 {
		c.Categories = []string{
			string(search.CategoryBlog),
			string(search.CategoryCafe),
			string(search.CategoryNews),
		}
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Archive.Backend == "" {
		c.Archive.Backend = "none"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Keywords == "" {
		return ErrNoKeywords
	}
	if c.LookbackDays < 0 {
		return ErrInvalidLookback
	}
	if c.PageSize < 1 || c.PageSize > search.MaxDisplay {
		return ErrInvalidPageSize
	}
	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}
	if c.Concurrency < 0 {
		return ErrInvalidConcurrency
	}
	for _, cat := range c.Categories {
		if !search.Category(cat).Valid() {
			return fmt.Errorf("unknown category %q", cat)
		}
	}
	switch c.Archive.Backend {
	case "none":
	case "sqlite", "postgres", "csv", "json":
		if c.Archive.DSN == "" {
			return ErrMissingArchiveDSN
		}
	default:
		return ErrInvalidArchiveBackend
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

// SearchCategories converts the configured category names. Call after
// Validate.
func (c *Config) SearchCategories() []search.Category {
	cats := make([]search.Category, 0, len(c.Categories))
	for _, cat := range c.Categories {
		cats = append(cats, search.Category(cat))
	}
	return cats
}
