// Package config loads triagescan settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/triagescan"
	"github.com/calvinalkan/triagescan/internal/logger"
)

// Output formats accepted by the scan command.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config is the CLI configuration.
type Config struct {
	Extensions   []string `yaml:"extensions"`
	MaxFileSize  int64    `yaml:"max_file_size"`
	MaxDepth     int      `yaml:"max_depth"`
	LogLevel     string   `yaml:"log_level"`
	CatalogPath  string   `yaml:"catalog_path"`
	OutputFormat string   `yaml:"output_format"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Extensions:   triagescan.DefaultExtensions(),
		MaxFileSize:  triagescan.MaxFileSize,
		MaxDepth:     0, // Unbounded
		LogLevel:     "info",
		CatalogPath:  ".triagescan/catalog.db",
		OutputFormat: FormatText,
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must be >= 0, got %d", c.MaxFileSize)
	}

	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth)
	}

	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("invalid log_level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}

	formats := []string{FormatText, FormatJSON, FormatYAML}
	if !slices.Contains(formats, c.OutputFormat) {
		return fmt.Errorf("invalid output_format %q, must be one of: %s", c.OutputFormat, strings.Join(formats, ", "))
	}

	for _, ext := range c.Extensions {
		if strings.ContainsAny(ext, `/\`) {
			return fmt.Errorf("invalid extension %q: must not contain a path separator", ext)
		}
	}

	return nil
}

// ScanOptions converts the configuration into engine options. log receives
// engine debug records and every I/O diagnostic.
func (c *Config) ScanOptions(log *slog.Logger) []triagescan.Option {
	opts := []triagescan.Option{
		triagescan.WithExtensions(c.Extensions...),
		triagescan.WithMaxFileSize(c.MaxFileSize),
		triagescan.WithMaxDepth(c.MaxDepth),
	}

	if log != nil {
		opts = append(opts,
			triagescan.WithLogger(log),
			triagescan.WithOnError(func(err error) {
				log.Warn("skipped", "err", err)
			}),
		)
	}

	return opts
}
