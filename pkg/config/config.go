// Package config loads and validates the treesync YAML configuration.
package config

import (
	"github.com/sdejongh/treesync/pkg/catalog"
	"github.com/sdejongh/treesync/pkg/digest"
	"github.com/sdejongh/treesync/pkg/models"
	"github.com/sdejongh/treesync/pkg/ratelimit"
)

// Config represents the application configuration
type Config struct {
	Compare     CompareConfig     `yaml:"compare"`
	Filters     FiltersConfig     `yaml:"filters"`
	Sync        SyncConfig        `yaml:"sync"`
	Performance PerformanceConfig `yaml:"performance"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// CompareConfig holds comparison settings
type CompareConfig struct {
	Hash      bool   `yaml:"hash"`      // Compare by digest instead of size and time
	Algorithm string `yaml:"algorithm"` // crc16, crc32, md5, sha256, ...
}

// FiltersConfig holds enumeration filters
type FiltersConfig struct {
	Include      []string `yaml:"include"`
	ExcludeFiles []string `yaml:"exclude_files"`
	ExcludeDirs  []string `yaml:"exclude_dirs"`
	IgnoreFile   string   `yaml:"ignore_file"` // Relative to the source root
}

// SyncConfig holds sync-related settings
type SyncConfig struct {
	Mode   models.SyncMode `yaml:"mode"`
	DryRun bool            `yaml:"dry_run"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxWorkers     int    `yaml:"max_workers"`
	BufferSize     int    `yaml:"buffer_size"`
	BandwidthLimit string `yaml:"bandwidth_limit"` // e.g. "10M"; empty = unlimited
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" or "text"
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	File   string `yaml:"file"`   // Log file path (empty = console only)
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Compare: CompareConfig{
			Hash:      false,
			Algorithm: string(digest.DefaultAlgorithm),
		},
		Filters: FiltersConfig{
			ExcludeFiles: []string{"*.tmp"},
			ExcludeDirs:  []string{".git", "node_modules"},
			IgnoreFile:   ".treesyncignore",
		},
		Sync: SyncConfig{
			Mode: models.ModeUpdate,
		},
		Performance: PerformanceConfig{
			MaxWorkers: 5,
			BufferSize: 65536,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// BandwidthBytes returns the parsed bandwidth limit in bytes per second
func (c *Config) BandwidthBytes() (int64, error) {
	return ratelimit.ParseRate(c.Performance.BandwidthLimit)
}

// CatalogFilters converts the filter section to catalog filters
func (c *Config) CatalogFilters() catalog.Filters {
	return catalog.Filters{
		Include:      c.Filters.Include,
		ExcludeFiles: c.Filters.ExcludeFiles,
		ExcludeDirs:  c.Filters.ExcludeDirs,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := digest.ParseAlgorithm(c.Compare.Algorithm); err != nil {
		return &models.ValidationError{Field: "compare.algorithm", Message: err.Error()}
	}

	if err := c.CatalogFilters().Validate(); err != nil {
		return &models.ValidationError{Field: "filters", Message: err.Error()}
	}

	if _, err := models.ParseSyncMode(string(c.Sync.Mode)); err != nil {
		return &models.ValidationError{Field: "sync.mode", Message: err.Error()}
	}

	if c.Performance.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "performance.max_workers",
			Message: "must be at least 1",
		}
	}

	if c.Performance.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "performance.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if _, err := c.BandwidthBytes(); err != nil {
		return &models.ValidationError{Field: "performance.bandwidth_limit", Message: err.Error()}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}
