package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/treesync/pkg/models"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "crc32", cfg.Compare.Algorithm)
	assert.Equal(t, models.ModeUpdate, cfg.Sync.Mode)
	assert.Equal(t, ".treesyncignore", cfg.Filters.IgnoreFile)

	bps, err := cfg.BandwidthBytes()
	require.NoError(t, err)
	assert.Zero(t, bps)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"UnknownAlgorithm", func(c *Config) { c.Compare.Algorithm = "crc64" }, "compare.algorithm"},
		{"BadGlob", func(c *Config) { c.Filters.ExcludeDirs = []string{"[oops"} }, "filters"},
		{"UnknownMode", func(c *Config) { c.Sync.Mode = "sideways" }, "sync.mode"},
		{"ZeroWorkers", func(c *Config) { c.Performance.MaxWorkers = 0 }, "performance.max_workers"},
		{"SmallBuffer", func(c *Config) { c.Performance.BufferSize = 100 }, "performance.buffer_size"},
		{"BadBandwidth", func(c *Config) { c.Performance.BandwidthLimit = "fast" }, "performance.bandwidth_limit"},
		{"BadOutput", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"BadLogFormat", func(c *Config) { c.Logging.Format = "syslog" }, "logging.format"},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var ve *models.ValidationError
			require.True(t, errors.As(err, &ve), "got %T", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Compare.Hash = true
	cfg.Compare.Algorithm = "sha256"
	cfg.Sync.Mode = models.ModeMirror
	cfg.Performance.BandwidthLimit = "10M"
	cfg.Filters.Include = []string{"*.go"}
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	bps, err := loaded.BandwidthBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), bps)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compare:\n  hash: true\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Compare.Hash)
	assert.Equal(t, "crc32", cfg.Compare.Algorithm)
	assert.Equal(t, 5, cfg.Performance.MaxWorkers)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("Syntax", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("compare: [\n"), 0644))
		_, err := LoadFromFile(path)
		assert.Error(t, err)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		path := filepath.Join(dir, "typo.yaml")
		require.NoError(t, os.WriteFile(path, []byte("compare:\n  hashing: true\n"), 0644))
		_, err := LoadFromFile(path)
		assert.ErrorContains(t, err, "hashing")
	})

	t.Run("Values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("performance:\n  max_workers: 0\n"), 0644))
		_, err := LoadFromFile(path)
		var ve *models.ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveWritesHeaderAndNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, SaveToFile(Default(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# treesync configuration"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.Output.Format = "xml"
	path := filepath.Join(t.TempDir(), "config.yaml")

	assert.Error(t, SaveToFile(cfg, path))
	assert.NoFileExists(t, path)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDefaultConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "treesync", "config.yaml"), path)
}
