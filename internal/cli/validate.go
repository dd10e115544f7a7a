package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/treesync/internal/platform"
	"github.com/sdejongh/treesync/pkg/catalog"
	"github.com/sdejongh/treesync/pkg/config"
	"github.com/sdejongh/treesync/pkg/logging"
	"github.com/sdejongh/treesync/pkg/models"
)

// validateRoots checks both roots before any work starts. A missing
// destination is created when createDest is set.
func validateRoots(source, dest string, createDest bool) error {
	for _, p := range []string{source, dest} {
		if err := platform.ValidatePath(p); err != nil {
			return err
		}
	}

	// Validate source exists
	srcInfo, err := os.Stat(source)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("source path does not exist: %s", source)
	} else if err != nil {
		return fmt.Errorf("failed to access source path: %w", err)
	} else if !srcInfo.IsDir() {
		return fmt.Errorf("source path exists but is not a directory: %s", source)
	}

	// Check destination
	destInfo, err := os.Stat(dest)
	if errors.Is(err, fs.ErrNotExist) {
		if !createDest {
			return fmt.Errorf("destination path does not exist: %s (use --create-dest to create it)", dest)
		}
		if err := os.MkdirAll(dest, 0755); err != nil {
			return fmt.Errorf("failed to create destination directory: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to access destination path: %w", err)
	} else if !destInfo.IsDir() {
		return fmt.Errorf("destination path exists but is not a directory: %s", dest)
	}

	sourceAbs, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("failed to resolve source path: %w", err)
	}
	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("failed to resolve destination path: %w", err)
	}

	if platform.NormalizePath(sourceAbs) == platform.NormalizePath(destAbs) {
		return fmt.Errorf("source and destination cannot be the same: %s", sourceAbs)
	}
	if platform.IsNested(sourceAbs, destAbs) {
		return fmt.Errorf("destination cannot be inside source directory")
	}
	if platform.IsNested(destAbs, sourceAbs) {
		return fmt.Errorf("source cannot be inside destination directory")
	}

	return nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with the flags set on cmd
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config, f *TreeFlags) {
	flags := cmd.Flags()

	if flags.Changed("hash") {
		cfg.Compare.Hash = f.Hash
	}
	if flags.Changed("algorithm") {
		cfg.Compare.Algorithm = f.Algorithm
		cfg.Compare.Hash = true
	}

	if flags.Changed("include") {
		cfg.Filters.Include = catalog.ParsePatterns(f.Include)
	}
	if flags.Changed("exclude-files") {
		cfg.Filters.ExcludeFiles = catalog.ParsePatterns(f.ExcludeFiles)
	}
	if flags.Changed("exclude-dirs") {
		cfg.Filters.ExcludeDirs = catalog.ParsePatterns(f.ExcludeDirs)
	}
	if flags.Changed("ignore-file") {
		cfg.Filters.IgnoreFile = f.IgnoreFile
	}

	if f.Parallel > 0 {
		cfg.Performance.MaxWorkers = f.Parallel
	}

	if f.Output != "" {
		cfg.Output.Format = f.Output
	}

	if globalFlags.LogFile != "" {
		cfg.Logging.File = globalFlags.LogFile
	}
	if globalFlags.LogFormat != "" {
		cfg.Logging.Format = globalFlags.LogFormat
	}
	if globalFlags.LogLevel != "" {
		cfg.Logging.Level = globalFlags.LogLevel
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}
}

// createOperation creates an operation from configuration
func createOperation(cfg *config.Config, mode models.SyncMode, f *TreeFlags) (*models.Operation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bandwidth, err := cfg.BandwidthBytes()
	if err != nil {
		return nil, err
	}

	operation := &models.Operation{
		ID:             uuid.New().String(),
		SourcePath:     f.Source,
		DestPath:       f.Dest,
		Mode:           mode,
		HashEnabled:    cfg.Compare.Hash,
		Algorithm:      cfg.Compare.Algorithm,
		Include:        cfg.Filters.Include,
		ExcludeFiles:   cfg.Filters.ExcludeFiles,
		ExcludeDirs:    cfg.Filters.ExcludeDirs,
		IgnoreFile:     cfg.Filters.IgnoreFile,
		DryRun:         cfg.Sync.DryRun,
		MaxWorkers:     cfg.Performance.MaxWorkers,
		BandwidthLimit: bandwidth,
		BufferSize:     cfg.Performance.BufferSize,
		CreatedAt:      time.Now(),
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}

	return operation, nil
}

// createLogger builds the console logger, teeing into a rotating file when
// configured. The console stays at warn level unless verbose.
func createLogger(cfg config.LoggingConfig, stderr io.Writer) (logging.Logger, error) {
	level := logging.ParseLevel(cfg.Level)

	consoleLevel := logging.WarnLevel
	switch {
	case globalFlags.Quiet:
		consoleLevel = logging.ErrorLevel
	case globalFlags.Verbose:
		consoleLevel = level
	}
	console := logging.NewConsoleLogger(stderr, consoleLevel)

	if cfg.File == "" {
		return console, nil
	}

	format := logging.FormatText
	if cfg.Format == "json" {
		format = logging.FormatJSON
	}

	file, err := logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.File,
		Format:     format,
		Level:      level,
		MaxSize:    10 * 1024 * 1024, // 10 MB
		MaxBackups: 5,
	})
	if err != nil {
		return nil, err
	}

	return logging.Multi{console, file}, nil
}
