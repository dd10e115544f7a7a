package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/treesync/pkg/config"
	"github.com/sdejongh/treesync/pkg/logging"
	"github.com/sdejongh/treesync/pkg/models"
	"github.com/sdejongh/treesync/pkg/output"
	"github.com/sdejongh/treesync/pkg/sync"
)

// SyncFlags holds sync command flags
type SyncFlags struct {
	TreeFlags
	Mode       string
	DryRun     bool
	CreateDest bool
	Bandwidth  string
}

var syncFlags SyncFlags

// NewSyncCommand creates the sync command
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize two folders",
		Long: `Synchronize files between source and destination directories.

Modes:
  update   copy missing and newer source files to the destination
  mirror   update, then delete destination files missing from the source
  twoway   copy the newer side in both directions, deleting nothing`,
		RunE: runSync,
	}

	addTreeFlags(cmd, &syncFlags.TreeFlags)
	cmd.Flags().StringVarP(&syncFlags.Mode, "mode", "m", "", "sync mode: update, mirror, twoway (default: update)")
	cmd.Flags().BoolVar(&syncFlags.DryRun, "dry-run", false, "report what would change without touching files")
	cmd.Flags().BoolVar(&syncFlags.CreateDest, "create-dest", false, "create destination directory if it doesn't exist")
	cmd.Flags().StringVarP(&syncFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10M\", \"1G\")")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := validateRoots(syncFlags.Source, syncFlags.Dest, syncFlags.CreateDest); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagsToConfig(cmd, cfg, &syncFlags.TreeFlags)
	if syncFlags.Mode != "" {
		cfg.Sync.Mode = models.SyncMode(syncFlags.Mode)
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.Sync.DryRun = syncFlags.DryRun
	}
	if syncFlags.Bandwidth != "" {
		cfg.Performance.BandwidthLimit = syncFlags.Bandwidth
	}
	if cfg.Sync.Mode == models.ModeCompare {
		return fmt.Errorf("sync mode compare is not supported here, use the compare command")
	}

	operation, err := createOperation(cfg, cfg.Sync.Mode, &syncFlags.TreeFlags)
	if err != nil {
		return fmt.Errorf("failed to create sync operation: %w", err)
	}

	formatter, err := output.NewFormatter(cfg.Output.Format)
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	engine, bars := newEngine(cmd, cfg, logger)
	report, _, err := engine.Run(ctx, operation)
	if bars != nil {
		bars.Close()
	}

	// A failed index build still yields a report; cancellation keeps the counters
	if report != nil && (!cfg.Output.Quiet || cfg.Output.Format == "json") {
		if ferr := formatter.Report(cmd.OutOrStdout(), report); ferr != nil && err == nil {
			err = ferr
		}
	}
	if err != nil {
		return exitCode(reportCode(report), fmt.Errorf("sync failed: %w", err))
	}

	return exitCode(reportCode(report), nil)
}

// newEngine creates the engine with progress bars when stderr is a terminal
func newEngine(cmd *cobra.Command, cfg *config.Config, logger logging.Logger) (*sync.Engine, *output.ProgressBars) {
	engineCfg := sync.EngineConfig{
		Workers:    cfg.Performance.MaxWorkers,
		BufferSize: cfg.Performance.BufferSize,
		Logger:     logger,
	}

	var bars *output.ProgressBars
	stderr := cmd.ErrOrStderr()
	if cfg.Output.Progress && cfg.Output.Format == "human" && output.IsTerminal(stderr) {
		bars = output.NewProgressBars(stderr)
		engineCfg.Progress = bars.Observe
	}

	return sync.NewEngine(engineCfg), bars
}
