package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/treesync/pkg/models"
	"github.com/sdejongh/treesync/pkg/output"
)

// CompareFlags holds compare command flags
type CompareFlags struct {
	TreeFlags
	All        bool
	Paths      bool
	DiffReport string
	DiffFormat string
	FailOnDiff bool
}

var compareFlags CompareFlags

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two folders without changing them",
		Long: `Compare source and destination folders and list the files that differ.
Files are matched by relative path and compared by size and modification time,
or by content digest with --hash.`,
		RunE: runCompare,
	}

	addTreeFlags(cmd, &compareFlags.TreeFlags)
	cmd.Flags().BoolVar(&compareFlags.All, "all", false, "list identical files too")
	cmd.Flags().BoolVar(&compareFlags.Paths, "paths", false, "show the resolved path of each side")
	cmd.Flags().StringVar(&compareFlags.DiffReport, "diff-report", "", "write differences report to file")
	cmd.Flags().StringVar(&compareFlags.DiffFormat, "diff-format", "human", "differences report format: human, json")
	cmd.Flags().BoolVar(&compareFlags.FailOnDiff, "fail-on-diff", false, "exit with status 1 when differences are found")

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := validateRoots(compareFlags.Source, compareFlags.Dest, false); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagsToConfig(cmd, cfg, &compareFlags.TreeFlags)

	operation, err := createOperation(cfg, models.ModeCompare, &compareFlags.TreeFlags)
	if err != nil {
		return fmt.Errorf("failed to create operation: %w", err)
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
	report, idx, err := engine.Run(ctx, operation)
	if bars != nil {
		bars.Close()
	}
	if err != nil {
		return exitCode(reportCode(report), fmt.Errorf("comparison failed: %w", err))
	}

	listing := output.NewListing(idx, !compareFlags.All, compareFlags.Paths)
	if !cfg.Output.Quiet || cfg.Output.Format == "json" {
		if err := formatter.Listing(cmd.OutOrStdout(), listing); err != nil {
			return err
		}
	}

	if compareFlags.DiffReport != "" {
		if err := output.WriteDifferencesReport(listing, compareFlags.DiffReport, compareFlags.DiffFormat); err != nil {
			return fmt.Errorf("failed to write differences report: %w", err)
		}
	}

	if compareFlags.FailOnDiff && listing.Summary().Differences() > 0 {
		return exitCode(models.StatusPartial.ExitCode(), nil)
	}
	return nil
}
