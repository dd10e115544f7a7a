// Package cli implements the treesync command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "treesync",
		Short: "Compare and synchronize directory trees",
		Long: `treesync compares two directory trees file by file, by metadata or by
content digest, and brings the destination up to date with the source.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewCompareCommand())
	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewDigestCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
