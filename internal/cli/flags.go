package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/treesync/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"verbose output",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
	cmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "also write logs to file")
	cmd.PersistentFlags().StringVar(&globalFlags.LogFormat, "log-format", "", "log file format: text, json")
	cmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}

// TreeFlags holds the flags shared by every command that compares two trees
type TreeFlags struct {
	Source       string
	Dest         string
	Hash         bool
	Algorithm    string
	Include      string
	ExcludeFiles string
	ExcludeDirs  string
	IgnoreFile   string
	Parallel     int
	Output       string
}

// addTreeFlags registers the tree flags on cmd
func addTreeFlags(cmd *cobra.Command, f *TreeFlags) {
	cmd.Flags().StringVarP(&f.Source, "source", "s", "", "source directory path (required)")
	cmd.Flags().StringVarP(&f.Dest, "dest", "d", "", "destination directory path (required)")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("dest")

	cmd.Flags().BoolVar(&f.Hash, "hash", false, "compare file content digests instead of size and time")
	cmd.Flags().StringVar(&f.Algorithm, "algorithm", "", "digest algorithm (implies --hash): crc16, crc32, md5, sha1, sha256, ...")
	cmd.Flags().StringVar(&f.Include, "include", "", "only consider files matching these globs (';' or ',' separated)")
	cmd.Flags().StringVar(&f.ExcludeFiles, "exclude-files", "", "skip files matching these globs")
	cmd.Flags().StringVar(&f.ExcludeDirs, "exclude-dirs", "", "skip directories matching these globs")
	cmd.Flags().StringVar(&f.IgnoreFile, "ignore-file", "", "gitignore-style file, relative to the source root")
	cmd.Flags().IntVarP(&f.Parallel, "parallel", "p", 0, "number of parallel workers (default: 5)")
	cmd.Flags().StringVarP(&f.Output, "output", "o", "", "output format: human, json")
}
