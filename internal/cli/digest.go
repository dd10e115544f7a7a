package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/treesync/pkg/digest"
	"github.com/sdejongh/treesync/pkg/models"
)

// DigestFlags holds digest command flags
type DigestFlags struct {
	Algorithm string
	List      bool
}

var digestFlags DigestFlags

// NewDigestCommand creates the digest command
func NewDigestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest FILE...",
		Short: "Print file digests",
		Long: `Print the content digest of each file, in the same form used by compare --hash.
The algorithm defaults to the one set in the configuration file.`,
		RunE: runDigest,
	}

	cmd.Flags().StringVarP(&digestFlags.Algorithm, "algorithm", "a", "", "digest algorithm")
	cmd.Flags().BoolVar(&digestFlags.List, "list", false, "list supported algorithms")

	return cmd
}

func runDigest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if digestFlags.List {
		for _, alg := range digest.Algorithms() {
			fmt.Fprintln(out, alg)
		}
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("at least one file is required")
	}

	name := digestFlags.Algorithm
	if name == "" {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		name = cfg.Compare.Algorithm
	}
	alg, err := digest.ParseAlgorithm(name)
	if err != nil {
		return err
	}

	hasher, err := digest.NewHasher(alg, 0)
	if err != nil {
		return err
	}
	failed := 0
	for _, path := range args {
		d, err := hasher.File(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return exitCode(models.StatusCancelled.ExitCode(), ctx.Err())
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s  %s\n", d, path)
	}

	if failed > 0 {
		return exitCode(models.StatusPartial.ExitCode(), fmt.Errorf("%d of %d files could not be read", failed, len(args)))
	}
	return nil
}
