package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stackvity/autoheader/internal/cli"
	"github.com/stackvity/autoheader/internal/cli/config"
	"github.com/stackvity/autoheader/pkg/autoheader"
)

func newStampCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stamp -i <inputDir>",
		Short: "Insert or update headers on every eligible file under a directory",
		Long: `stamp walks a directory tree and runs the same save cycle an editor would on
each file: a header is inserted when missing and its Last Modified fields are
refreshed when present. Files that did not change since the last run are
skipped using the stamp cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			opts, logger, err := config.LoadAndValidate(g.cfgFile, g.profileName, version, cmd.Flags())
			if err != nil {
				return err
			}
			return cli.Run(ctx, opts, logger, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringP("input", "i", "", "Directory to stamp")
	f.Bool("no-tui", false, "Disable interactive Terminal UI even if in a TTY")
	f.StringArray("ignore", []string{}, "Glob patterns for files/directories to ignore (can be specified multiple times)")
	f.String("on-error", string(autoheader.DefaultOnErrorMode), `Behavior on file errors ("continue" or "stop")`)
	f.Int("concurrency", autoheader.DefaultConcurrency, "Number of parallel workers (0 for auto-detect CPU cores)")
	f.Bool("no-cache", false, "Ignore cache reads (still writes cache)")
	f.Bool("clear-cache", false, "Delete the cache file before starting")
	f.Bool("git-diff-only", autoheader.DefaultGitDiffOnly, "Stamp only files modified, added or untracked in Git")
	f.String("output-format", string(autoheader.DefaultOutputFormat), `Final report format ("text", "json", "yaml", "toml")`)
	f.Int64("large-file-threshold", autoheader.DefaultLargeFileThresholdMB, "Files larger than this many megabytes are skipped")
	f.String("default-encoding", "", "Encoding assumed when detection is inconclusive")
	f.Bool("dry-run", autoheader.DefaultDryRun, "Report what would change without writing files")
	return cmd
}
