package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stackvity/autoheader/internal/cli/config"
	"github.com/stackvity/autoheader/pkg/autoheader"
)

// errInsertFailed reports that at least one file was not stamped. The reason
// for each file has already been printed.
var errInsertFailed = errors.New("header not inserted into every file")

func newInsertCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert FILE...",
		Short: "Insert a header into the given files",
		Long: `insert adds a header to each file regardless of the enable flags. It refuses
files whose language has no header template and files whose first line already
opens a comment.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, logger, err := config.LoadSettings(g.cfgFile, g.profileName, version, cmd.Flags())
			if err != nil {
				return err
			}

			failed := false
			for _, arg := range args {
				path, absErr := filepath.Abs(arg)
				if absErr != nil {
					path = arg
				}
				info, err := autoheader.InsertFile(cmd.Context(), opts, path)
				if err != nil {
					failed = true
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", arg, err)
					logger.Debug("Insert failed", "path", path, "error", err.Error())
					continue
				}
				verb := "inserted header"
				if !info.Written {
					verb = "would insert header"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", arg, verb, info.Language)
			}
			if failed {
				return errInsertFailed
			}
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "Check the files without writing them")
	return cmd
}
