package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackvity/autoheader/pkg/autoheader"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are the persistent flags every subcommand reads.
type globalFlags struct {
	cfgFile     string
	profileName string
	verbose     bool
}

// newRootCmd builds the command tree. Tests build a fresh tree per case.
func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "autoheader",
		Short: "Maintains standard file headers on Salesforce source files.",
		Long: `autoheader keeps a standardized comment header at the top of Apex, Visualforce
and Lightning component files.

  autoheader serve    runs a language server that stamps headers on save
  autoheader stamp    stamps every eligible file under a directory
  autoheader insert   inserts a header into specific files`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")

	pf := root.PersistentFlags()
	pf.StringVar(&g.cfgFile, "config", "", "Configuration file path (default is search ., $HOME/.config/autoheader/, $HOME/.autoheader/)")
	pf.StringVar(&g.profileName, "profile", "", "Name of configuration profile to use")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	// Header settings apply to every subcommand.
	pf.String("username", "", "Author name stamped into headers (default: git user.name, then the OS user)")
	pf.String("date-format", "", `Go time layout for header dates (default "`+autoheader.DefaultDateFormat+`")`)
	pf.Bool("enable-apex", autoheader.DefaultEnableForApex, "Stamp Apex classes and triggers on save")
	pf.Bool("enable-visualforce", autoheader.DefaultEnableForVisualforce, "Stamp Visualforce pages and components on save")
	pf.Bool("enable-markup", autoheader.DefaultEnableForLightningMarkup, "Stamp Lightning component markup on save")
	pf.Bool("enable-javascript", autoheader.DefaultEnableForLightningJavaScript, "Stamp Lightning component JavaScript on save")

	root.AddCommand(newStampCmd(g), newInsertCmd(g), newServeCmd(g))
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		return 1
	}
	return 0
}
