package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/stackvity/autoheader/internal/cli/config"
	"github.com/stackvity/autoheader/internal/lsp"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		listen  string
		tcp     string
		logFile string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the header language server",
		Long: `serve speaks the Language Server Protocol over stdio (the default), TCP or
WebSocket. Editors register textDocument/willSaveWaitUntil to receive header
edits and the autoheader.insertHeader command for manual insertion.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" && tcp != "" {
				return fmt.Errorf("--listen and --tcp are mutually exclusive")
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			opts, logger, err := config.LoadSettings(g.cfgFile, g.profileName, version, cmd.Flags())
			if err != nil {
				return err
			}

			verbosity := 1
			if opts.Verbose {
				verbosity = 2
			}
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("cannot open log file: %w", err)
				}
				defer f.Close()
				level := slog.LevelInfo
				if opts.Verbose {
					level = slog.LevelDebug
				}
				opts.Logger = slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
				logger = slog.New(opts.Logger)
				commonlog.Configure(verbosity, &logFile)
			} else {
				// Protocol traffic owns stdout; glsp logs go to stderr.
				commonlog.Configure(verbosity, nil)
			}

			if listen != "" {
				return lsp.NewWebSocketHandler(ctx, opts, version).ListenAndServe(listen)
			}
			server, err := lsp.NewServer(ctx, opts, version)
			if err != nil {
				return err
			}
			if tcp != "" {
				logger.Info("Serving over TCP", "addr", tcp)
				return server.RunTCP(tcp)
			}
			logger.Debug("Serving over stdio")
			return server.RunStdio()
		},
	}

	f := cmd.Flags()
	f.StringVar(&listen, "listen", "", "Serve WebSocket sessions on this address (e.g. :7998) instead of stdio")
	f.StringVar(&tcp, "tcp", "", "Serve over TCP on this address instead of stdio")
	f.StringVar(&logFile, "logfile", "", "Write server logs to this file instead of stderr")
	return cmd
}
