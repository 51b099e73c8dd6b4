// Package cli wires validated options to a batch stamp run and renders its
// progress and result.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/stackvity/autoheader/internal/cli/hooks"
	"github.com/stackvity/autoheader/internal/cli/ui"
	"github.com/stackvity/autoheader/pkg/autoheader"
)

// ErrFilesFailed is returned when the run completed but some files could not
// be stamped. The report has already been written when it is returned.
var ErrFilesFailed = errors.New("one or more files failed to stamp")

// isTerminal reports whether the TUI can draw on fd.
var isTerminal = func(fd int) bool { return term.IsTerminal(fd) }

// Run executes a stamp run with the given options and writes the final
// report to out in opts.OutputFormat.
func Run(ctx context.Context, opts autoheader.Options, logger *slog.Logger, out io.Writer) error {
	useTUI := opts.TuiEnabled && !opts.Verbose && isTerminal(int(os.Stderr.Fd()))

	var (
		report autoheader.Report
		err    error
	)
	if useTUI {
		report, err = runWithTUI(ctx, opts, logger)
	} else {
		opts.EventHooks = hooks.NewCLIHooks(logger, false, opts.Verbose, nil)
		report, err = autoheader.Stamp(ctx, opts)
	}
	if err != nil && report.Summary.RunID == "" {
		logger.Error("Stamp run failed", slog.Any("error", err))
		return err
	}

	if encErr := report.Encode(out, opts.OutputFormat); encErr != nil {
		return fmt.Errorf("failed to write report: %w", encErr)
	}
	if err != nil {
		logger.Error("Stamp run halted", slog.Any("error", err))
		return err
	}

	logger.Debug("Stamp run finished",
		slog.Int("inserted", report.Summary.InsertedCount),
		slog.Int("updated", report.Summary.UpdatedCount),
		slog.Int("errors", report.Summary.ErrorCount),
	)
	if report.Summary.ErrorCount > 0 {
		return ErrFilesFailed
	}
	return nil
}

// runWithTUI drives the stamper from a goroutine while the Bubble Tea program
// owns the terminal. Quitting the TUI cancels the run.
func runWithTUI(ctx context.Context, opts autoheader.Options, logger *slog.Logger) (autoheader.Report, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(ui.NewModel(opts.AppVersion), tea.WithContext(runCtx), tea.WithOutput(os.Stderr))
	opts.EventHooks = hooks.NewCLIHooks(logger, true, false, program)

	type result struct {
		report autoheader.Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		r, err := autoheader.Stamp(runCtx, opts)
		done <- result{r, err}
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Warn("TUI exited with error", slog.Any("error", err))
	}
	cancel()
	res := <-done
	return res.report, res.err
}
