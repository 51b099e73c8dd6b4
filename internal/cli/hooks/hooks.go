// Package hooks bridges stamper events to the CLI's terminal UI or log output.
package hooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/stackvity/autoheader/pkg/autoheader"
)

// --- TUI Messages ---

// FileDiscoveredMsg signals that the walker found a file.
type FileDiscoveredMsg struct{ Path string }

// FileStatusUpdateMsg signals a change in a file's status.
type FileStatusUpdateMsg struct {
	Path     string
	Status   autoheader.Status
	Message  string
	Duration time.Duration
}

// RunCompleteMsg signals the end of the stamp run.
type RunCompleteMsg struct{ Report autoheader.Report }

// TUIProgram is the part of *tea.Program the hooks use.
type TUIProgram interface {
	Send(msg any)
}

// NoOpTUIProgram discards every message.
type NoOpTUIProgram struct{}

// Send implements TUIProgram.
func (n *NoOpTUIProgram) Send(msg any) {}

// CLIHooks implements autoheader.Hooks. With the TUI enabled every event is
// forwarded to the Bubble Tea program; otherwise events are logged, verbosely
// or errors only.
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram
}

var _ autoheader.Hooks = (*CLIHooks)(nil)

// NewCLIHooks creates a new CLIHooks. tuiProg may be nil when the TUI is off.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram) *CLIHooks {
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	return &CLIHooks{
		logger:         logger,
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
	}
}

// OnFileDiscovered implements autoheader.Hooks.
func (h *CLIHooks) OnFileDiscovered(path string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileDiscoveredMsg{Path: path})
	} else if h.verboseEnabled {
		h.logger.Debug("File discovered", "path", path)
	}
	return nil
}

// OnFileStatusUpdate implements autoheader.Hooks. It is called concurrently
// from the stamper's workers.
func (h *CLIHooks) OnFileStatusUpdate(path string, status autoheader.Status, message string, duration time.Duration) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileStatusUpdateMsg{Path: path, Status: status, Message: message, Duration: duration})
		return nil
	}

	if status == autoheader.StatusFailed {
		h.logger.Error("File processing failed", "path", path, "error", message)
		return nil
	}
	if !h.verboseEnabled {
		return nil
	}

	attrs := []any{slog.String("path", path), slog.String("status", string(status))}
	if duration > 0 {
		attrs = append(attrs, slog.Duration("duration", duration))
	}
	if message != "" {
		attrs = append(attrs, slog.String("message", message))
	}
	level := slog.LevelDebug
	switch status {
	case autoheader.StatusInserted, autoheader.StatusUpdated:
		level = slog.LevelInfo
	}
	h.logger.Log(context.Background(), level, "File status updated", attrs...)
	return nil
}

// OnRunComplete implements autoheader.Hooks. Outside the TUI the summary is
// printed by the command itself.
func (h *CLIHooks) OnRunComplete(report autoheader.Report) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
	}
	return nil
}
