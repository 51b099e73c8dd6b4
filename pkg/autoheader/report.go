package autoheader

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Report summarizes the result of a single stamp run.
type Report struct {
	Summary        ReportSummary `json:"summary" yaml:"summary" toml:"summary"`
	ProcessedFiles []FileInfo    `json:"processedFiles" yaml:"processedFiles" toml:"processedFiles"`
	SkippedFiles   []SkippedInfo `json:"skippedFiles" yaml:"skippedFiles" toml:"skippedFiles"`
	Errors         []ErrorInfo   `json:"errors" yaml:"errors" toml:"errors"`
}

// ReportSummary contains aggregated statistics for a stamp run.
type ReportSummary struct {
	RunID              string    `json:"runId" yaml:"runId" toml:"runId"`
	InputPath          string    `json:"inputPath" yaml:"inputPath" toml:"inputPath"`
	ProfileUsed        string    `json:"profileUsed,omitempty" yaml:"profileUsed,omitempty" toml:"profileUsed,omitempty"`
	ConfigFilePath     string    `json:"configFilePath,omitempty" yaml:"configFilePath,omitempty" toml:"configFilePath,omitempty"`
	DryRun             bool      `json:"dryRun" yaml:"dryRun" toml:"dryRun"`
	TotalFilesScanned  int       `json:"totalFilesScanned" yaml:"totalFilesScanned" toml:"totalFilesScanned"`
	InsertedCount      int       `json:"insertedCount" yaml:"insertedCount" toml:"insertedCount"`
	UpdatedCount       int       `json:"updatedCount" yaml:"updatedCount" toml:"updatedCount"`
	UnchangedCount     int       `json:"unchangedCount" yaml:"unchangedCount" toml:"unchangedCount"`
	SkippedCount       int       `json:"skippedCount" yaml:"skippedCount" toml:"skippedCount"`
	ErrorCount         int       `json:"errorCount" yaml:"errorCount" toml:"errorCount"`
	FatalErrorOccurred bool      `json:"fatalError" yaml:"fatalError" toml:"fatalError"`
	DurationSeconds    float64   `json:"durationSeconds" yaml:"durationSeconds" toml:"durationSeconds"`
	CacheEnabled       bool      `json:"cacheEnabled" yaml:"cacheEnabled" toml:"cacheEnabled"`
	Concurrency        int       `json:"concurrency" yaml:"concurrency" toml:"concurrency"`
	Timestamp          time.Time `json:"timestamp" yaml:"timestamp" toml:"timestamp"`
	SchemaVersion      string    `json:"schemaVersion,omitempty" yaml:"schemaVersion,omitempty" toml:"schemaVersion,omitempty"`
}

// FileInfo details a single file that received a header edit.
type FileInfo struct {
	Path       string   `json:"path" yaml:"path" toml:"path"`
	Language   string   `json:"language" yaml:"language" toml:"language"`
	Encoding   string   `json:"encoding" yaml:"encoding" toml:"encoding"`
	Mode       EditMode `json:"mode" yaml:"mode" toml:"mode"`
	Written    bool     `json:"written" yaml:"written" toml:"written"`
	DurationMs int64    `json:"durationMs" yaml:"durationMs" toml:"durationMs"`
}

// SkippedInfo details a file that was intentionally skipped.
type SkippedInfo struct {
	Path    string `json:"path" yaml:"path" toml:"path"`
	Reason  string `json:"reason" yaml:"reason" toml:"reason"`
	Details string `json:"details" yaml:"details" toml:"details"`
}

// ErrorInfo details an error encountered while stamping a specific file.
type ErrorInfo struct {
	Path    string `json:"path" yaml:"path" toml:"path"`
	Error   string `json:"error" yaml:"error" toml:"error"`
	IsFatal bool   `json:"isFatal" yaml:"isFatal" toml:"isFatal"`
}

// Encode writes the report to w in the requested format.
func (r Report) Encode(w io.Writer, format OutputFormat) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case OutputFormatTOML:
		return toml.NewEncoder(w).Encode(r)
	case OutputFormatText, "":
		return r.writeText(w)
	default:
		return fmt.Errorf("%w: unknown output format '%s'", ErrConfigValidation, format)
	}
}

func (r Report) writeText(w io.Writer) error {
	s := r.Summary
	mode := ""
	if s.DryRun {
		mode = " (dry run)"
	}
	_, err := fmt.Fprintf(w,
		"Stamp run %s complete%s in %.2fs: %d scanned, %d inserted, %d updated, %d unchanged, %d skipped, %d errors\n",
		s.RunID, mode, s.DurationSeconds, s.TotalFilesScanned,
		s.InsertedCount, s.UpdatedCount, s.UnchangedCount, s.SkippedCount, s.ErrorCount)
	if err != nil {
		return err
	}
	for _, e := range r.Errors {
		if _, err := fmt.Fprintf(w, "  error: %s: %s\n", e.Path, e.Error); err != nil {
			return err
		}
	}
	return nil
}
