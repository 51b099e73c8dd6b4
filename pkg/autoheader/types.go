package autoheader

// Position is a zero-based line/character location in a document. Character
// offsets are counted in UTF-16 code units, matching editor hosts.
type Position struct {
	Line      int `json:"line" yaml:"line"`
	Character int `json:"character" yaml:"character"`
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// TextEdit replaces the text covered by Range with NewText. A zero-width range
// is a pure insertion.
type TextEdit struct {
	Range   Range  `json:"range" yaml:"range"`
	NewText string `json:"newText" yaml:"newText"`
}

// Document is the host-owned view of an open file. The engine never mutates it;
// it only proposes edits.
type Document struct {
	URI        string
	Path       string
	LanguageID string
	Text       string
	Dirty      bool
}

// EditMode records which kind of header edit a save produced.
type EditMode string

const (
	EditModeNone   EditMode = "none"
	EditModeInsert EditMode = "insert"
	EditModeUpdate EditMode = "update"
)

// Status defines the possible processing states of a file during a stamp run.
type Status string

// Constants representing the defined file processing statuses.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusInserted   Status = "inserted"
	StatusUpdated    Status = "updated"
	StatusUnchanged  Status = "unchanged"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// OnErrorMode defines the behavior when a non-fatal error occurs during file processing.
type OnErrorMode string

const (
	OnErrorContinue OnErrorMode = "continue"
	OnErrorStop     OnErrorMode = "stop"
)

// OutputFormat defines the format for the final summary report printed to standard output when TUI is disabled.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatTOML OutputFormat = "toml"
)

// GitDiffMode defines the strategy for using Git status to filter stamped files.
type GitDiffMode string

const (
	GitDiffModeNone     GitDiffMode = "none"
	GitDiffModeDiffOnly GitDiffMode = "diffOnly"
)
