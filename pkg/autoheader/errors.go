package autoheader

import "errors"

// --- Exported Error Variables ---
// Callers check against these using errors.Is.

var (
	// ErrUnsupportedLanguage is returned by InsertHeader when the document's
	// language has no header generator. Its text is shown to users verbatim.
	ErrUnsupportedLanguage = errors.New("unsupported file type and/or language")

	// ErrHeaderPresent is returned by InsertHeader when the first line already
	// opens a comment. Its text is shown to users verbatim.
	ErrHeaderPresent = errors.New("header already present on file's first line")

	// ErrInvalidEdit indicates an edit whose range lies outside the document or
	// overlaps another edit in the same batch.
	ErrInvalidEdit = errors.New("invalid text edit")

	// ErrHeaderGeneration wraps a template failure while rendering a new header.
	// Automatic saves log it and proceed without an edit.
	ErrHeaderGeneration = errors.New("failed to generate header")

	// ErrReadFailed indicates a failure to read a source file from the filesystem.
	// May be returned wrapped by Stamper.Run if fatal, or included in Report.Errors if non-fatal.
	ErrReadFailed = errors.New("failed to read file")

	// ErrStatFailed indicates a failure to get file statistics using os.Stat.
	ErrStatFailed = errors.New("failed to get file stats")

	// ErrBinaryFile indicates that a file was detected as binary.
	ErrBinaryFile = errors.New("binary file encountered")

	// ErrWriteFailed indicates a failure to write the stamped content back to disk.
	// This might be due to permissions, disk space exhaustion, or other filesystem I/O errors.
	ErrWriteFailed = errors.New("failed to write file")

	// ErrConfigValidation indicates that the provided Options struct failed validation checks
	// (e.g., missing logger, invalid paths, invalid modes).
	// This is typically returned directly as a fatal error.
	ErrConfigValidation = errors.New("invalid configuration options provided")
)
