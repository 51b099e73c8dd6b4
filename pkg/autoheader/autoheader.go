// Package autoheader maintains a standardized comment header at the top of
// Salesforce source files (Apex, Visualforce, Lightning markup and script).
//
// The Engine answers save-intents from an editor host with the edit to apply
// and tracks cursor corrections until the save commits. The Stamper drives the
// same save cycle over a directory tree.
package autoheader

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/stackvity/autoheader/pkg/autoheader/encoding"
	"github.com/stackvity/autoheader/pkg/autoheader/language"
)

// Stamp runs a stamp over opts.InputPath and returns the resulting report.
// It is the main entry point for library users that do not need a Stamper.
func Stamp(ctx context.Context, opts Options) (Report, error) {
	stamper, err := NewStamper(ctx, opts)
	if err != nil {
		return Report{}, err
	}
	return stamper.Run()
}

// InsertFile runs the manual insert command against a file on disk. Like
// Engine.InsertHeader it ignores the enable flags and fails with
// ErrUnsupportedLanguage or ErrHeaderPresent. Binary files count as
// unsupported. With opts.DryRun the file is left untouched.
func InsertFile(ctx context.Context, opts Options, path string) (FileInfo, error) {
	if opts.LanguageDetector == nil {
		opts.LanguageDetector = language.NewGoEnryDetector(opts.LanguageDetectionConfidenceThreshold, opts.LanguageMappingsOverride)
	}
	if opts.EncodingHandler == nil {
		opts.EncodingHandler = encoding.NewGoCharsetEncodingHandler(opts.DefaultEncoding)
	}
	if opts.AuthorResolver == nil && opts.GitClient != nil {
		opts.AuthorResolver = opts.GitClient
	}
	engine, err := NewEngine(opts)
	if err != nil {
		return FileInfo{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %w", ErrStatFailed, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	if opts.EncodingHandler.IsBinary(raw) {
		return FileInfo{}, ErrUnsupportedLanguage
	}
	decoded, encodingName, _, err := opts.EncodingHandler.DetectAndDecode(raw)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	hadBOM := bytes.HasPrefix(decoded, encoding.UTF8BOM)
	text := string(bytes.TrimPrefix(decoded, encoding.UTF8BOM))

	languageID, _, _ := opts.LanguageDetector.Detect([]byte(text), path)
	edit, err := engine.InsertHeader(ctx, Document{URI: path, Path: path, LanguageID: languageID, Text: text})
	if err != nil {
		return FileInfo{}, err
	}

	result := FileInfo{Path: path, Language: languageID, Encoding: encodingName, Mode: EditModeInsert}
	if opts.DryRun {
		return result, nil
	}
	stamped, err := ApplyEdits(text, []TextEdit{edit})
	if err != nil {
		return FileInfo{}, err
	}
	out := []byte(stamped)
	if hadBOM {
		out = append(append([]byte{}, encoding.UTF8BOM...), out...)
	}
	encoded, err := opts.EncodingHandler.Encode(out, encodingName)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := os.WriteFile(path, encoded, info.Mode().Perm()); err != nil {
		return FileInfo{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	result.Written = true
	return result, nil
}
