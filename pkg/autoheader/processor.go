package autoheader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/stackvity/autoheader/pkg/autoheader/cache"
	"github.com/stackvity/autoheader/pkg/autoheader/encoding"
	"github.com/stackvity/autoheader/pkg/autoheader/language"
)

// FileProcessor runs one save cycle against a file on disk: detect its
// language, ask the Engine for a plan, apply it and write the result.
type FileProcessor struct {
	opts             *Options
	engine           *Engine
	cacheManager     cache.CacheManager
	languageDetector language.LanguageDetector
	encodingHandler  encoding.EncodingHandler
	settingsHash     string
	logger           *slog.Logger
}

// NewFileProcessor creates a FileProcessor. settingsHash identifies the header
// settings of the run for cache validation.
func NewFileProcessor(
	opts *Options,
	loggerHandler slog.Handler,
	engine *Engine,
	cacheMgr cache.CacheManager,
	langDet language.LanguageDetector,
	encHandler encoding.EncodingHandler,
	settingsHash string,
) *FileProcessor {
	return &FileProcessor{
		opts:             opts,
		engine:           engine,
		cacheManager:     cacheMgr,
		languageDetector: langDet,
		encodingHandler:  encHandler,
		settingsHash:     settingsHash,
		logger:           slog.New(loggerHandler).With(slog.String("component", "processor")),
	}
}

// ProcessFile stamps absFilePath. result is a FileInfo, SkippedInfo or
// ErrorInfo; err is non-nil only together with an ErrorInfo.
func (p *FileProcessor) ProcessFile(ctx context.Context, absFilePath string) (result any, status Status, err error) {
	start := time.Now()
	relPath, relErr := filepath.Rel(p.opts.InputPath, absFilePath)
	if relErr != nil {
		relPath = filepath.Base(absFilePath)
	}
	relPath = filepath.ToSlash(relPath)
	logger := p.logger.With(slog.String("path", relPath))

	defer func() {
		message := ""
		switch r := result.(type) {
		case SkippedInfo:
			message = r.Details
		case ErrorInfo:
			message = r.Error
		case FileInfo:
			message = string(r.Mode)
		}
		if hookErr := p.opts.EventHooks.OnFileStatusUpdate(relPath, status, message, time.Since(start)); hookErr != nil {
			logger.Warn("Event hook OnFileStatusUpdate failed", slog.String("error", hookErr.Error()))
		}
	}()

	fail := func(base error, cause error) (any, Status, error) {
		wrapped := fmt.Errorf("%w: %w", base, cause)
		return ErrorInfo{Path: relPath, Error: wrapped.Error(), IsFatal: p.opts.OnErrorMode == OnErrorStop}, StatusFailed, wrapped
	}
	skip := func(reason, details string) (any, Status, error) {
		logger.Debug("File skipped", slog.String("reason", reason))
		return SkippedInfo{Path: relPath, Reason: reason, Details: details}, StatusSkipped, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fail(ErrReadFailed, ctxErr)
	}

	info, statErr := os.Stat(absFilePath)
	if statErr != nil {
		return fail(ErrStatFailed, statErr)
	}
	if p.opts.LargeFileThreshold > 0 && info.Size() > p.opts.LargeFileThreshold {
		return skip(SkipReasonLarge, fmt.Sprintf("%d bytes exceeds %d", info.Size(), p.opts.LargeFileThreshold))
	}

	raw, readErr := os.ReadFile(absFilePath)
	if readErr != nil {
		return fail(ErrReadFailed, readErr)
	}
	if p.encodingHandler.IsBinary(raw) {
		return skip(SkipReasonBinary, "binary content")
	}

	hash := contentHash(raw)
	if !p.opts.IgnoreCacheRead && p.cacheManager.Check(relPath, info.ModTime(), hash, p.settingsHash) {
		return skip(SkipReasonCached, CacheStatusHit)
	}

	decoded, encodingName, _, decodeErr := p.encodingHandler.DetectAndDecode(raw)
	if decodeErr != nil {
		return fail(ErrReadFailed, decodeErr)
	}
	hadBOM := bytes.HasPrefix(decoded, encoding.UTF8BOM)
	text := string(bytes.TrimPrefix(decoded, encoding.UTF8BOM))

	languageID, _, langErr := p.languageDetector.Detect([]byte(text), absFilePath)
	if langErr != nil {
		logger.Warn("Language detection failed", slog.String("error", langErr.Error()))
	}
	if !IsStructurallySupported(languageID) {
		return skip(SkipReasonUnsupported, languageID)
	}

	doc := Document{URI: relPath, Path: absFilePath, LanguageID: languageID, Text: text}
	plan, planErr := p.engine.Plan(ctx, doc)
	if planErr != nil {
		return ErrorInfo{Path: relPath, Error: planErr.Error(), IsFatal: p.opts.OnErrorMode == OnErrorStop}, StatusFailed, planErr
	}
	if plan.Mode == EditModeNone {
		return skip(SkipReasonDisabled, languageID)
	}

	stamped, applyErr := ApplyEdits(text, plan.Edits)
	if applyErr != nil {
		return ErrorInfo{Path: relPath, Error: applyErr.Error(), IsFatal: p.opts.OnErrorMode == OnErrorStop}, StatusFailed, applyErr
	}

	fileInfo := FileInfo{
		Path:     relPath,
		Language: languageID,
		Encoding: encodingName,
		Mode:     plan.Mode,
	}
	status = StatusInserted
	if plan.Mode == EditModeUpdate {
		status = StatusUpdated
	}
	if stamped == text {
		status = StatusUnchanged
	}

	if !p.opts.DryRun && status != StatusUnchanged {
		out := []byte(stamped)
		if hadBOM {
			out = append(append([]byte{}, encoding.UTF8BOM...), out...)
		}
		encoded, encErr := p.encodingHandler.Encode(out, encodingName)
		if encErr != nil {
			return fail(ErrWriteFailed, encErr)
		}
		if writeErr := os.WriteFile(absFilePath, encoded, info.Mode().Perm()); writeErr != nil {
			return fail(ErrWriteFailed, writeErr)
		}
		fileInfo.Written = true
		raw = encoded
	}

	if !p.opts.DryRun {
		if written, statErr := os.Stat(absFilePath); statErr == nil {
			entry := cache.CacheEntry{
				ModTime:      written.ModTime(),
				ContentHash:  contentHash(raw),
				SettingsHash: p.settingsHash,
				Mode:         string(plan.Mode),
			}
			if cacheErr := p.cacheManager.Update(relPath, entry); cacheErr != nil {
				logger.Warn("Failed to update cache entry", slog.String("error", cacheErr.Error()))
			}
		}
	}

	fileInfo.DurationMs = time.Since(start).Milliseconds()
	logger.Debug("File stamped", slog.String("mode", string(plan.Mode)), slog.Bool("written", fileInfo.Written))
	return fileInfo, status, nil
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
