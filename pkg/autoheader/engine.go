package autoheader

import (
	"context"
	"fmt"
	"log/slog"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/stackvity/autoheader/pkg/autoheader/template"
)

// SaveRequest describes a save-intent from the host: the document about to be
// written and, if the user has one, the active cursor.
type SaveRequest struct {
	Document  Document
	Selection *Position
}

// SavePlan is the engine's answer to a save-intent. Edits is empty when the
// document is not eligible or the edit could not be computed.
type SavePlan struct {
	Mode  EditMode
	Edits []TextEdit
}

// Engine decides and computes header edits for saves and manual insertions.
// It is safe for concurrent use; the only state shared across saves is the
// correction table.
type Engine struct {
	logger      *slog.Logger
	settings    SettingsProvider
	authors     AuthorResolver
	templates   *template.Registry
	now         func() time.Time
	corrections *CorrectionTable
}

// NewEngine creates an Engine from opts. Only Logger is required.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation cannot be nil", ErrConfigValidation)
	}
	provider := opts.SettingsProvider
	if provider == nil {
		provider = StaticSettings(opts.Settings)
	}
	templates := opts.Templates
	if templates == nil {
		var err error
		if templates, err = template.NewRegistry(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigValidation, err)
		}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "headerEngine"))
	logger.Debug("Header templates loaded", "languages", templates.Languages())
	return &Engine{
		logger:      logger,
		settings:    provider,
		authors:     opts.AuthorResolver,
		templates:   templates,
		now:         clock,
		corrections: NewCorrectionTable(),
	}, nil
}

// Corrections exposes the engine's cursor correction table.
func (e *Engine) Corrections() *CorrectionTable { return e.corrections }

// WillSave computes the header edit for a save-intent and records the cursor
// for restoration once the save commits. A save that makes no edit drops any
// entry left behind by an earlier save that never committed. A failure to compute the edit is
// returned alongside an empty plan; hosts should log it and let the save
// proceed.
func (e *Engine) WillSave(ctx context.Context, req SaveRequest) (SavePlan, error) {
	plan, err := e.Plan(ctx, req.Document)
	if err != nil {
		e.corrections.Discard(req.Document.URI)
		return SavePlan{Mode: EditModeNone}, err
	}
	if plan.Mode == EditModeNone {
		e.corrections.Discard(req.Document.URI)
		return plan, nil
	}
	e.corrections.Record(req.Document.URI, req.Selection, plan.Mode)
	return plan, nil
}

// DidSave consumes the correction recorded for uri and returns the cursor
// placements for the given views.
func (e *Engine) DidSave(uri string, views []View) []Selection {
	return e.corrections.RestoreDocument(uri, views)
}

// Plan computes the header edit for doc without touching the correction
// table. Settings are read fresh on every call.
func (e *Engine) Plan(ctx context.Context, doc Document) (SavePlan, error) {
	settings := e.settings.Settings()
	if !IsStructurallySupported(doc.LanguageID) || !IsEnabledForAutoHeader(doc, settings) {
		return SavePlan{Mode: EditModeNone}, nil
	}

	author := e.resolveAuthor(ctx, settings, doc.Path)
	timestamp := e.now().Format(settings.dateLayout())

	if HasHeader(doc.Text) {
		e.logger.Debug("Updating header", "uri", doc.URI)
		return SavePlan{Mode: EditModeUpdate, Edits: []TextEdit{UpdateEdit(doc.Text, author, timestamp)}}, nil
	}

	header, err := e.templates.Generate(doc.LanguageID, fileBaseName(doc.Path), author, timestamp)
	if err != nil {
		e.logger.Warn("Header generation failed, saving without header", "uri", doc.URI, "error", err.Error())
		return SavePlan{Mode: EditModeNone}, fmt.Errorf("%w: %w", ErrHeaderGeneration, err)
	}
	e.logger.Debug("Inserting header", "uri", doc.URI)
	return SavePlan{Mode: EditModeInsert, Edits: []TextEdit{InsertEdit(header)}}, nil
}

// InsertHeader computes the edit for the manual insert command. Unlike saves it
// ignores the enable flags and fails with ErrUnsupportedLanguage or
// ErrHeaderPresent.
func (e *Engine) InsertHeader(ctx context.Context, doc Document) (TextEdit, error) {
	if !IsStructurallySupported(doc.LanguageID) || !e.templates.Supports(doc.LanguageID) {
		return TextEdit{}, ErrUnsupportedLanguage
	}
	if HasHeader(doc.Text) {
		return TextEdit{}, ErrHeaderPresent
	}

	settings := e.settings.Settings()
	author := e.resolveAuthor(ctx, settings, doc.Path)
	header, err := e.templates.Generate(doc.LanguageID, fileBaseName(doc.Path), author, e.now().Format(settings.dateLayout()))
	if err != nil {
		return TextEdit{}, fmt.Errorf("%w: %w", ErrHeaderGeneration, err)
	}
	return InsertEdit(header), nil
}

// resolveAuthor tries the username setting, then the AuthorResolver, then the
// OS account, then DefaultUnknownAuthor.
func (e *Engine) resolveAuthor(ctx context.Context, settings Settings, path string) string {
	if name := strings.TrimSpace(settings.Username); name != "" {
		return name
	}
	if e.authors != nil {
		name, err := e.authors.ResolveAuthor(ctx, path)
		if err != nil {
			e.logger.Debug("Author lookup failed", "path", path, "error", err.Error())
		} else if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	if u, err := user.Current(); err == nil {
		if name := strings.TrimSpace(u.Name); name != "" {
			return name
		}
		if u.Username != "" {
			return u.Username
		}
	}
	return DefaultUnknownAuthor
}

// fileBaseName is the last element of p, extension included.
func fileBaseName(p string) string {
	return filepath.Base(filepath.FromSlash(p))
}
