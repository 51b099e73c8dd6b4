package lsp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/stackvity/autoheader/pkg/autoheader"
)

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if params.InitializationOptions != nil {
		if err := s.applySettings(params.InitializationOptions); err != nil {
			s.logger.Warn("Ignoring invalid initializationOptions", "error", err.Error())
		}
	}

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose:         &protocol.True,
		Change:            &syncKind,
		WillSaveWaitUntil: &protocol.True,
		Save:              true,
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandInsertHeader},
	}

	version := s.version
	s.logger.Info("Client connected", "settings", fmt.Sprintf("%+v", s.settings.Settings()))
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    ServerName,
			Version: &version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	s.logger.Debug("Client initialized")
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	s.logger.Info("Shutdown requested")
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	item := params.TextDocument
	languageID := languageFor(item.LanguageID, URIToPath(item.URI))
	s.docs.open(item.URI, languageID, int32(item.Version), item.Text)
	s.logger.Debug("Document opened", "uri", item.URI, "languageId", languageID)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	doc, ok := s.docs.get(uri)
	if !ok {
		s.logger.Debug("Change for unknown document ignored", "uri", uri)
		return nil
	}

	text := doc.text
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text = c.Text
				continue
			}
			updated, err := autoheader.ApplyEdits(text, []autoheader.TextEdit{{Range: toRange(*c.Range), NewText: c.Text}})
			if err != nil {
				return fmt.Errorf("applying change to %s: %w", uri, err)
			}
			text = updated
		default:
			return fmt.Errorf("unsupported content change %T for %s", change, uri)
		}
	}
	s.docs.update(uri, int32(params.TextDocument.Version), text)
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.docs.close(params.TextDocument.URI)
	s.logger.Debug("Document closed", "uri", params.TextDocument.URI)
	return nil
}

func (s *Server) didChangeSelection(ctx *glsp.Context, params *DidChangeSelectionParams) error {
	var pos *autoheader.Position
	if params.Selection != nil {
		p := toPosition(*params.Selection)
		pos = &p
	}
	if !s.docs.setSelection(params.TextDocument.URI, pos) {
		s.logger.Debug("Selection for unknown document ignored", "uri", params.TextDocument.URI)
	}
	return nil
}

// textDocumentWillSaveWaitUntil returns the header edit for the save. Header
// logic never fails the save: errors are logged and no edit is returned.
func (s *Server) textDocumentWillSaveWaitUntil(ctx *glsp.Context, params *protocol.WillSaveTextDocumentParams) ([]protocol.TextEdit, error) {
	uri := params.TextDocument.URI
	doc, ok := s.docs.get(uri)
	if !ok {
		return nil, nil
	}

	logger := s.logger.With("uri", uri, "saveId", uuid.NewString())
	plan, err := s.engine.WillSave(s.ctx, autoheader.SaveRequest{
		Document:  s.engineDocument(doc),
		Selection: doc.selection,
	})
	if err != nil {
		logger.Warn("Header edit failed, saving without it", "error", err.Error())
		return nil, nil
	}
	if plan.Mode == autoheader.EditModeNone {
		return nil, nil
	}
	logger.Debug("Header edit planned", "mode", string(plan.Mode))
	return fromTextEdits(plan.Edits), nil
}

func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.docs.markSaved(uri)

	var views []autoheader.View
	if _, ok := s.docs.get(uri); ok {
		views = []autoheader.View{{ID: uri, URI: uri}}
	}
	for _, sel := range s.engine.DidSave(uri, views) {
		pos := sel.Position
		s.docs.setSelection(uri, &pos)
		s.showSelection(ctx, sel)
	}
	return nil
}

func (s *Server) workspaceDidChangeConfiguration(ctx *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	if err := s.applySettings(params.Settings); err != nil {
		s.logger.Warn("Ignoring invalid configuration", "error", err.Error())
		return nil
	}
	s.logger.Debug("Settings updated", "settings", fmt.Sprintf("%+v", s.settings.Settings()))
	return nil
}

func (s *Server) workspaceExecuteCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	if params.Command != CommandInsertHeader {
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}
	if len(params.Arguments) != 1 {
		return nil, fmt.Errorf("%s expects a document URI argument", CommandInsertHeader)
	}
	uri, ok := params.Arguments[0].(string)
	if !ok || uri == "" {
		return nil, fmt.Errorf("%s expects a document URI argument, got %T", CommandInsertHeader, params.Arguments[0])
	}

	doc, err := s.commandDocument(uri)
	if err != nil {
		s.showMessage(ctx, protocol.MessageTypeError, err.Error())
		return nil, nil
	}

	edit, err := s.engine.InsertHeader(s.ctx, doc)
	switch {
	case errors.Is(err, autoheader.ErrUnsupportedLanguage):
		s.showMessage(ctx, protocol.MessageTypeError, autoheader.ErrUnsupportedLanguage.Error())
		return nil, nil
	case errors.Is(err, autoheader.ErrHeaderPresent):
		s.showMessage(ctx, protocol.MessageTypeWarning, autoheader.ErrHeaderPresent.Error())
		return nil, nil
	case err != nil:
		s.logger.Error("Manual header insert failed", "uri", uri, "error", err.Error())
		s.showMessage(ctx, protocol.MessageTypeError, err.Error())
		return nil, nil
	}

	label := "Insert file header"
	apply := protocol.ApplyWorkspaceEditParams{
		Label: &label,
		Edit: protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentUri][]protocol.TextEdit{
				uri: fromTextEdits([]autoheader.TextEdit{edit}),
			},
		},
	}
	go func() {
		var result protocol.ApplyWorkspaceEditResponse
		ctx.Call(string(protocol.ServerWorkspaceApplyEdit), apply, &result)
		if !result.Applied {
			s.logger.Debug("Client did not apply header edit", "uri", uri)
		}
	}()
	return nil, nil
}

// commandDocument prefers the open buffer and falls back to the file on disk.
func (s *Server) commandDocument(uri string) (autoheader.Document, error) {
	if doc, ok := s.docs.get(uri); ok {
		return s.engineDocument(doc), nil
	}
	path := URIToPath(uri)
	content, err := os.ReadFile(path)
	if err != nil {
		return autoheader.Document{}, fmt.Errorf("%w: %w", autoheader.ErrReadFailed, err)
	}
	return autoheader.Document{
		URI:        uri,
		Path:       path,
		LanguageID: languageFor("", path),
		Text:       string(content),
	}, nil
}

func (s *Server) engineDocument(doc document) autoheader.Document {
	return autoheader.Document{
		URI:        doc.uri,
		Path:       URIToPath(doc.uri),
		LanguageID: doc.languageID,
		Text:       doc.text,
		Dirty:      doc.dirty,
	}
}

// applySettings overlays the client's settings on the current ones. The
// payload may be the settings object itself or nest it under "autoheader".
func (s *Server) applySettings(raw any) error {
	if raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return err
	}
	if nested, ok := sections[settingsSection]; ok {
		data = nested
	}
	settings := s.settings.Settings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return err
	}
	s.settings.Set(settings)
	return nil
}

// Server-to-client requests block until the client answers, which cannot
// happen while the handler that issues them is still running.

func (s *Server) showSelection(ctx *glsp.Context, sel autoheader.Selection) {
	r := fromRange(autoheader.Range{Start: sel.Position, End: sel.Position})
	params := protocol.ShowDocumentParams{
		URI:       sel.URI,
		TakeFocus: &protocol.True,
		Selection: &r,
	}
	go func() {
		var result any
		ctx.Call(string(protocol.ServerWindowShowDocument), params, &result)
	}()
}

func (s *Server) showMessage(ctx *glsp.Context, kind protocol.MessageType, message string) {
	ctx.Notify(string(protocol.ServerWindowShowMessage), protocol.ShowMessageParams{Type: kind, Message: message})
}
