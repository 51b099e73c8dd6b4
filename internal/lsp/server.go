// Package lsp exposes the header engine to editors as a language server. The
// host registers willSaveWaitUntil to receive header edits, and the server
// restores cursors after the save with window/showDocument.
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/stackvity/autoheader/pkg/autoheader"
)

const (
	// ServerName is reported to clients in the initialize result.
	ServerName = "autoheader"

	// CommandInsertHeader is the executeCommand name of the manual insert.
	// Its single argument is the document URI.
	CommandInsertHeader = "autoheader.insertHeader"

	// MethodDidChangeSelection is the client notification carrying the active
	// cursor of a document.
	MethodDidChangeSelection = "autoheader/didChangeSelection"

	// settingsSection is the key under which clients nest the settings in
	// initializationOptions and didChangeConfiguration.
	settingsSection = "autoheader"
)

// DidChangeSelectionParams is the payload of MethodDidChangeSelection.
// Selection is nil when the document has no active cursor.
type DidChangeSelectionParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Selection    *protocol.Position              `json:"selection"`
}

// Server holds the header engine and the editor state it needs between the
// two halves of a save.
type Server struct {
	logger   *slog.Logger
	handler  *protocol.Handler
	engine   *autoheader.Engine
	settings *autoheader.SettingsStore
	docs     *documentStore
	version  string
	ctx      context.Context
	debug    bool
}

// NewServer creates the language server. opts supplies the initial settings,
// the logger, the clock and an optional GitClient used for author lookup.
func NewServer(ctx context.Context, opts autoheader.Options, version string) (*Server, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation cannot be nil", autoheader.ErrConfigValidation)
	}
	store := autoheader.NewSettingsStore(opts.Settings)
	opts.SettingsProvider = store
	if opts.AuthorResolver == nil && opts.GitClient != nil {
		opts.AuthorResolver = opts.GitClient
	}
	engine, err := autoheader.NewEngine(opts)
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:   slog.New(opts.Logger).With(slog.String("component", "lsp")),
		engine:   engine,
		settings: store,
		docs:     newDocumentStore(),
		version:  version,
		ctx:      ctx,
		debug:    opts.Verbose,
	}
	s.handler = &protocol.Handler{
		Initialize:                      s.initialize,
		Initialized:                     s.initialized,
		Shutdown:                        s.shutdown,
		SetTrace:                        s.setTrace,
		TextDocumentDidOpen:             s.textDocumentDidOpen,
		TextDocumentDidChange:           s.textDocumentDidChange,
		TextDocumentDidClose:            s.textDocumentDidClose,
		TextDocumentWillSaveWaitUntil:   s.textDocumentWillSaveWaitUntil,
		TextDocumentDidSave:             s.textDocumentDidSave,
		WorkspaceDidChangeConfiguration: s.workspaceDidChangeConfiguration,
		WorkspaceExecuteCommand:         s.workspaceExecuteCommand,
	}
	return s, nil
}

// Handler returns the glsp handler, extended with the selection notification.
func (s *Server) Handler() glsp.Handler {
	return &handler{Handler: s.handler, server: s}
}

// Settings returns the settings currently applied to saves.
func (s *Server) Settings() autoheader.Settings {
	return s.settings.Settings()
}

// RunStdio serves a single client over stdin/stdout until it disconnects.
func (s *Server) RunStdio() error {
	return s.glspServer().RunStdio()
}

// RunTCP serves clients over TCP on address.
func (s *Server) RunTCP(address string) error {
	return s.glspServer().RunTCP(address)
}

func (s *Server) glspServer() *server.Server {
	return server.NewServer(s.Handler(), ServerName, s.debug)
}

// handler routes MethodDidChangeSelection and defers everything else to the
// protocol handler.
type handler struct {
	*protocol.Handler
	server *Server
}

// Handle implements glsp.Handler.
func (h *handler) Handle(ctx *glsp.Context) (r any, validMethod bool, validParams bool, err error) {
	if ctx.Method != MethodDidChangeSelection {
		return h.Handler.Handle(ctx)
	}
	var params DidChangeSelectionParams
	if err = json.Unmarshal(ctx.Params, &params); err != nil {
		return nil, true, false, err
	}
	return nil, true, true, h.server.didChangeSelection(ctx, &params)
}
