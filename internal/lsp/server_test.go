package lsp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/stackvity/autoheader/internal/testutil"
	"github.com/stackvity/autoheader/pkg/autoheader"
)

const apexURI = "file:///work/force-app/main/default/classes/Foo.cls"

var fixedNow = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

type clientCall struct {
	method string
	params any
}

// fakeClient records what the server sends back to the editor.
type fakeClient struct {
	mu            sync.Mutex
	notifications []clientCall
	calls         chan clientCall
}

func newFakeClient() *fakeClient {
	return &fakeClient{calls: make(chan clientCall, 16)}
}

func (c *fakeClient) context(method string, params json.RawMessage) *glsp.Context {
	return &glsp.Context{
		Method: method,
		Params: params,
		Notify: func(method string, params any) {
			c.mu.Lock()
			c.notifications = append(c.notifications, clientCall{method, params})
			c.mu.Unlock()
		},
		Call: func(method string, params any, result any) {
			if r, ok := result.(*protocol.ApplyWorkspaceEditResponse); ok {
				r.Applied = true
			}
			c.calls <- clientCall{method, params}
		},
	}
}

func (c *fakeClient) nextCall(t *testing.T) clientCall {
	t.Helper()
	select {
	case call := <-c.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a client request")
		return clientCall{}
	}
}

func (c *fakeClient) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case call := <-c.calls:
		t.Fatalf("unexpected client request %s", call.method)
	case <-time.After(50 * time.Millisecond):
	}
}

func (c *fakeClient) messages() []protocol.ShowMessageParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []protocol.ShowMessageParams
	for _, n := range c.notifications {
		if n.method == string(protocol.ServerWindowShowMessage) {
			out = append(out, n.params.(protocol.ShowMessageParams))
		}
	}
	return out
}

func testSettings() autoheader.Settings {
	s := autoheader.DefaultSettings()
	s.EnableForApex = true
	s.EnableForVisualforce = true
	s.Username = "Jane Doe"
	return s
}

func newTestServer(t *testing.T) (*Server, *fakeClient) {
	t.Helper()
	s, err := NewServer(context.Background(), autoheader.Options{
		Settings: testSettings(),
		Logger:   testutil.DiscardHandler(),
		Clock:    func() time.Time { return fixedNow },
	}, "1.0.0")
	require.NoError(t, err)
	return s, newFakeClient()
}

func openDoc(t *testing.T, s *Server, c *fakeClient, uri, languageID, text string) {
	t.Helper()
	require.NoError(t, s.textDocumentDidOpen(c.context(string(protocol.MethodTextDocumentDidOpen), nil), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: languageID, Version: 1, Text: text},
	}))
}

func selectAt(t *testing.T, s *Server, c *fakeClient, uri string, line, char uint32) {
	t.Helper()
	require.NoError(t, s.didChangeSelection(c.context(MethodDidChangeSelection, nil), &DidChangeSelectionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Selection:    &protocol.Position{Line: line, Character: char},
	}))
}

func willSave(t *testing.T, s *Server, c *fakeClient, uri string) []protocol.TextEdit {
	t.Helper()
	edits, err := s.textDocumentWillSaveWaitUntil(c.context(string(protocol.MethodTextDocumentWillSaveWaitUntil), nil), &protocol.WillSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Reason:       protocol.TextDocumentSaveReasonManual,
	})
	require.NoError(t, err)
	return edits
}

func didSave(t *testing.T, s *Server, c *fakeClient, uri string) {
	t.Helper()
	require.NoError(t, s.textDocumentDidSave(c.context(string(protocol.MethodTextDocumentDidSave), nil), &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))
}

func replaceText(t *testing.T, s *Server, c *fakeClient, uri, text string) {
	t.Helper()
	require.NoError(t, s.textDocumentDidChange(c.context(string(protocol.MethodTextDocumentDidChange), nil), &protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri}, Version: 2},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: text}},
	}))
}

func applyEdits(t *testing.T, text string, edits []protocol.TextEdit) string {
	t.Helper()
	converted := make([]autoheader.TextEdit, len(edits))
	for i, e := range edits {
		converted[i] = autoheader.TextEdit{Range: toRange(e.Range), NewText: e.NewText}
	}
	out, err := autoheader.ApplyEdits(text, converted)
	require.NoError(t, err)
	return out
}

func requireShowDocument(t *testing.T, c *fakeClient, uri string, line, char uint32) {
	t.Helper()
	call := c.nextCall(t)
	require.Equal(t, string(protocol.ServerWindowShowDocument), call.method)
	params := call.params.(protocol.ShowDocumentParams)
	assert.Equal(t, uri, params.URI)
	require.NotNil(t, params.Selection)
	want := protocol.Position{Line: line, Character: char}
	assert.Equal(t, want, params.Selection.Start)
	assert.Equal(t, want, params.Selection.End)
}

func TestNewServer_RequiresLogger(t *testing.T) {
	_, err := NewServer(context.Background(), autoheader.Options{}, "1")
	assert.ErrorIs(t, err, autoheader.ErrConfigValidation)
}

func TestInitialize(t *testing.T) {
	s, c := newTestServer(t)

	result, err := s.initialize(c.context(string(protocol.MethodInitialize), nil), &protocol.InitializeParams{
		InitializationOptions: map[string]any{
			"autoheader": map[string]any{"username": "Init User", "enableForVisualforce": false},
		},
	})
	require.NoError(t, err)

	res, ok := result.(protocol.InitializeResult)
	require.True(t, ok)
	require.NotNil(t, res.ServerInfo)
	assert.Equal(t, ServerName, res.ServerInfo.Name)
	assert.Equal(t, "1.0.0", *res.ServerInfo.Version)

	syncOpts, ok := res.Capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions)
	require.True(t, ok)
	assert.Equal(t, protocol.TextDocumentSyncKindFull, *syncOpts.Change)
	assert.True(t, *syncOpts.WillSaveWaitUntil)
	assert.True(t, *syncOpts.OpenClose)
	require.NotNil(t, res.Capabilities.ExecuteCommandProvider)
	assert.Equal(t, []string{CommandInsertHeader}, res.Capabilities.ExecuteCommandProvider.Commands)

	settings := s.Settings()
	assert.Equal(t, "Init User", settings.Username)
	assert.False(t, settings.EnableForVisualforce)
	assert.True(t, settings.EnableForApex, "keys the client omits keep their value")
}

func TestSaveCycle_InsertThenUpdate(t *testing.T) {
	s, c := newTestServer(t)
	original := "public class Foo {\n}\n"
	openDoc(t, s, c, apexURI, "apex", original)
	selectAt(t, s, c, apexURI, 5, 3)

	edits := willSave(t, s, c, apexURI)
	require.Len(t, edits, 1)
	assert.Equal(t, protocol.Range{}, edits[0].Range)
	assert.True(t, strings.HasPrefix(edits[0].NewText, "/**\n"))
	assert.Contains(t, edits[0].NewText, "@File Name: Foo.cls")
	assert.Contains(t, edits[0].NewText, "Jane Doe")
	assert.Contains(t, edits[0].NewText, "3/5/2024, 2:07:09 PM")

	stamped := applyEdits(t, original, edits)
	assert.True(t, strings.HasSuffix(stamped, original))
	replaceText(t, s, c, apexURI, stamped)

	didSave(t, s, c, apexURI)
	requireShowDocument(t, c, apexURI, 5+autoheader.HeaderLength, 3)

	t.Run("second save updates in place", func(t *testing.T) {
		selectAt(t, s, c, apexURI, 5, 3)
		edits := willSave(t, s, c, apexURI)
		require.Len(t, edits, 1)
		updated := applyEdits(t, stamped, edits)
		assert.Equal(t, strings.Count(stamped, "\n"), strings.Count(updated, "\n"))

		didSave(t, s, c, apexURI)
		requireShowDocument(t, c, apexURI, 5, 3)
	})

	t.Run("update without cursor lands below the header", func(t *testing.T) {
		require.NoError(t, s.didChangeSelection(c.context(MethodDidChangeSelection, nil), &DidChangeSelectionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: apexURI},
		}))
		require.Len(t, willSave(t, s, c, apexURI), 1)
		didSave(t, s, c, apexURI)
		requireShowDocument(t, c, apexURI, autoheader.HeaderLength, 0)
	})
}

func TestSaveCycle_NotEligible(t *testing.T) {
	testCases := []struct {
		name       string
		uri        string
		languageID string
		text       string
	}{
		{"plaintext", "file:///work/notes.txt", "plaintext", "hello\n"},
		{"javascript disabled by default", "file:///work/lwc/foo/foo.js", "javascript", "export default {}\n"},
		{"markup outside a bundle", "file:///work/pages/foo.html", "html", "<template></template>\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, c := newTestServer(t)
			openDoc(t, s, c, tc.uri, tc.languageID, tc.text)
			assert.Empty(t, willSave(t, s, c, tc.uri))
			didSave(t, s, c, tc.uri)
			c.assertNoCall(t)
		})
	}

	t.Run("unknown document", func(t *testing.T) {
		s, c := newTestServer(t)
		assert.Empty(t, willSave(t, s, c, "file:///work/closed.cls"))
	})
}

func TestDidOpen_InfersLanguageFromExtension(t *testing.T) {
	s, c := newTestServer(t)
	openDoc(t, s, c, "file:///work/pages/Home.page", "", "<apex:page>\n</apex:page>\n")

	edits := willSave(t, s, c, "file:///work/pages/Home.page")
	require.Len(t, edits, 1)
	assert.True(t, strings.HasPrefix(edits[0].NewText, "<!--\n"))
	didSave(t, s, c, "file:///work/pages/Home.page")
	requireShowDocument(t, c, "file:///work/pages/Home.page", 0, 0)
}

func TestDidChange(t *testing.T) {
	s, c := newTestServer(t)
	openDoc(t, s, c, apexURI, "apex", "public class Foo {\n}\n")

	start := protocol.Position{Line: 0, Character: 13}
	end := protocol.Position{Line: 0, Character: 16}
	require.NoError(t, s.textDocumentDidChange(c.context(string(protocol.MethodTextDocumentDidChange), nil), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: apexURI}, Version: 2},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEvent{Range: &protocol.Range{Start: start, End: end}, Text: "Bar"},
		},
	}))

	doc, ok := s.docs.get(apexURI)
	require.True(t, ok)
	assert.Equal(t, "public class Bar {\n}\n", doc.text)
	assert.Equal(t, int32(2), doc.version)
	assert.True(t, doc.dirty)

	replaceText(t, s, c, apexURI, "x")
	doc, _ = s.docs.get(apexURI)
	assert.Equal(t, "x", doc.text)

	didSave(t, s, c, apexURI)
	doc, _ = s.docs.get(apexURI)
	assert.False(t, doc.dirty)

	require.NoError(t, s.textDocumentDidClose(c.context(string(protocol.MethodTextDocumentDidClose), nil), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: apexURI},
	}))
	_, ok = s.docs.get(apexURI)
	assert.False(t, ok)
}

func TestDidChangeConfiguration(t *testing.T) {
	s, c := newTestServer(t)
	openDoc(t, s, c, apexURI, "apex", "public class Foo {}\n")

	require.NoError(t, s.workspaceDidChangeConfiguration(c.context(string(protocol.MethodWorkspaceDidChangeConfiguration), nil), &protocol.DidChangeConfigurationParams{
		Settings: map[string]any{"autoheader": map[string]any{"enableForApex": false}},
	}))
	assert.Empty(t, willSave(t, s, c, apexURI), "settings are read on every save")

	require.NoError(t, s.workspaceDidChangeConfiguration(c.context(string(protocol.MethodWorkspaceDidChangeConfiguration), nil), &protocol.DidChangeConfigurationParams{
		Settings: map[string]any{"enableForApex": true, "dateFormat": "2006-01-02"},
	}))
	edits := willSave(t, s, c, apexURI)
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0].NewText, "2024-03-05")

	t.Run("invalid payload keeps settings", func(t *testing.T) {
		before := s.Settings()
		require.NoError(t, s.workspaceDidChangeConfiguration(c.context(string(protocol.MethodWorkspaceDidChangeConfiguration), nil), &protocol.DidChangeConfigurationParams{
			Settings: []any{"nope"},
		}))
		assert.Equal(t, before, s.Settings())
	})
}

func executeInsert(t *testing.T, s *Server, c *fakeClient, args ...any) error {
	t.Helper()
	_, err := s.workspaceExecuteCommand(c.context(string(protocol.MethodWorkspaceExecuteCommand), nil), &protocol.ExecuteCommandParams{
		Command:   CommandInsertHeader,
		Arguments: args,
	})
	return err
}

func TestExecuteCommand_InsertHeader(t *testing.T) {
	t.Run("open document", func(t *testing.T) {
		s, c := newTestServer(t)
		openDoc(t, s, c, apexURI, "apex", "public class Foo {}\n")
		require.NoError(t, executeInsert(t, s, c, apexURI))

		call := c.nextCall(t)
		require.Equal(t, string(protocol.ServerWorkspaceApplyEdit), call.method)
		params := call.params.(protocol.ApplyWorkspaceEditParams)
		edits := params.Edit.Changes[apexURI]
		require.Len(t, edits, 1)
		assert.Equal(t, protocol.Range{}, edits[0].Range)
		assert.Contains(t, edits[0].NewText, "@File Name: Foo.cls")
		assert.Empty(t, c.messages())
	})

	t.Run("ignores enable flags", func(t *testing.T) {
		s, c := newTestServer(t)
		uri := "file:///work/lwc/foo/foo.js"
		openDoc(t, s, c, uri, "javascript", "export default {}\n")
		require.NoError(t, executeInsert(t, s, c, uri))
		assert.Equal(t, string(protocol.ServerWorkspaceApplyEdit), c.nextCall(t).method)
	})

	t.Run("file on disk", func(t *testing.T) {
		s, c := newTestServer(t)
		path := filepath.Join(t.TempDir(), "Trigger.trigger")
		require.NoError(t, os.WriteFile(path, []byte("trigger T on Account (before insert) {}\n"), 0o644))
		uri := pathToURI(path)

		require.NoError(t, executeInsert(t, s, c, uri))
		call := c.nextCall(t)
		params := call.params.(protocol.ApplyWorkspaceEditParams)
		require.Len(t, params.Edit.Changes[uri], 1)
		assert.Contains(t, params.Edit.Changes[uri][0].NewText, "@File Name: Trigger.trigger")
	})

	messageCases := []struct {
		name     string
		uri      string
		language string
		text     string
		wantType protocol.MessageType
		wantMsg  string
	}{
		{"unsupported language", "file:///work/notes.txt", "plaintext", "hi\n", protocol.MessageTypeError, "unsupported file type and/or language"},
		{"header present", apexURI, "apex", "/**\n * @File Name: Foo.cls\n**/\n", protocol.MessageTypeWarning, "header already present on file's first line"},
	}
	for _, tc := range messageCases {
		t.Run(tc.name, func(t *testing.T) {
			s, c := newTestServer(t)
			openDoc(t, s, c, tc.uri, tc.language, tc.text)
			require.NoError(t, executeInsert(t, s, c, tc.uri))

			msgs := c.messages()
			require.Len(t, msgs, 1)
			assert.Equal(t, tc.wantType, msgs[0].Type)
			assert.Equal(t, tc.wantMsg, msgs[0].Message)
			c.assertNoCall(t)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		s, c := newTestServer(t)
		require.NoError(t, executeInsert(t, s, c, pathToURI(filepath.Join(t.TempDir(), "Gone.cls"))))
		msgs := c.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, protocol.MessageTypeError, msgs[0].Type)
	})

	t.Run("bad arguments", func(t *testing.T) {
		s, c := newTestServer(t)
		assert.Error(t, executeInsert(t, s, c))
		assert.Error(t, executeInsert(t, s, c, 42))
		_, err := s.workspaceExecuteCommand(c.context(string(protocol.MethodWorkspaceExecuteCommand), nil), &protocol.ExecuteCommandParams{Command: "other"})
		assert.Error(t, err)
	})
}

func TestHandler_DidChangeSelection(t *testing.T) {
	s, c := newTestServer(t)
	openDoc(t, s, c, apexURI, "apex", "public class Foo {}\n")
	h := s.Handler()

	params := json.RawMessage(`{"textDocument":{"uri":"` + apexURI + `"},"selection":{"line":7,"character":2}}`)
	_, validMethod, validParams, err := h.Handle(c.context(MethodDidChangeSelection, params))
	require.NoError(t, err)
	assert.True(t, validMethod)
	assert.True(t, validParams)

	doc, _ := s.docs.get(apexURI)
	require.NotNil(t, doc.selection)
	assert.Equal(t, autoheader.Position{Line: 7, Character: 2}, *doc.selection)

	_, validMethod, validParams, err = h.Handle(c.context(MethodDidChangeSelection, json.RawMessage(`{"selection":"x"}`)))
	assert.Error(t, err)
	assert.True(t, validMethod)
	assert.False(t, validParams)
}

func TestHandler_DelegatesInitialize(t *testing.T) {
	s, c := newTestServer(t)
	result, validMethod, validParams, err := s.Handler().Handle(c.context(string(protocol.MethodInitialize), json.RawMessage(`{"capabilities":{}}`)))
	require.NoError(t, err)
	assert.True(t, validMethod)
	assert.True(t, validParams)
	assert.IsType(t, protocol.InitializeResult{}, result)
}
