package lsp

import (
	"net/url"
	"path/filepath"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/stackvity/autoheader/pkg/autoheader"
	"github.com/stackvity/autoheader/pkg/autoheader/language"
)

// URIToPath converts a file:// URI to a filesystem path. Other schemes are
// returned with the scheme stripped so classification still sees the path.
func URIToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return uri
	}
	p := u.Path
	// file:///C:/x parses to /C:/x on Windows hosts.
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

// pathToURI converts an absolute filesystem path to a file:// URI.
func pathToURI(path string) string {
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return (&url.URL{Scheme: "file", Path: slashed}).String()
}

// languageFor returns the client-assigned language ID, falling back to the
// Salesforce extension table when the client sent none.
func languageFor(languageID, path string) string {
	if languageID != "" {
		return languageID
	}
	if id, ok := language.SalesforceExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return id
	}
	return language.PlainText
}

func toPosition(p protocol.Position) autoheader.Position {
	return autoheader.Position{Line: int(p.Line), Character: int(p.Character)}
}

func fromPosition(p autoheader.Position) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(p.Line), Character: protocol.UInteger(p.Character)}
}

func fromRange(r autoheader.Range) protocol.Range {
	return protocol.Range{Start: fromPosition(r.Start), End: fromPosition(r.End)}
}

func toRange(r protocol.Range) autoheader.Range {
	return autoheader.Range{Start: toPosition(r.Start), End: toPosition(r.End)}
}

func fromTextEdits(edits []autoheader.TextEdit) []protocol.TextEdit {
	out := make([]protocol.TextEdit, len(edits))
	for i, e := range edits {
		out[i] = protocol.TextEdit{Range: fromRange(e.Range), NewText: e.NewText}
	}
	return out
}
