package lsp

import (
	"sync"

	"github.com/stackvity/autoheader/pkg/autoheader"
)

// document is the server's mirror of an open editor buffer.
type document struct {
	uri        string
	languageID string
	version    int32
	text       string
	// selection is the last cursor the client reported, nil if none.
	selection *autoheader.Position
	dirty     bool
}

// documentStore tracks open documents by URI. It is safe for concurrent use.
type documentStore struct {
	mu   sync.RWMutex
	docs map[string]*document
}

func newDocumentStore() *documentStore {
	return &documentStore{docs: make(map[string]*document)}
}

func (s *documentStore) open(uri, languageID string, version int32, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = &document{uri: uri, languageID: languageID, version: version, text: text}
}

// update replaces the text of uri. It returns false if the document is not open.
func (s *documentStore) update(uri string, version int32, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return false
	}
	doc.version = version
	doc.text = text
	doc.dirty = true
	return true
}

func (s *documentStore) setSelection(uri string, pos *autoheader.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return false
	}
	if pos == nil {
		doc.selection = nil
		return true
	}
	p := *pos
	doc.selection = &p
	return true
}

func (s *documentStore) markSaved(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[uri]; ok {
		doc.dirty = false
	}
}

func (s *documentStore) close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

// get returns a copy of the document so callers can read it without the lock.
func (s *documentStore) get(uri string) (document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	if !ok {
		return document{}, false
	}
	cp := *doc
	if doc.selection != nil {
		p := *doc.selection
		cp.selection = &p
	}
	return cp, true
}
