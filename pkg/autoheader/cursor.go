package autoheader

import "sync"

// CorrectionState describes whether any save is waiting for cursor restoration.
type CorrectionState string

const (
	StateIdle               CorrectionState = "idle"
	StateAwaitingCorrection CorrectionState = "awaitingCorrection"
)

// Correction is the cursor record captured for one document at save-intent.
// Mode travels with the entry so concurrent saves never share a flag.
type Correction struct {
	Position *Position
	Mode     EditMode
}

// View is a visible editor showing a document.
type View struct {
	ID  string
	URI string
}

// Selection is a restored cursor placement for one view.
type Selection struct {
	ViewID   string
	URI      string
	Position Position
}

// CorrectionTable holds at most one pending Correction per document URI
// between save-intent and save-commit. It is safe for concurrent use.
type CorrectionTable struct {
	mu      sync.Mutex
	entries map[string]Correction
}

// NewCorrectionTable creates an empty table.
func NewCorrectionTable() *CorrectionTable {
	return &CorrectionTable{entries: make(map[string]Correction)}
}

// Record stores the cursor for uri, replacing any earlier entry. selection may
// be nil when the document has no active cursor.
func (t *CorrectionTable) Record(uri string, selection *Position, mode EditMode) {
	var pos *Position
	if selection != nil {
		p := *selection
		pos = &p
	}
	t.mu.Lock()
	t.entries[uri] = Correction{Position: pos, Mode: mode}
	t.mu.Unlock()
}

// Discard drops the entry for uri, if any.
func (t *CorrectionTable) Discard(uri string) {
	t.mu.Lock()
	delete(t.entries, uri)
	t.mu.Unlock()
}

// Pending returns the entry recorded for uri, if any.
func (t *CorrectionTable) Pending(uri string) (Correction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.entries[uri]
	return c, ok
}

// State reports Idle when no entry is pending.
func (t *CorrectionTable) State() CorrectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) == 0 {
		return StateIdle
	}
	return StateAwaitingCorrection
}

// Restore computes corrected selections for every view whose document has a
// pending entry, then clears the table. Views of documents without an entry
// are not included.
func (t *CorrectionTable) Restore(views []View) []Selection {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]Correction)
	t.mu.Unlock()

	return selectionsFor(views, entries)
}

// RestoreDocument is Restore limited to uri; entries for other documents stay pending.
func (t *CorrectionTable) RestoreDocument(uri string, views []View) []Selection {
	t.mu.Lock()
	c, ok := t.entries[uri]
	delete(t.entries, uri)
	t.mu.Unlock()

	if !ok {
		return nil
	}
	return selectionsFor(views, map[string]Correction{uri: c})
}

func selectionsFor(views []View, entries map[string]Correction) []Selection {
	var selections []Selection
	for _, v := range views {
		c, ok := entries[v.URI]
		if !ok {
			continue
		}
		selections = append(selections, Selection{ViewID: v.ID, URI: v.URI, Position: CorrectedPosition(c)})
	}
	return selections
}

// CorrectedPosition maps a recorded cursor to its place after the header edit.
// An insertion pushes the cursor down by HeaderLength lines; an update leaves
// it where it was. Without a recorded cursor the caret lands at the top of the
// file on insert and just below the header on update.
func CorrectedPosition(c Correction) Position {
	if c.Position == nil {
		if c.Mode == EditModeInsert {
			return Position{}
		}
		return Position{Line: HeaderLength}
	}
	pos := *c.Position
	if c.Mode == EditModeInsert {
		pos.Line += HeaderLength
	}
	return pos
}
