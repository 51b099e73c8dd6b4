package autoheader

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/stackvity/autoheader/pkg/autoheader/template"
)

// Field patterns for the two header lines rewritten on every save. They match
// the exact "@Last Modified By:" spelling; headers written differently are left
// alone.
var (
	lastModifiedByPattern = regexp.MustCompile(`(?m)^([ \t]*\**[ \t]*@Last Modified By:)[^\r\n]*`)
	lastModifiedOnPattern = regexp.MustCompile(`(?m)^([ \t]*\**[ \t]*@Last Modified On:)[^\r\n]*`)
)

// InsertEdit returns a zero-width edit at the start of the document carrying header.
func InsertEdit(header string) TextEdit {
	return TextEdit{Range: Range{}, NewText: header}
}

// UpdateEdit returns an edit replacing the whole document with text whose
// "Last Modified" fields carry author and timestamp.
func UpdateEdit(text, author, timestamp string) TextEdit {
	return TextEdit{
		Range:   FullRange(text),
		NewText: UpdateFields(text, author, timestamp),
	}
}

// UpdateFields rewrites the values of the first "@Last Modified By" and
// "@Last Modified On" lines of the leading comment block. Text without a
// leading comment is returned unchanged. Every other byte, including carriage
// returns, is preserved, so the line count never changes.
func UpdateFields(text, author, timestamp string) string {
	end := headerBlockEnd(text)
	head := replaceFieldValue(lastModifiedByPattern, text[:end], author)
	head = replaceFieldValue(lastModifiedOnPattern, head, timestamp)
	return head + text[end:]
}

// headerBlockEnd returns the offset just past the line that closes the comment
// opened on the first line, or len(text) when it is never closed. It is 0 when
// the first line opens no comment.
func headerBlockEnd(text string) int {
	loc := headerOpenPattern.FindStringIndex(text)
	if loc == nil || !HasHeader(text) {
		return 0
	}
	closer := "*/"
	if strings.HasSuffix(text[:loc[1]], "<!--") {
		closer = "-->"
	}
	i := strings.Index(text[loc[1]:], closer)
	if i < 0 {
		return len(text)
	}
	end := loc[1] + i + len(closer)
	if nl := strings.IndexByte(text[end:], '\n'); nl >= 0 {
		return end + nl + 1
	}
	return len(text)
}

// replaceFieldValue swaps the value after the first match of pattern for value.
func replaceFieldValue(pattern *regexp.Regexp, text, value string) string {
	m := pattern.FindStringSubmatchIndex(text)
	if m == nil {
		return text
	}
	return text[:m[3]] + " " + template.SingleLine(value) + text[m[1]:]
}

// FullRange returns the range from (0,0) to the end of the last line of text,
// with the final character offset in UTF-16 code units.
func FullRange(text string) Range {
	lastLine := strings.Count(text, "\n")
	tail := text[strings.LastIndex(text, "\n")+1:]
	return Range{End: Position{Line: lastLine, Character: utf16Len(tail)}}
}

// ApplyEdits applies non-overlapping edits to text. Edits are applied from the
// end of the document backwards so earlier ranges stay valid.
func ApplyEdits(text string, edits []TextEdit) (string, error) {
	type span struct {
		start, end int
		newText    string
	}
	spans := make([]span, 0, len(edits))
	for _, edit := range edits {
		start, err := offsetAt(text, edit.Range.Start)
		if err != nil {
			return "", err
		}
		end, err := offsetAt(text, edit.Range.End)
		if err != nil {
			return "", err
		}
		if end < start {
			return "", fmt.Errorf("%w: range end %+v precedes start %+v", ErrInvalidEdit, edit.Range.End, edit.Range.Start)
		}
		spans = append(spans, span{start: start, end: end, newText: edit.NewText})
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return "", fmt.Errorf("%w: overlapping edits", ErrInvalidEdit)
		}
	}

	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, s := range spans {
		b.WriteString(text[prev:s.start])
		b.WriteString(s.newText)
		prev = s.end
	}
	b.WriteString(text[prev:])
	return b.String(), nil
}

// offsetAt converts a position to a byte offset. A character past the end of
// its line resolves to the line end.
func offsetAt(text string, pos Position) (int, error) {
	if pos.Line < 0 || pos.Character < 0 {
		return 0, fmt.Errorf("%w: negative position %+v", ErrInvalidEdit, pos)
	}
	lineStart := 0
	for line := 0; line < pos.Line; line++ {
		next := strings.IndexByte(text[lineStart:], '\n')
		if next < 0 {
			return 0, fmt.Errorf("%w: line %d beyond end of document", ErrInvalidEdit, pos.Line)
		}
		lineStart += next + 1
	}

	lineEnd := len(text)
	if next := strings.IndexByte(text[lineStart:], '\n'); next >= 0 {
		lineEnd = lineStart + next
	}

	offset := lineStart
	units := 0
	for offset < lineEnd && units < pos.Character {
		r, size := utf8.DecodeRuneInString(text[offset:])
		units += utf16.RuneLen(r)
		offset += size
	}
	return offset, nil
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
