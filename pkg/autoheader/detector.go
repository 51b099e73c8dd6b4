package autoheader

import (
	"regexp"
	"strings"
)

// headerOpenPattern matches a block comment or XML comment opening a line.
var headerOpenPattern = regexp.MustCompile(`^\s*(?:/\*|<!--)`)

// HasHeader reports whether the first line of text opens a comment. Only the
// first line is examined, so any leading comment counts as a header.
func HasHeader(text string) bool {
	first, _, _ := strings.Cut(text, "\n")
	return headerOpenPattern.MatchString(first)
}
