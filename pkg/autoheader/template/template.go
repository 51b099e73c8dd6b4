// Package template renders the fixed-shape comment headers stamped at the top
// of supported source files.
package template

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// HeaderLines is the number of newline-terminated lines every registered
// template must render.
const HeaderLines = 13

var (
	// ErrNoGenerator is returned by Generate for a language without a registered template.
	ErrNoGenerator = errors.New("no header generator registered for language")
	// ErrBadHeaderShape indicates a template rendered a header with the wrong number of lines.
	ErrBadHeaderShape = errors.New("rendered header has unexpected shape")
)

// HeaderData holds the values substituted into a header template.
type HeaderData struct {
	FileName  string
	Author    string
	Timestamp string
}

// builtinTemplates maps each supported language identifier to its embedded template file.
// Apex and Lightning script use block comments; Visualforce and Lightning markup use XML comments.
var builtinTemplates = map[string]string{
	"apex":        "templates/block.tmpl",
	"javascript":  "templates/block.tmpl",
	"visualforce": "templates/markup.tmpl",
	"html":        "templates/markup.tmpl",
}

// Registry maps language identifiers to parsed header templates. It is
// read-only after construction and safe for concurrent use.
type Registry struct {
	templates map[string]*template.Template
}

// NewRegistry parses the embedded templates for every built-in language.
func NewRegistry() (*Registry, error) {
	r := &Registry{templates: make(map[string]*template.Template, len(builtinTemplates))}
	parsed := make(map[string]*template.Template)
	for languageID, file := range builtinTemplates {
		tmpl, ok := parsed[file]
		if !ok {
			content, err := templateFS.ReadFile(file)
			if err != nil {
				return nil, fmt.Errorf("failed to read embedded template %q: %w", file, err)
			}
			tmpl, err = template.New(file).Option("missingkey=error").Parse(string(content))
			if err != nil {
				return nil, fmt.Errorf("failed to parse embedded template %q: %w", file, err)
			}
			parsed[file] = tmpl
		}
		r.templates[languageID] = tmpl
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error. The embedded
// templates are part of the binary, so a failure here is a build defect.
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// Supports reports whether a generator exists for languageID.
func (r *Registry) Supports(languageID string) bool {
	_, ok := r.templates[languageID]
	return ok
}

// Languages returns the registered language identifiers in sorted order.
func (r *Registry) Languages() []string {
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Generate renders the header for languageID. The result always ends with a
// newline and spans exactly HeaderLines lines.
func (r *Registry) Generate(languageID, fileName, author, timestamp string) (string, error) {
	tmpl, ok := r.templates[languageID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoGenerator, languageID)
	}

	data := HeaderData{
		FileName:  SingleLine(fileName),
		Author:    SingleLine(author),
		Timestamp: SingleLine(timestamp),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template execution failed for %q: %w", languageID, err)
	}

	header := buf.String()
	if !strings.HasSuffix(header, "\n") {
		header += "\n"
	}
	if n := strings.Count(header, "\n"); n != HeaderLines {
		return "", fmt.Errorf("%w: %q rendered %d lines, want %d", ErrBadHeaderShape, languageID, n, HeaderLines)
	}
	return header, nil
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// SingleLine replaces each line break in a header value with one space.
func SingleLine(s string) string {
	return lineBreaks.Replace(s)
}
