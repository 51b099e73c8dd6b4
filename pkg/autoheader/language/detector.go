// Package language maps files on disk to the editor language identifiers the
// header engine understands.
package language

import (
	"maps"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// PlainText is returned when nothing identifies the file.
const PlainText = "plaintext"

// LanguageDetector determines the editor language identifier of a file.
type LanguageDetector interface {
	// Detect returns a lowercase language identifier (e.g. "apex", "html",
	// "javascript") and an indicative confidence between 0 and 1. It falls back
	// to "plaintext" rather than failing.
	Detect(content []byte, filePath string) (language string, confidence float64, err error)
}

// SalesforceExtensions maps Salesforce source extensions to the language IDs
// editors assign them. Several are ambiguous or unknown to linguist (".cls" is
// also TeX, ".cmp" is not registered at all), so these win over detection.
var SalesforceExtensions = map[string]string{
	".cls":       "apex",
	".trigger":   "apex",
	".apex":      "apex",
	".page":      "visualforce",
	".component": "visualforce",
	".cmp":       "html",
	".app":       "html",
	".evt":       "html",
	".intf":      "html",
	".design":    "html",
	".auradoc":   "html",
	".tokens":    "html",
	".html":      "html",
	".js":        "javascript",
}

type goEnryDetector struct {
	confidenceThreshold float64
	overrides           map[string]string // extension -> language ID
}

// NewGoEnryDetector creates a detector backed by go-enry. overrides are merged
// over SalesforceExtensions after normalizing to a lowercase extension with a
// leading dot.
func NewGoEnryDetector(confidenceThreshold float64, overrides map[string]string) LanguageDetector {
	normalized := maps.Clone(SalesforceExtensions)
	for ext, lang := range overrides {
		ext = strings.ToLower(strings.TrimSpace(ext))
		lang = strings.ToLower(strings.TrimSpace(lang))
		if ext == "" || ext == "." || lang == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[ext] = lang
	}
	return &goEnryDetector{confidenceThreshold: confidenceThreshold, overrides: normalized}
}

// Detect implements LanguageDetector. Order: extension overrides, go-enry
// content+filename classification, extension, filename, plaintext. A guess
// scoring below the confidence threshold is reported as plaintext.
func (d *goEnryDetector) Detect(content []byte, filePath string) (string, float64, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if lang, ok := d.overrides[ext]; ok {
		return lang, 1.0, nil
	}
	if len(content) == 0 {
		return PlainText, 0.0, nil
	}

	lang, score := guess(content, filePath)
	if lang == "" || score < d.confidenceThreshold {
		return PlainText, 0.0, nil
	}
	return lang, score, nil
}

func guess(content []byte, filePath string) (string, float64) {
	if lang := enry.GetLanguage(filepath.Base(filePath), content); known(lang) {
		return strings.ToLower(lang), 0.8
	}
	if lang, safe := enry.GetLanguageByExtension(filePath); safe && known(lang) {
		return strings.ToLower(lang), 0.5
	}
	if lang, safe := enry.GetLanguageByFilename(filePath); safe && known(lang) {
		return strings.ToLower(lang), 0.5
	}
	return "", 0.0
}

func known(lang string) bool { return lang != "" && lang != "Text" }
