package autoheader

import (
	"path"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// markupExtensions are the Lightning markup file extensions eligible for headers.
	markupExtensions = []string{".html", ".cmp", ".app", ".evt", ".intf", ".design", ".auradoc", ".tokens"}
	// scriptExtensions are the Lightning script file extensions eligible for headers.
	scriptExtensions = []string{".js"}
	// scriptSuffixes are stripped from Aura bundle script names before comparing with the bundle folder.
	scriptSuffixes = []string{"Controller", "Helper", "Renderer"}
	// componentRoots are the folder names that contain component bundles.
	componentRoots = []string{"aura", "lwc"}
)

// IsStructurallySupported reports whether a header generator exists for languageID.
func IsStructurallySupported(languageID string) bool {
	switch languageID {
	case LanguageApex, LanguageVisualforce, LanguageLightningMarkup, LanguageLightningJavaScript:
		return true
	}
	return false
}

// IsEnabledForAutoHeader reports whether a save of doc should touch its header.
// It never errors; anything it cannot classify is simply not enabled.
func IsEnabledForAutoHeader(doc Document, settings Settings) bool {
	switch doc.LanguageID {
	case LanguageApex:
		return settings.EnableForApex
	case LanguageVisualforce:
		return settings.EnableForVisualforce
	case LanguageLightningMarkup:
		return settings.EnableForLightningMarkup && IsComponentFile(doc.Path, markupExtensions, nil)
	case LanguageLightningJavaScript:
		return settings.EnableForLightningJavaScript && IsComponentFile(doc.Path, scriptExtensions, scriptSuffixes)
	}
	return false
}

// IsComponentFile reports whether p names a file inside a Lightning component
// bundle: <aura|lwc>/<name>/<name>[suffix]<ext>. The first suffix that matches
// the base name is stripped before comparing against the bundle folder name.
// Comparisons are case-sensitive.
func IsComponentFile(p string, extensions, suffixes []string) bool {
	slashed := filepath.ToSlash(p)

	ext := path.Ext(slashed)
	if !slices.Contains(extensions, ext) {
		return false
	}

	base := strings.TrimSuffix(path.Base(slashed), ext)
	for _, suffix := range suffixes {
		if len(base) > len(suffix) && strings.HasSuffix(base, suffix) {
			base = strings.TrimSuffix(base, suffix)
			break
		}
	}

	dir := path.Dir(slashed)
	if dir == "." || dir == "/" {
		return false
	}
	if path.Base(dir) != base {
		return false
	}

	grandparent := path.Dir(dir)
	if grandparent == "." || grandparent == dir {
		return false
	}
	return slices.Contains(componentRoots, path.Base(grandparent))
}
