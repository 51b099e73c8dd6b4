// Package util holds small helpers shared by the stamper and the CLI.
package util

import (
	"path"
	"path/filepath"
	"strings"
)

// MatchesGitignore reports whether pathToMatchRel (relative to walkerBaseAbsPath)
// matches a gitignore-style pattern defined in patternBaseAbsPath.
//
// A match on any leading run of segments covers everything below it. Unrooted
// patterns may start at any segment; a leading "**/" is treated as unrooted. This is a subset of gitignore semantics built on
// path.Match, so "**" in the middle of a pattern only spans one segment.
func MatchesGitignore(pattern, patternBaseAbsPath, walkerBaseAbsPath, pathToMatchRel string, isRooted bool) bool {
	pattern = filepath.ToSlash(pattern)
	pathToMatchRel = filepath.ToSlash(pathToMatchRel)
	if pattern == "" || pathToMatchRel == "" || pathToMatchRel == "." {
		return false
	}
	if trimmed := strings.TrimPrefix(pattern, "**/"); trimmed != pattern {
		pattern, isRooted = trimmed, false
	}

	rel, err := filepath.Rel(patternBaseAbsPath, filepath.Join(walkerBaseAbsPath, filepath.FromSlash(pathToMatchRel)))
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		rel = pathToMatchRel
	}

	segments := strings.Split(rel, "/")
	first := len(segments) - 1
	if isRooted {
		first = 0
	}
	for i := 0; i <= first; i++ {
		for j := i + 1; j <= len(segments); j++ {
			if ok, _ := path.Match(pattern, strings.Join(segments[i:j], "/")); ok {
				return true
			}
		}
	}
	return false
}
