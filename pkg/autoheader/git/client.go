// Package git declares the Git capabilities the stamper relies on.
package git

import (
	"context"
	"errors"
	"fmt"
)

// ErrGitOperation indicates a failure during a Git operation performed via the
// GitClient, such as the path not being a repository. Implementations wrap
// underlying errors with it (see Errorf) so callers can use errors.Is.
var ErrGitOperation = errors.New("git operation failed")

// GitClient reads repository state.
//
// Implementations should handle a path outside any repository by returning an
// error wrapping ErrGitOperation.
type GitClient interface {
	// GetChangedFiles lists modified, added and untracked files, relative to
	// the repository root and slash-separated.
	GetChangedFiles(repoPath string) ([]string, error)

	// ResolveAuthor returns user.name from the repository and global Git
	// configuration that applies to path.
	ResolveAuthor(ctx context.Context, path string) (string, error)
}

// Errorf returns a formatted error that wraps ErrGitOperation.
func Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrGitOperation}, args...)...)
}
