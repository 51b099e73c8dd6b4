// Package git implements the stamper's Git capabilities with go-git, so no git
// binary is needed.
package git

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"

	libgit "github.com/stackvity/autoheader/pkg/autoheader/git"
)

// GoGitClient implements libgit.GitClient using go-git.
type GoGitClient struct {
	logger *slog.Logger
	// loadGlobalConfig reads the user's global configuration when path is not
	// inside a repository.
	loadGlobalConfig func() (*config.Config, error)
}

var _ libgit.GitClient = (*GoGitClient)(nil)

// NewGoGitClient creates a new GoGitClient.
func NewGoGitClient(loggerHandler slog.Handler) *GoGitClient {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "gitClient"), slog.String("backend", "go-git"))
	return &GoGitClient{
		logger:           logger,
		loadGlobalConfig: func() (*config.Config, error) { return config.LoadConfig(config.GlobalScope) },
	}
}

// openRepo opens the repository containing path.
func (c *GoGitClient) openRepo(path string) (*git.Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, libgit.Errorf("failed to get absolute path for '%s': %w", path, err)
	}
	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, libgit.Errorf("repository not found at or above path '%s': %w", absPath, err)
		}
		return nil, libgit.Errorf("failed to open repository at '%s': %w", absPath, err)
	}
	return repo, nil
}

// GetChangedFiles implements libgit.GitClient. Staged, unstaged and untracked
// files are included; deleted files are not, as there is nothing to stamp.
// Paths outside repoPath are dropped.
func (c *GoGitClient) GetChangedFiles(repoPath string) ([]string, error) {
	logArgs := []any{slog.String("repo", repoPath)}
	c.logger.Debug("Getting changed files", logArgs...)

	absRepoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, libgit.Errorf("failed to get absolute path for '%s': %w", repoPath, err)
	}
	repo, err := c.openRepo(absRepoPath)
	if err != nil {
		c.logger.Error("Failed to open repository", append(logArgs, slog.Any("error", err))...)
		return nil, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, libgit.Errorf("failed to get worktree for repository '%s': %w", repoPath, err)
	}
	status, err := worktree.Status()
	if err != nil {
		return nil, libgit.Errorf("failed to get git status for repository '%s': %w", repoPath, err)
	}

	root := worktree.Filesystem.Root()
	files := make([]string, 0, len(status))
	for filePath, fileStatus := range status {
		if fileStatus.Worktree == git.Deleted || fileStatus.Staging == git.Deleted {
			continue
		}
		if fileStatus.Staging == git.Unmodified && fileStatus.Worktree == git.Unmodified {
			continue
		}
		rel, relErr := filepath.Rel(absRepoPath, filepath.Join(root, filepath.FromSlash(filePath)))
		if relErr != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if rel == ".." || strings.HasPrefix(rel, "../") {
			continue
		}
		files = append(files, rel)
	}
	sort.Strings(files)
	c.logger.Debug("Found changed files", append(logArgs, slog.Int("count", len(files)))...)
	return files, nil
}

// ResolveAuthor implements libgit.GitClient. Inside a repository the local
// configuration overrides the global one; outside, only the global
// configuration is read.
func (c *GoGitClient) ResolveAuthor(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var cfg *config.Config
	repo, openErr := c.openRepo(filepath.Dir(path))
	if openErr == nil {
		scoped, err := repo.ConfigScoped(config.GlobalScope)
		if err != nil {
			return "", libgit.Errorf("failed to read git config for '%s': %w", path, err)
		}
		cfg = scoped
	} else {
		c.logger.Debug("Not inside a repository, reading global git config", slog.String("path", path))
		global, err := c.loadGlobalConfig()
		if err != nil {
			return "", libgit.Errorf("failed to read global git config: %w", err)
		}
		cfg = global
	}

	name := strings.TrimSpace(cfg.User.Name)
	if name == "" {
		return "", libgit.Errorf("user.name is not configured for '%s'", path)
	}
	return name, nil
}
