package autoheader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stackvity/autoheader/pkg/util"
)

// Walker traverses the input tree, applies ignore rules and the Git diff
// filter, and dispatches candidate file paths to the worker pool.
type Walker struct {
	opts                 *Options
	workerChan           chan<- string
	hooks                Hooks
	logger               *slog.Logger
	ignoreMatcher        *ignoreMatcher
	gitDiffMap           map[string]struct{}
	dispatchWarnDuration time.Duration
}

// NewWalker creates a new Walker instance.
func NewWalker(opts *Options, workerChan chan<- string, loggerHandler slog.Handler) (*Walker, error) {
	logger := slog.New(loggerHandler).With(slog.String("component", "walker"))
	patterns := append(append([]string{}, DefaultIgnorePatterns...), opts.IgnorePatterns...)
	matcher, err := newIgnoreMatcher(opts.InputPath, patterns, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ignore patterns: %w", err)
	}
	logger.Debug("Ignore patterns loaded", slog.Int("count", matcher.patternCount()))

	gitDiffMap := map[string]struct{}{}
	if opts.GitDiffMode == GitDiffModeDiffOnly {
		if opts.GitChangedFiles == nil {
			logger.Warn("Git diff mode active but no changed files were provided; nothing will be stamped")
		} else {
			gitDiffMap = opts.GitChangedFiles
		}
	}

	dispatchWarnDuration := opts.DispatchWarnThreshold
	if dispatchWarnDuration <= 0 {
		dispatchWarnDuration = time.Second
	}
	return &Walker{
		opts:                 opts,
		workerChan:           workerChan,
		hooks:                opts.EventHooks,
		logger:               logger,
		ignoreMatcher:        matcher,
		gitDiffMap:           gitDiffMap,
		dispatchWarnDuration: dispatchWarnDuration,
	}, nil
}

// StartWalk traverses the tree and closes the worker channel when done.
func (w *Walker) StartWalk(ctx context.Context) error {
	w.logger.Info("Starting directory walk", slog.String("path", w.opts.InputPath))
	walkErr := filepath.WalkDir(w.opts.InputPath, w.walkFunc(ctx))
	close(w.workerChan)
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			w.logger.Info("Directory walk cancelled", slog.String("reason", walkErr.Error()))
			return walkErr
		}
		return fmt.Errorf("directory walk failed: %w", walkErr)
	}
	w.logger.Info("Directory walk completed")
	return nil
}

func (w *Walker) walkFunc(ctx context.Context) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Error accessing path during walk", slog.String("path", path), slog.String("error", err.Error()))
			if path == w.opts.InputPath {
				return fmt.Errorf("cannot read input directory %q: %w", path, err)
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		relativePath, err := filepath.Rel(w.opts.InputPath, path)
		if err != nil {
			w.logger.Warn("Could not calculate relative path", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)
		if relativePath == "." {
			return nil
		}

		isDir := d.IsDir()
		if w.ignoreMatcher.Match(relativePath, isDir) {
			pattern := w.ignoreMatcher.LastMatchPattern(relativePath, isDir)
			w.logger.Debug("Path ignored", slog.String("path", relativePath), slog.String("pattern", pattern))
			if isDir {
				return filepath.SkipDir
			}
			w.notifySkipped(relativePath, fmt.Sprintf("Ignored by pattern: %s", pattern))
			return nil
		}
		if isDir {
			return nil
		}

		if hookErr := w.hooks.OnFileDiscovered(relativePath); hookErr != nil {
			w.logger.Warn("Event hook OnFileDiscovered failed", slog.String("path", relativePath), slog.String("error", hookErr.Error()))
		}

		if w.opts.GitDiffMode == GitDiffModeDiffOnly {
			if _, found := w.gitDiffMap[relativePath]; !found {
				w.notifySkipped(relativePath, "Unchanged in Git working tree")
				return nil
			}
		}

		return w.dispatch(ctx, relativePath, path)
	}
}

// dispatch sends absPath to the workers, warning once if the pool is saturated.
func (w *Walker) dispatch(ctx context.Context, relativePath, absPath string) error {
	timer := time.NewTimer(w.dispatchWarnDuration)
	defer timer.Stop()
	select {
	case w.workerChan <- absPath:
		return nil
	case <-timer.C:
		w.logger.Warn("Worker channel dispatch blocked, workers might be busy or pool too small",
			slog.String("path", relativePath), slog.Duration("threshold", w.dispatchWarnDuration))
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case w.workerChan <- absPath:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Walker) notifySkipped(relativePath, message string) {
	if hookErr := w.hooks.OnFileStatusUpdate(relativePath, StatusSkipped, message, 0); hookErr != nil {
		w.logger.Warn("Event hook OnFileStatusUpdate failed", slog.String("path", relativePath), slog.String("error", hookErr.Error()))
	}
}

// --- ignoreMatcher ---

type ignoreMatcher struct {
	patterns []ignorePattern
	basePath string // absolute input path
	logger   *slog.Logger
}

type ignorePattern struct {
	pattern     string // slash-separated, without "!", leading "/" or trailing "/"
	origPattern string
	negated     bool
	isDirOnly   bool
	isRooted    bool
	baseAbsPath string // directory the pattern is relative to
}

func newIgnoreMatcher(inputPath string, configPatterns []string, logger *slog.Logger) (*ignoreMatcher, error) {
	absInputPath, err := filepath.Abs(inputPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute path for input: %w", err)
	}
	m := &ignoreMatcher{basePath: absInputPath, logger: logger.With(slog.String("component", "ignoreMatcher"))}

	// Config patterns first so the ignore file can re-include with "!".
	m.addPatterns(configPatterns, absInputPath)

	ignoreFile, err := findIgnoreFile(absInputPath)
	if err != nil {
		m.logger.Warn("Error searching for "+IgnoreFileName, slog.String("error", err.Error()))
	}
	if ignoreFile != "" {
		filePatterns, err := loadPatternsFromFile(ignoreFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load ignore file %s: %w", ignoreFile, err)
		}
		m.addPatterns(filePatterns, filepath.Dir(ignoreFile))
		m.logger.Debug("Loaded patterns from ignore file", slog.String("path", ignoreFile), slog.Int("count", len(filePatterns)))
	}
	return m, nil
}

// findIgnoreFile walks up from absStartPath looking for IgnoreFileName.
func findIgnoreFile(absStartPath string) (string, error) {
	current := absStartPath
	for {
		candidate := filepath.Join(current, IgnoreFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("error checking for ignore file at %s: %w", candidate, err)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", nil
		}
		current = parent
	}
}

func loadPatternsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open ignore file %s: %w", filePath, err)
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", filePath, err)
	}
	return patterns, nil
}

func (m *ignoreMatcher) addPatterns(rawPatterns []string, baseAbsPath string) {
	for _, raw := range rawPatterns {
		p := ignorePattern{origPattern: raw, baseAbsPath: baseAbsPath}
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "!") {
			p.negated = true
			trimmed = trimmed[1:]
		}
		if strings.HasPrefix(trimmed, "/") {
			p.isRooted = true
			trimmed = trimmed[1:]
		}
		if strings.HasSuffix(trimmed, "/") {
			p.isDirOnly = true
			trimmed = strings.TrimSuffix(trimmed, "/")
		}
		p.pattern = filepath.ToSlash(trimmed)
		if p.pattern != "" {
			m.patterns = append(m.patterns, p)
		}
	}
}

// Match reports whether relativePath is ignored. The last matching pattern wins.
func (m *ignoreMatcher) Match(relativePath string, isDir bool) bool {
	ignored, _ := m.evaluate(relativePath, isDir)
	return ignored
}

// LastMatchPattern returns the pattern that caused relativePath to be ignored,
// or "" if it is not ignored.
func (m *ignoreMatcher) LastMatchPattern(relativePath string, isDir bool) string {
	ignored, pattern := m.evaluate(relativePath, isDir)
	if !ignored {
		return ""
	}
	return pattern
}

func (m *ignoreMatcher) evaluate(relativePath string, isDir bool) (bool, string) {
	ignored, last := false, ""
	for _, p := range m.patterns {
		if p.isDirOnly && !isDir {
			continue
		}
		if util.MatchesGitignore(p.pattern, p.baseAbsPath, m.basePath, relativePath, p.isRooted) {
			ignored, last = !p.negated, p.origPattern
		}
	}
	return ignored, last
}

func (m *ignoreMatcher) patternCount() int {
	return len(m.patterns)
}
