package autoheader

import (
	"context"
	"log/slog"
	"time"

	"github.com/stackvity/autoheader/pkg/autoheader/cache"
	"github.com/stackvity/autoheader/pkg/autoheader/encoding"
	"github.com/stackvity/autoheader/pkg/autoheader/git"
	"github.com/stackvity/autoheader/pkg/autoheader/language"
	"github.com/stackvity/autoheader/pkg/autoheader/template"
)

// GitConfig holds settings related to Git integration.
type GitConfig struct {
	DiffOnly bool `mapstructure:"diffOnly"`
}

// Hooks defines callbacks for status updates during a stamp run.
// Implementations MUST be thread-safe as methods may be called concurrently.
type Hooks interface {
	OnFileDiscovered(path string) error
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks provides a default, do-nothing implementation of the Hooks interface.
type NoOpHooks struct{}

// OnFileDiscovered implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileDiscovered(path string) error { return nil }

// OnFileStatusUpdate implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error {
	return nil
}

// OnRunComplete implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }

// AuthorResolver supplies the author name stamped into headers when the
// settings do not name one.
type AuthorResolver interface {
	ResolveAuthor(ctx context.Context, path string) (string, error)
}

// AuthorResolverFunc adapts a function to AuthorResolver.
type AuthorResolverFunc func(ctx context.Context, path string) (string, error)

// ResolveAuthor implements AuthorResolver.
func (f AuthorResolverFunc) ResolveAuthor(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Options holds all configuration for the header engine and for a stamp run.
// The engine only reads Settings, SettingsProvider, AuthorResolver, Templates,
// Clock and Logger.
type Options struct {
	// --- Core Paths ---
	InputPath string `mapstructure:"inputPath"` // Stamp runs: absolute path of the tree to walk

	// --- Application Info ---
	AppVersion string `mapstructure:"-"` // Used for cache validation. Populated by caller.

	// --- Header Settings ---
	Settings Settings `mapstructure:",squash"`

	// --- Behavior & Control ---
	ConfigFilePath string      `mapstructure:"-"`          // Path to the loaded config file (for reporting)
	Verbose        bool        `mapstructure:"verbose"`    // Enable debug logging
	TuiEnabled     bool        `mapstructure:"tuiEnabled"` // Hint for CLI to use TUI (ignored if Verbose)
	OnErrorMode    OnErrorMode `mapstructure:"onError"`    // ("continue", "stop")
	ProfileName    string      `mapstructure:"-"`          // Name of the profile used (for reporting)
	DryRun         bool        `mapstructure:"dryRun"`     // Plan edits without writing files

	// --- Performance & Caching ---
	Concurrency     int    `mapstructure:"concurrency"` // Number of workers (0=auto)
	CacheEnabled    bool   `mapstructure:"cache"`       // Enable cache read/write
	IgnoreCacheRead bool   `mapstructure:"-"`           // Force cache miss (set by --no-cache)
	ClearCache      bool   `mapstructure:"-"`           // Delete cache file before run (set by --clear-cache)
	CacheFilePath   string `mapstructure:"-"`           // Resolved path to cache file

	// --- File Handling & Filtering ---
	IgnorePatterns                       []string          `mapstructure:"ignore"` // Aggregated with .autoheaderignore
	LargeFileThresholdMB                 int64             `mapstructure:"largeFileThresholdMB"`
	LargeFileThreshold                   int64             `mapstructure:"-"` // Derived threshold in bytes
	DefaultEncoding                      string            `mapstructure:"defaultEncoding"`
	LanguageMappingsOverride             map[string]string `mapstructure:"languageMappings"`
	LanguageDetectionConfidenceThreshold float64           `mapstructure:"languageDetectionConfidenceThreshold"`

	// --- Output ---
	OutputFormat OutputFormat `mapstructure:"outputFormat"` // ("text", "json", "yaml", "toml") for final report

	// --- Workflow Features ---
	GitDiffMode GitDiffMode `mapstructure:"-"` // Derived from GitConfig / flags
	GitConfig   GitConfig   `mapstructure:"git"`

	// --- Injected Dependencies & Internal State ---
	EventHooks            Hooks                     `mapstructure:"-"` // Required for stamp runs
	Logger                slog.Handler              `mapstructure:"-"` // Required: Logging backend
	SettingsProvider      SettingsProvider          `mapstructure:"-"` // Optional: defaults to StaticSettings(Settings)
	AuthorResolver        AuthorResolver            `mapstructure:"-"` // Optional: consulted when Settings.Username is empty
	Templates             *template.Registry        `mapstructure:"-"` // Optional: defaults to the embedded templates
	Clock                 func() time.Time          `mapstructure:"-"` // Optional: defaults to time.Now
	GitClient             git.GitClient             `mapstructure:"-"` // Optional: Git interaction implementation
	CacheManager          cache.CacheManager        `mapstructure:"-"` // Optional: Cache implementation
	LanguageDetector      language.LanguageDetector `mapstructure:"-"` // Optional: Language detection implementation
	EncodingHandler       encoding.EncodingHandler  `mapstructure:"-"` // Optional: Encoding handling implementation
	GitChangedFiles       map[string]struct{}       `mapstructure:"-"` // Populated if GitDiffMode is active
	ProcessorFactory      ProcessorFactory          `mapstructure:"-"` // Optional: Factory for FileProcessor (testing)
	WalkerFactory         WalkerFactory             `mapstructure:"-"` // Optional: Factory for Walker (testing)
	DispatchWarnThreshold time.Duration             `mapstructure:"-"` // Threshold for logging slow worker dispatch
}
