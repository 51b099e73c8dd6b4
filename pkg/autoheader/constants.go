package autoheader

// HeaderLength is the number of lines every generated header occupies. Cursor
// correction after an insertion shifts by exactly this amount.
const HeaderLength = 13

// Language identifiers with header generators.
const (
	LanguageApex                = "apex"
	LanguageVisualforce         = "visualforce"
	LanguageLightningMarkup     = "html"
	LanguageLightningJavaScript = "javascript"
)

// Constants defining default values for configuration options.
// These are used when setting up Viper defaults in the configuration loading process.
const (
	// DefaultEnableForApex is false; an unset flag disables Apex stamping.
	DefaultEnableForApex = false
	// DefaultEnableForVisualforce is false; an unset flag disables Visualforce stamping.
	DefaultEnableForVisualforce = false
	// DefaultEnableForLightningMarkup is the default for Lightning markup files.
	DefaultEnableForLightningMarkup = true
	// DefaultEnableForLightningJavaScript is the default for Lightning controller/helper scripts.
	DefaultEnableForLightningJavaScript = false
	// DefaultDateFormat is a Go time layout rendering e.g. "3/7/2024, 2:05:09 PM".
	DefaultDateFormat = "1/2/2006, 3:04:05 PM"
	// DefaultUnknownAuthor is used when no author source yields a name.
	DefaultUnknownAuthor = "Unknown"

	// DefaultConcurrency determines the default number of workers. 0 means runtime.NumCPU().
	DefaultConcurrency = 0
	// DefaultCacheEnabled is the default state for the stamp cache.
	DefaultCacheEnabled = true
	// DefaultTuiEnabled is the default state for the Terminal UI.
	DefaultTuiEnabled = true
	// DefaultOnErrorMode is the default behavior on non-fatal file errors.
	DefaultOnErrorMode = OnErrorContinue
	// DefaultOutputFormat is the default format for the final summary report.
	DefaultOutputFormat = OutputFormatText
	// DefaultGitDiffOnly is the default state for diff-only Git processing.
	DefaultGitDiffOnly = false
	// DefaultDryRun reports planned edits without writing files.
	DefaultDryRun = false
	// DefaultVerbose is the default state for verbose logging.
	DefaultVerbose = false
	// DefaultLargeFileThresholdMB skips files larger than this many megabytes.
	DefaultLargeFileThresholdMB = 10
	// DefaultLanguageDetectionConfidenceThreshold is the minimum score for content-based language detection.
	DefaultLanguageDetectionConfidenceThreshold = 0.75
)

// Constants related to the stamp cache.
const (
	// CacheFileName is the standard name for the cache index file.
	CacheFileName = ".autoheader.cache"
	// CacheSchemaVersion represents the current version of the cache file structure.
	CacheSchemaVersion = "1.0"
)

// ReportSchemaVersion indicates the version of the JSON/YAML report structure.
const ReportSchemaVersion = "1.0"

// IgnoreFileName is the per-directory ignore file consulted by the walker.
const IgnoreFileName = ".autoheaderignore"

// DefaultIgnorePatterns are always applied by the walker.
var DefaultIgnorePatterns = []string{".git/", "node_modules/", ".sfdx/", ".sf/", CacheFileName}

// Constants defining cache status strings used in the Report.
const (
	CacheStatusHit      = "hit"
	CacheStatusMiss     = "miss"
	CacheStatusDisabled = "disabled"
)

// Constants defining skip reasons used in the Report.
const (
	SkipReasonBinary      = "binary_file"
	SkipReasonLarge       = "large_file"
	SkipReasonIgnored     = "ignored_pattern"
	SkipReasonGitExclude  = "excluded_by_git_diff"
	SkipReasonUnsupported = "unsupported_language"
	SkipReasonDisabled    = "disabled_by_settings"
	SkipReasonCached      = "unchanged_since_cache"
)
