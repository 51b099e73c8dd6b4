// Package config loads autoheader configuration from defaults, config file,
// profile, .env, environment and flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stackvity/autoheader/internal/cli/git"
	"github.com/stackvity/autoheader/pkg/autoheader"
	libgit "github.com/stackvity/autoheader/pkg/autoheader/git"
)

const (
	EnvPrefix         = "AUTOHEADER"
	DefaultConfigName = "autoheader"
	DotEnvFileName    = ".env"
)

// flagKeys maps flag names to the config keys they override.
var flagKeys = map[string]string{
	"input":                "inputPath",
	"verbose":              "verbose",
	"on-error":             "onError",
	"concurrency":          "concurrency",
	"ignore":               "ignore",
	"output-format":        "outputFormat",
	"large-file-threshold": "largeFileThresholdMB",
	"default-encoding":     "defaultEncoding",
	"dry-run":              "dryRun",
	"git-diff-only":        "git.diffOnly",
	"username":             "username",
	"date-format":          "dateFormat",
	"enable-apex":          "enableForApex",
	"enable-visualforce":   "enableForVisualforce",
	"enable-markup":        "enableForLightningMarkup",
	"enable-javascript":    "enableForLightningJavaScript",
}

// LoadAndValidate loads the configuration for a stamp run, validates it and
// derives the values the stamper needs (absolute input path, byte thresholds,
// Git changed files). It returns the populated Options and the final logger.
func LoadAndValidate(cfgFile, profileName, appVersion string, flags *pflag.FlagSet) (autoheader.Options, *slog.Logger, error) {
	opts, logger, err := load(cfgFile, profileName, appVersion, flags)
	if err != nil {
		return opts, logger, err
	}
	if err := validateAndDeriveOptions(&opts, logger); err != nil {
		return opts, logger, err
	}
	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("profile", opts.ProfileName),
		slog.Bool("verbose", opts.Verbose),
	)
	return opts, logger, nil
}

// LoadSettings loads only what an editor session needs: the header settings,
// the logger and a GitClient for author lookup. No input path is required.
func LoadSettings(cfgFile, profileName, appVersion string, flags *pflag.FlagSet) (autoheader.Options, *slog.Logger, error) {
	opts, logger, err := load(cfgFile, profileName, appVersion, flags)
	if err != nil {
		return opts, logger, err
	}
	if opts.Settings.DateFormat == "" {
		opts.Settings.DateFormat = autoheader.DefaultDateFormat
	}
	opts.GitClient = git.NewGoGitClient(opts.Logger)
	return opts, logger, nil
}

func load(cfgFile, profileName, appVersion string, flags *pflag.FlagSet) (autoheader.Options, *slog.Logger, error) {
	var opts autoheader.Options
	v := viper.New()

	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	// --- .env ---
	if err := loadDotEnv(DotEnvFileName); err != nil {
		tempLogger.Error("Error reading .env file", slog.Any("error", err))
		return opts, tempLogger, err
	}

	// --- Config File ---
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
			v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
		} else {
			tempLogger.Debug("No home directory, searching only the working directory for config", slog.Any("error", err))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			used := cfgFile
			if used == "" {
				used = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", used), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", used, err)
		}
		tempLogger.Debug("No configuration file found, using defaults/env/flags.")
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
		tempLogger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}

	// --- Profile ---
	opts.ProfileName = profileName
	if profileName != "" {
		profileKey := "profiles." + profileName
		profile := v.Sub(profileKey)
		if profile == nil {
			configPath := v.ConfigFileUsed()
			if configPath == "" {
				configPath = "(no config file found)"
			}
			err := fmt.Errorf("profile '%s' not found in config file '%s'", profileName, configPath)
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		if err := v.MergeConfigMap(profile.AllSettings()); err != nil {
			tempLogger.Error("Error merging profile", slog.String("profile", profileName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
		tempLogger.Debug("Applied configuration profile", slog.String("profile", profileName))
	}

	// --- Environment ---
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Flags ---
	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				tempLogger.Error("Error binding flag", slog.String("flag", name), slog.Any("error", err))
				return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", name, err)
			}
		}
	}

	opts.AppVersion = appVersion
	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Boolean switches that only ever turn something off.
	if flags != nil {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
		if noCache, _ := flags.GetBool("no-cache"); noCache {
			opts.IgnoreCacheRead = true
		}
		if clearCache, _ := flags.GetBool("clear-cache"); clearCache {
			opts.ClearCache = true
		}
	}

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	opts.Logger = logHandler
	return opts, slog.New(logHandler), nil
}

// loadDotEnv exports the variables of path into the process environment
// without overriding variables that are already set. A missing file is fine.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// setDefaults establishes the default values for configuration options in Viper.
func setDefaults(v *viper.Viper) {
	// --- Header Settings ---
	v.SetDefault("enableForApex", autoheader.DefaultEnableForApex)
	v.SetDefault("enableForVisualforce", autoheader.DefaultEnableForVisualforce)
	v.SetDefault("enableForLightningMarkup", autoheader.DefaultEnableForLightningMarkup)
	v.SetDefault("enableForLightningJavaScript", autoheader.DefaultEnableForLightningJavaScript)
	v.SetDefault("username", "")
	v.SetDefault("dateFormat", autoheader.DefaultDateFormat)

	// --- Behavior & Control ---
	v.SetDefault("inputPath", "")
	v.SetDefault("verbose", autoheader.DefaultVerbose)
	v.SetDefault("tuiEnabled", autoheader.DefaultTuiEnabled)
	v.SetDefault("onError", string(autoheader.DefaultOnErrorMode))
	v.SetDefault("dryRun", autoheader.DefaultDryRun)

	// --- Performance & Caching ---
	v.SetDefault("concurrency", autoheader.DefaultConcurrency)
	v.SetDefault("cache", autoheader.DefaultCacheEnabled)

	// --- File Handling ---
	v.SetDefault("ignore", []string{})
	v.SetDefault("largeFileThresholdMB", autoheader.DefaultLargeFileThresholdMB)
	v.SetDefault("defaultEncoding", "utf-8")
	v.SetDefault("languageMappings", map[string]string{})
	v.SetDefault("languageDetectionConfidenceThreshold", autoheader.DefaultLanguageDetectionConfidenceThreshold)

	// --- Output ---
	v.SetDefault("outputFormat", string(autoheader.DefaultOutputFormat))

	// --- Workflow Features ---
	v.SetDefault("git.diffOnly", autoheader.DefaultGitDiffOnly)
}

func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

// validateAndDeriveOptions performs semantic validation on opts and fills in
// derived fields. Errors wrap autoheader.ErrConfigValidation or
// libgit.ErrGitOperation.
func validateAndDeriveOptions(opts *autoheader.Options, logger *slog.Logger) error {
	invalid := func(key string, format string, args ...any) error {
		err := fmt.Errorf("%w: "+format, append([]any{autoheader.ErrConfigValidation}, args...)...)
		logger.Error(err.Error(), slog.String("key", key))
		return err
	}

	// === Paths ===
	if opts.InputPath == "" {
		return invalid("inputPath", "input path is required (-i, --input)")
	}
	absInput, err := filepath.Abs(opts.InputPath)
	if err != nil {
		return invalid("inputPath", "cannot resolve absolute input path '%s': %w", opts.InputPath, err)
	}
	opts.InputPath = absInput
	info, err := os.Stat(opts.InputPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return invalid("inputPath", "input path '%s' does not exist", opts.InputPath)
	case err != nil:
		return invalid("inputPath", "cannot access input path '%s': %w", opts.InputPath, err)
	case !info.IsDir():
		return invalid("inputPath", "input path '%s' is not a directory", opts.InputPath)
	}

	// === Enums ===
	allowedOnError := []autoheader.OnErrorMode{autoheader.OnErrorContinue, autoheader.OnErrorStop}
	if !isValidEnumValue(opts.OnErrorMode, allowedOnError) {
		return invalid("onError", "invalid value '%s' for key 'onError' (flag --on-error). Allowed: %v", opts.OnErrorMode, allowedOnError)
	}
	allowedOutputFormat := []autoheader.OutputFormat{autoheader.OutputFormatText, autoheader.OutputFormatJSON, autoheader.OutputFormatYAML, autoheader.OutputFormatTOML}
	if !isValidEnumValue(opts.OutputFormat, allowedOutputFormat) {
		return invalid("outputFormat", "invalid value '%s' for key 'outputFormat' (flag --output-format). Allowed: %v", opts.OutputFormat, allowedOutputFormat)
	}

	// === Numeric ranges ===
	if opts.Concurrency < 0 {
		return invalid("concurrency", "invalid value '%d' for key 'concurrency' (flag --concurrency). Must be >= 0", opts.Concurrency)
	}
	if opts.LargeFileThresholdMB < 0 {
		return invalid("largeFileThresholdMB", "invalid value '%d' for key 'largeFileThresholdMB' (flag --large-file-threshold). Must be >= 0", opts.LargeFileThresholdMB)
	}
	if opts.LanguageDetectionConfidenceThreshold < 0.0 || opts.LanguageDetectionConfidenceThreshold > 1.0 {
		return invalid("languageDetectionConfidenceThreshold", "invalid value '%f' for key 'languageDetectionConfidenceThreshold'. Must be between 0.0 and 1.0", opts.LanguageDetectionConfidenceThreshold)
	}
	if strings.TrimSpace(opts.Settings.DateFormat) == "" {
		opts.Settings.DateFormat = autoheader.DefaultDateFormat
	}

	// === Derived ===
	opts.LargeFileThreshold = opts.LargeFileThresholdMB * 1024 * 1024
	if opts.GitClient == nil {
		opts.GitClient = git.NewGoGitClient(opts.Logger)
	}

	opts.GitDiffMode = autoheader.GitDiffModeNone
	if opts.GitConfig.DiffOnly {
		opts.GitDiffMode = autoheader.GitDiffModeDiffOnly
		changed, gitErr := opts.GitClient.GetChangedFiles(opts.InputPath)
		if gitErr != nil {
			err := fmt.Errorf("%w: failed to get changed files for --git-diff-only: %w", libgit.ErrGitOperation, gitErr)
			logger.Error("Git operation failed", slog.String("error", err.Error()))
			return err
		}
		opts.GitChangedFiles = make(map[string]struct{}, len(changed))
		for _, f := range changed {
			opts.GitChangedFiles[filepath.ToSlash(filepath.Clean(f))] = struct{}{}
		}
		logger.Debug("Fetched Git changed files", slog.Int("count", len(opts.GitChangedFiles)))
	}

	// Verbose output and the TUI compete for the terminal.
	if opts.Verbose && opts.TuiEnabled {
		logger.Debug("Verbose mode enabled, TUI disabled")
		opts.TuiEnabled = false
	}

	logger.Debug("Final derived settings validated",
		slog.Int("concurrency", opts.Concurrency),
		slog.Int64("largeFileThresholdBytes", opts.LargeFileThreshold),
		slog.String("gitDiffMode", string(opts.GitDiffMode)),
		slog.Int("gitChangedFileCount", len(opts.GitChangedFiles)),
		slog.Bool("tuiEnabledEffective", opts.TuiEnabled),
	)
	return nil
}
