package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/autoheader/internal/testutil"
	"github.com/stackvity/autoheader/pkg/autoheader"
	libgit "github.com/stackvity/autoheader/pkg/autoheader/git"
)

// defineAllFlags mirrors the flags of cmd/autoheader so bindings resolve.
func defineAllFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Config file")
	flags.String("profile", "", "Config profile")
	flags.BoolP("verbose", "v", false, "Verbose logging")

	flags.StringP("input", "i", "", "Input directory")
	flags.Bool("no-tui", false, "Disable TUI")
	flags.StringArray("ignore", []string{}, "Ignore patterns")
	flags.String("on-error", string(autoheader.DefaultOnErrorMode), "Error handling mode")
	flags.Int("concurrency", autoheader.DefaultConcurrency, "Concurrency level")
	flags.Bool("no-cache", false, "Disable cache reads")
	flags.Bool("clear-cache", false, "Clear cache")
	flags.Bool("git-diff-only", false, "Only changed files")
	flags.String("output-format", string(autoheader.DefaultOutputFormat), "Report format")
	flags.Int64("large-file-threshold", autoheader.DefaultLargeFileThresholdMB, "Large file threshold MB")
	flags.String("default-encoding", "", "Fallback encoding")
	flags.Bool("dry-run", false, "Dry run")
	flags.String("username", "", "Author name")
	flags.String("date-format", "", "Date layout")
	flags.Bool("enable-apex", false, "Enable Apex")
	flags.Bool("enable-visualforce", false, "Enable Visualforce")
	flags.Bool("enable-markup", true, "Enable markup")
	flags.Bool("enable-javascript", false, "Enable JavaScript")
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	defineAllFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autoheader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// isolate keeps the user's real config and .env out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadAndValidate_Defaults(t *testing.T) {
	isolate(t)
	input := t.TempDir()

	opts, logger, err := LoadAndValidate("", "", "1.2.3", newFlags(t, "-i", input))
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.Equal(t, input, opts.InputPath)
	assert.Equal(t, "1.2.3", opts.AppVersion)
	assert.Equal(t, autoheader.DefaultSettings(), opts.Settings)
	assert.Equal(t, autoheader.OnErrorContinue, opts.OnErrorMode)
	assert.Equal(t, autoheader.OutputFormatText, opts.OutputFormat)
	assert.True(t, opts.CacheEnabled)
	assert.True(t, opts.TuiEnabled)
	assert.Equal(t, "utf-8", opts.DefaultEncoding)
	assert.Equal(t, int64(autoheader.DefaultLargeFileThresholdMB*1024*1024), opts.LargeFileThreshold)
	assert.Equal(t, autoheader.GitDiffModeNone, opts.GitDiffMode)
	assert.NotNil(t, opts.GitClient)
	assert.NotNil(t, opts.Logger)
	assert.Empty(t, opts.ConfigFilePath)
}

func TestLoadAndValidate_ConfigFile(t *testing.T) {
	isolate(t)
	input := t.TempDir()
	cfg := writeConfig(t, `
enableForApex: true
enableForLightningJavaScript: true
username: Config User
dateFormat: "2006-01-02"
onError: stop
outputFormat: yaml
ignore:
  - "*Test.cls"
languageMappings:
  ".xyz": apex
`)

	opts, _, err := LoadAndValidate(cfg, "", "dev", newFlags(t, "--input", input))
	require.NoError(t, err)

	assert.Equal(t, cfg, opts.ConfigFilePath)
	assert.True(t, opts.Settings.EnableForApex)
	assert.False(t, opts.Settings.EnableForVisualforce)
	assert.True(t, opts.Settings.EnableForLightningMarkup)
	assert.True(t, opts.Settings.EnableForLightningJavaScript)
	assert.Equal(t, "Config User", opts.Settings.Username)
	assert.Equal(t, "2006-01-02", opts.Settings.DateFormat)
	assert.Equal(t, autoheader.OnErrorStop, opts.OnErrorMode)
	assert.Equal(t, autoheader.OutputFormatYAML, opts.OutputFormat)
	assert.Equal(t, []string{"*Test.cls"}, opts.IgnorePatterns)
	assert.Equal(t, "apex", opts.LanguageMappingsOverride[".xyz"])
}

func TestLoadAndValidate_Profile(t *testing.T) {
	isolate(t)
	input := t.TempDir()
	cfg := writeConfig(t, `
username: Base User
profiles:
  ci:
    username: CI Bot
    tuiEnabled: false
`)

	opts, _, err := LoadAndValidate(cfg, "ci", "dev", newFlags(t, "-i", input))
	require.NoError(t, err)
	assert.Equal(t, "ci", opts.ProfileName)
	assert.Equal(t, "CI Bot", opts.Settings.Username)
	assert.False(t, opts.TuiEnabled)

	_, _, err = LoadAndValidate(cfg, "missing", "dev", newFlags(t, "-i", input))
	assert.ErrorContains(t, err, "profile 'missing' not found")
}

func TestLoadAndValidate_Precedence(t *testing.T) {
	isolate(t)
	input := t.TempDir()
	cfg := writeConfig(t, "username: From File\nconcurrency: 2\ndateFormat: file\n")

	t.Setenv("AUTOHEADER_USERNAME", "From Env")
	t.Setenv("AUTOHEADER_CONCURRENCY", "3")

	opts, _, err := LoadAndValidate(cfg, "", "dev", newFlags(t, "-i", input, "--concurrency", "4"))
	require.NoError(t, err)
	assert.Equal(t, "From Env", opts.Settings.Username, "env beats file")
	assert.Equal(t, 4, opts.Concurrency, "flag beats env")
	assert.Equal(t, "file", opts.Settings.DateFormat)
}

func TestLoadAndValidate_DotEnv(t *testing.T) {
	isolate(t)
	input := t.TempDir()
	require.NoError(t, os.WriteFile(DotEnvFileName, []byte("AUTOHEADER_USERNAME=Dot Env\nAUTOHEADER_ENABLEFORAPEX=true\n"), 0644))
	t.Cleanup(func() {
		os.Unsetenv("AUTOHEADER_USERNAME")
		os.Unsetenv("AUTOHEADER_ENABLEFORAPEX")
	})

	opts, _, err := LoadAndValidate("", "", "dev", newFlags(t, "-i", input))
	require.NoError(t, err)
	assert.Equal(t, "Dot Env", opts.Settings.Username)
	assert.True(t, opts.Settings.EnableForApex)
}

func TestLoadAndValidate_FlagSwitches(t *testing.T) {
	isolate(t)
	input := t.TempDir()

	opts, _, err := LoadAndValidate("", "", "dev", newFlags(t,
		"-i", input, "--no-tui", "--no-cache", "--clear-cache", "--dry-run",
		"--enable-apex", "--enable-markup=false", "--ignore", "a/", "--ignore", "b/",
	))
	require.NoError(t, err)
	assert.False(t, opts.TuiEnabled)
	assert.True(t, opts.IgnoreCacheRead)
	assert.True(t, opts.ClearCache)
	assert.True(t, opts.DryRun)
	assert.True(t, opts.Settings.EnableForApex)
	assert.False(t, opts.Settings.EnableForLightningMarkup)
	assert.Equal(t, []string{"a/", "b/"}, opts.IgnorePatterns)
}

func TestLoadAndValidate_VerboseDisablesTUI(t *testing.T) {
	isolate(t)
	opts, logger, err := LoadAndValidate("", "", "dev", newFlags(t, "-i", t.TempDir(), "-v"))
	require.NoError(t, err)
	assert.True(t, opts.Verbose)
	assert.False(t, opts.TuiEnabled)
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestLoadAndValidate_ValidationErrors(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "f.cls")
	testutil.CreateDummyFile(t, file, "x")

	testCases := []struct {
		name string
		args []string
	}{
		{"missing input", nil},
		{"input does not exist", []string{"-i", filepath.Join(t.TempDir(), "nope")}},
		{"input is a file", []string{"-i", file}},
		{"bad on-error", []string{"-i", t.TempDir(), "--on-error", "explode"}},
		{"bad output format", []string{"-i", t.TempDir(), "--output-format", "xml"}},
		{"negative concurrency", []string{"-i", t.TempDir(), "--concurrency", "-1"}},
		{"negative threshold", []string{"-i", t.TempDir(), "--large-file-threshold", "-5"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := LoadAndValidate("", "", "dev", newFlags(t, tc.args...))
			assert.ErrorIs(t, err, autoheader.ErrConfigValidation)
		})
	}
}

func TestLoadAndValidate_ConfigFileErrors(t *testing.T) {
	isolate(t)
	input := t.TempDir()

	_, _, err := LoadAndValidate(filepath.Join(t.TempDir(), "missing.yaml"), "", "dev", newFlags(t, "-i", input))
	assert.ErrorContains(t, err, "error reading config file")

	broken := writeConfig(t, "username: [unterminated\n")
	_, _, err = LoadAndValidate(broken, "", "dev", newFlags(t, "-i", input))
	assert.ErrorContains(t, err, "error reading config file")
}

func TestLoadAndValidate_GitDiffOnly(t *testing.T) {
	isolate(t)
	input := t.TempDir()

	t.Run("outside a repository", func(t *testing.T) {
		_, _, err := LoadAndValidate("", "", "dev", newFlags(t, "-i", input, "--git-diff-only"))
		assert.ErrorIs(t, err, libgit.ErrGitOperation)
	})
}

func TestLoadSettings(t *testing.T) {
	isolate(t)
	cfg := writeConfig(t, "enableForVisualforce: true\ndateFormat: \"\"\n")

	opts, logger, err := LoadSettings(cfg, "", "dev", newFlags(t, "--username", "Flag User"))
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, opts.Settings.EnableForVisualforce)
	assert.Equal(t, "Flag User", opts.Settings.Username)
	assert.Equal(t, autoheader.DefaultDateFormat, opts.Settings.DateFormat)
	assert.NotNil(t, opts.GitClient)
}
