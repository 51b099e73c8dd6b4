package autoheader

import "sync"

// Settings is the configuration bundle consulted on every header decision.
// Boolean flags that are absent from the host configuration are false, except
// where DefaultSettings says otherwise.
type Settings struct {
	EnableForApex                bool   `mapstructure:"enableForApex" json:"enableForApex" yaml:"enableForApex"`
	EnableForVisualforce         bool   `mapstructure:"enableForVisualforce" json:"enableForVisualforce" yaml:"enableForVisualforce"`
	EnableForLightningMarkup     bool   `mapstructure:"enableForLightningMarkup" json:"enableForLightningMarkup" yaml:"enableForLightningMarkup"`
	EnableForLightningJavaScript bool   `mapstructure:"enableForLightningJavaScript" json:"enableForLightningJavaScript" yaml:"enableForLightningJavaScript"`
	Username                     string `mapstructure:"username" json:"username,omitempty" yaml:"username,omitempty"`
	DateFormat                   string `mapstructure:"dateFormat" json:"dateFormat,omitempty" yaml:"dateFormat,omitempty"` // Go time layout
}

// DefaultSettings returns the settings used when the host supplies none.
func DefaultSettings() Settings {
	return Settings{
		EnableForApex:                DefaultEnableForApex,
		EnableForVisualforce:         DefaultEnableForVisualforce,
		EnableForLightningMarkup:     DefaultEnableForLightningMarkup,
		EnableForLightningJavaScript: DefaultEnableForLightningJavaScript,
		DateFormat:                   DefaultDateFormat,
	}
}

// dateLayout returns the configured layout or the default one.
func (s Settings) dateLayout() string {
	if s.DateFormat == "" {
		return DefaultDateFormat
	}
	return s.DateFormat
}

// SettingsProvider yields the current settings. The engine calls it once per
// decision and never caches the result.
type SettingsProvider interface {
	Settings() Settings
}

// StaticSettings is a SettingsProvider that always returns the same bundle.
type StaticSettings Settings

// Settings implements SettingsProvider.
func (s StaticSettings) Settings() Settings { return Settings(s) }

// SettingsStore is a mutable SettingsProvider, updated when the host pushes new
// configuration. It is safe for concurrent use.
type SettingsStore struct {
	mu       sync.RWMutex
	settings Settings
}

// NewSettingsStore creates a store holding initial.
func NewSettingsStore(initial Settings) *SettingsStore {
	return &SettingsStore{settings: initial}
}

// Settings implements SettingsProvider.
func (s *SettingsStore) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Set replaces the stored settings.
func (s *SettingsStore) Set(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}
