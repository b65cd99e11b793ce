// Package config provides project configuration for locsync.
// It supports a YAML config file, environment variable overrides, and
// sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FileName is the project config file under the project root.
const FileName = ".locsync/config.yaml"

const (
	configDirPerm  = 0o750
	configFilePerm = 0o640
)

// Config is the complete locsync configuration for one project.
type Config struct {
	// Project configures the local resource layout.
	Project ProjectConfig `yaml:"project"`

	// Remote configures the sync API endpoint.
	Remote RemoteConfig `yaml:"remote"`

	// Sync configures default synchronization behavior.
	Sync SyncConfig `yaml:"sync"`

	// Backup configures snapshot retention.
	Backup BackupConfig `yaml:"backup"`

	// Output configures display preferences.
	Output OutputConfig `yaml:"output"`

	// Settings are scalar project properties synchronized with the remote
	// store alongside translation entries (in their own sync namespace).
	Settings map[string]string `yaml:"settings,omitempty"`
}

// ProjectConfig holds the local resource layout.
type ProjectConfig struct {
	// ResourcesPath is the directory holding per-language resource files,
	// relative to the project root.
	ResourcesPath string `yaml:"resources_path"`
	// Format is the resource file format (json, i18next, resx, toml).
	// Empty means auto-detect.
	Format string `yaml:"format,omitempty"`
	// DefaultLanguage holds the authoritative source text.
	DefaultLanguage string `yaml:"default_language"`
}

// RemoteConfig holds the sync API endpoint settings.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url" env:"LOCSYNC_REMOTE_URL"`
	// APIKey authenticates against the remote store. Prefer the
	// LOCSYNC_API_KEY environment variable over committing it to the file.
	APIKey         string `yaml:"api_key,omitempty" env:"LOCSYNC_API_KEY"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// SyncConfig holds synchronization behavior settings.
type SyncConfig struct {
	// DefaultPolicy is the conflict resolution policy when none is given on
	// the command line (local, remote, interactive, abort).
	DefaultPolicy string `yaml:"default_policy" env:"LOCSYNC_POLICY"`
	// AutoBackup snapshots resource files before every destructive write.
	// A pointer so an explicit false in the file survives default merging.
	AutoBackup *bool `yaml:"auto_backup"`
}

// AutoBackupEnabled reports whether pre-write snapshots are on. Unset means on.
func (s SyncConfig) AutoBackupEnabled() bool {
	return s.AutoBackup == nil || *s.AutoBackup
}

// BackupConfig holds snapshot retention settings.
type BackupConfig struct {
	// MaxBackups is the maximum number of snapshots to keep.
	MaxBackups int `yaml:"max_backups"`
	// MaxAgeDays is how long to keep snapshots.
	MaxAgeDays int `yaml:"max_age_days"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Color controls color output (auto, always, never).
	Color string `yaml:"color"`
	// Verbose enables verbose output.
	Verbose bool `yaml:"verbose"`
}

func boolPtr(b bool) *bool { return &b }

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			ResourcesPath:   "locales",
			DefaultLanguage: "en",
		},
		Remote: RemoteConfig{
			TimeoutSeconds: 30,
		},
		Sync: SyncConfig{
			DefaultPolicy: "interactive",
			AutoBackup:    boolPtr(true),
		},
		Backup: BackupConfig{
			MaxBackups: 10,
			MaxAgeDays: 30,
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}

// Load reads the project config, fills gaps from defaults, and applies
// environment overrides. A missing file yields the defaults.
func Load(projectDir string) (*Config, error) {
	cfg := &Config{}

	path := filepath.Join(projectDir, FileName)
	// #nosec G304 - path is derived from the project directory the caller chose
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fall through to defaults
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	}

	// WithoutDereference keeps a non-nil AutoBackup pointer as-is instead of
	// back-filling the pointee, so an explicit false in the file survives.
	if err := mergo.Merge(cfg, Default(), mergo.WithoutDereference); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the project's config file.
func Save(projectDir string, cfg *Config) error {
	path := filepath.Join(projectDir, FileName)
	if err := os.MkdirAll(filepath.Dir(path), configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file %q: %w", path, err)
	}
	return nil
}

// Path returns the config file location for a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, FileName)
}

// ApplySettings folds merged config property values back into the Settings
// map. Paths with an empty value are removed.
func (c *Config) ApplySettings(updates map[string]string, removals []string) {
	if c.Settings == nil && len(updates) > 0 {
		c.Settings = make(map[string]string, len(updates))
	}
	for path, value := range updates {
		c.Settings[path] = value
	}
	for _, path := range removals {
		delete(c.Settings, path)
	}
}
