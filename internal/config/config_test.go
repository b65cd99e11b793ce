package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, projectDir, content string) {
	t.Helper()
	path := filepath.Join(projectDir, FileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Project.ResourcesPath != "locales" {
		t.Errorf("ResourcesPath = %q", cfg.Project.ResourcesPath)
	}
	if cfg.Project.DefaultLanguage != "en" {
		t.Errorf("DefaultLanguage = %q", cfg.Project.DefaultLanguage)
	}
	if cfg.Remote.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds = %d", cfg.Remote.TimeoutSeconds)
	}
	if cfg.Sync.DefaultPolicy != "interactive" {
		t.Errorf("DefaultPolicy = %q", cfg.Sync.DefaultPolicy)
	}
	if !cfg.Sync.AutoBackupEnabled() {
		t.Error("AutoBackup should default to enabled")
	}
	if cfg.Backup.MaxBackups != 10 || cfg.Backup.MaxAgeDays != 30 {
		t.Errorf("Backup = %+v", cfg.Backup)
	}
	if cfg.Output.Color != "auto" {
		t.Errorf("Color = %q", cfg.Output.Color)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
project:
  resources_path: translations
  format: toml
remote:
  base_url: https://sync.example.com
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Project.ResourcesPath != "translations" {
		t.Errorf("ResourcesPath = %q", cfg.Project.ResourcesPath)
	}
	if cfg.Project.Format != "toml" {
		t.Errorf("Format = %q", cfg.Project.Format)
	}
	if cfg.Remote.BaseURL != "https://sync.example.com" {
		t.Errorf("BaseURL = %q", cfg.Remote.BaseURL)
	}
	// Unset fields still come from defaults.
	if cfg.Project.DefaultLanguage != "en" {
		t.Errorf("DefaultLanguage = %q", cfg.Project.DefaultLanguage)
	}
	if cfg.Remote.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds = %d", cfg.Remote.TimeoutSeconds)
	}
}

func TestLoadExplicitFalseSurvivesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
sync:
  auto_backup: false
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sync.AutoBackupEnabled() {
		t.Error("auto_backup: false in the file must not be overwritten by the default")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
remote:
  base_url: https://from-file.example.com
  api_key: file-key
`)

	t.Setenv("LOCSYNC_REMOTE_URL", "https://from-env.example.com")
	t.Setenv("LOCSYNC_API_KEY", "env-key")
	t.Setenv("LOCSYNC_POLICY", "remote")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Remote.BaseURL != "https://from-env.example.com" {
		t.Errorf("BaseURL = %q, env must win", cfg.Remote.BaseURL)
	}
	if cfg.Remote.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.Remote.APIKey)
	}
	if cfg.Sync.DefaultPolicy != "remote" {
		t.Errorf("DefaultPolicy = %q", cfg.Sync.DefaultPolicy)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "project: [not: a: mapping")

	if _, err := Load(dir); err == nil {
		t.Error("expected a parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Remote.BaseURL = "https://sync.example.com"
	cfg.Project.Format = "i18next"
	cfg.Settings = map[string]string{"project.name": "demo"}

	if err := Save(dir, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Remote.BaseURL != cfg.Remote.BaseURL {
		t.Errorf("BaseURL = %q", loaded.Remote.BaseURL)
	}
	if loaded.Project.Format != "i18next" {
		t.Errorf("Format = %q", loaded.Project.Format)
	}
	if loaded.Settings["project.name"] != "demo" {
		t.Errorf("Settings = %v", loaded.Settings)
	}
}

func TestRemoteTimeout(t *testing.T) {
	r := RemoteConfig{TimeoutSeconds: 45}
	if got := r.Timeout(); got != 45*time.Second {
		t.Errorf("Timeout() = %v", got)
	}
}

func TestApplySettings(t *testing.T) {
	cfg := &Config{}
	cfg.ApplySettings(map[string]string{"a": "1", "b": "2"}, nil)
	if cfg.Settings["a"] != "1" || cfg.Settings["b"] != "2" {
		t.Errorf("Settings = %v", cfg.Settings)
	}

	cfg.ApplySettings(map[string]string{"a": "updated"}, []string{"b"})
	if cfg.Settings["a"] != "updated" {
		t.Errorf("a = %q", cfg.Settings["a"])
	}
	if _, exists := cfg.Settings["b"]; exists {
		t.Error("b should have been removed")
	}
}

func TestPath(t *testing.T) {
	got := Path("/tmp/project")
	want := filepath.Join("/tmp/project", FileName)
	if got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}
