package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("version = %d, want 1", cfg.Version)
	}
	if cfg.Transport.TimeoutSeconds <= 0 {
		t.Error("default transport timeout should be positive")
	}
	if cfg.Transport.UserAgent == "" {
		t.Error("default user agent should be set")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "human" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	result, err := LoadConfigWithDetails(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.UsedDefaults {
		t.Error("missing config file should report UsedDefaults")
	}
	if result.Config.DataDir != dir {
		t.Errorf("dataDir = %s, want %s", result.Config.DataDir, dir)
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := `{
		"version": 1,
		"transport": {"timeoutSeconds": 15, "userAgent": "test-agent"},
		"logging": {"level": "debug", "format": "json"}
	}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transport.TimeoutSeconds != 15 {
		t.Errorf("timeoutSeconds = %d, want 15", cfg.Transport.TimeoutSeconds)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %s, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOWNBALLOT_LOG_LEVEL", "error")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("env override not applied, level = %s", cfg.Logging.Level)
	}
}

func TestEnvOverridesListed(t *testing.T) {
	names := map[string]bool{}
	for _, o := range EnvOverrides() {
		names[o.Name] = true
		if o.Description == "" {
			t.Errorf("%s has no description", o.Name)
		}
	}
	for _, want := range []string{"DOWNBALLOT_DATA_DIR", "DOWNBALLOT_BROWSER_BIN", "DOWNBALLOT_LIVE_TESTS"} {
		if !names[want] {
			t.Errorf("expected %s in the override list", want)
		}
	}
}

func TestSavedConfigHasNoSourceSection(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DataDir = dir
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	// Per-source endpoint overrides have exactly one home: sources.yml.
	if _, ok := doc["sources"]; ok {
		t.Error("config.json must not carry a per-source section")
	}
}

func TestLoadSourceOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yml")
	content := `
electionstats:
  stateBaseUrls:
    VA: "http://localhost:8080"
ncsbe:
  baseUrl: "http://localhost:9090"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	overrides, err := LoadSourceOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overrides["ncsbe"].BaseURL != "http://localhost:9090" {
		t.Errorf("ncsbe baseUrl = %s", overrides["ncsbe"].BaseURL)
	}
	if overrides["electionstats"].StateBaseURLs["VA"] != "http://localhost:8080" {
		t.Errorf("VA override = %s", overrides["electionstats"].StateBaseURLs["VA"])
	}
}

func TestLoadSourceOverridesMissingFile(t *testing.T) {
	overrides, err := LoadSourceOverrides(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(overrides) != 0 {
		t.Errorf("expected empty overrides, got %v", overrides)
	}
}
