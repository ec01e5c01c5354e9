package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  url: "postgres://localhost/test"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Wiki.BaseURL != "https://en.wikipedia.org/api/rest_v1" {
		t.Fatalf("unexpected default wiki base URL %q", cfg.Wiki.BaseURL)
	}
	if cfg.AI.ModelName != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected default model %q", cfg.AI.ModelName)
	}
	if cfg.AI.MaxCandidates != 50 {
		t.Fatalf("unexpected default max candidates %d", cfg.AI.MaxCandidates)
	}
	if cfg.Delivery.Enabled {
		t.Fatal("delivery must default to disabled")
	}
	if cfg.Dashboard.Port != "8003" {
		t.Fatalf("unexpected default dashboard port %q", cfg.Dashboard.Port)
	}
}

func TestLoadConfigExpandsSecrets(t *testing.T) {
	t.Setenv("TEST_GROQ_KEY", "gsk_abc")
	t.Setenv("TEST_DB_URL", "postgres://prod/history")

	path := writeConfig(t, `
ai:
  api_key: "${TEST_GROQ_KEY}"
  max_candidates: 15
database:
  url: "${TEST_DB_URL}"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.AI.APIKey != "gsk_abc" {
		t.Fatalf("API key must be env-expanded, got %q", cfg.AI.APIKey)
	}
	if cfg.Database.URL != "postgres://prod/history" {
		t.Fatalf("database URL must be env-expanded, got %q", cfg.Database.URL)
	}
	if cfg.AI.MaxCandidates != 15 {
		t.Fatalf("explicit max candidates must win over default, got %d", cfg.AI.MaxCandidates)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
