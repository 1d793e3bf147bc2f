package skillquiz

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("GENERATOR_API_KEY", "")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Addr != ":8180" {
		t.Fatalf("default addr = %q", cfg.Server.Addr)
	}
	if cfg.Database.Path != "./skillquiz.db" {
		t.Fatalf("default db path = %q", cfg.Database.Path)
	}
	if cfg.Generator.BaseURL != "http://localhost:8181" {
		t.Fatalf("default generator url = %q", cfg.Generator.BaseURL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("GENERATOR_API_KEY", "")
	t.Setenv("SESSION_SECRET", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  addr: ":9000"
database:
  path: /tmp/quiz.db
generator:
  base_url: https://oracle.example.com
  api_key: file-key
session:
  secret: file-secret
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Database.Path != "/tmp/quiz.db" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Generator.BaseURL != "https://oracle.example.com" || cfg.Generator.APIKey != "file-key" {
		t.Fatalf("unexpected generator config: %+v", cfg.Generator)
	}
	if cfg.Session.Secret != "file-secret" {
		t.Fatalf("unexpected session secret: %q", cfg.Session.Secret)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7777")
	t.Setenv("GENERATOR_API_KEY", "env-key")
	t.Setenv("SESSION_SECRET", "env-secret")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Addr != ":7777" {
		t.Fatalf("addr = %q, want :7777", cfg.Server.Addr)
	}
	if cfg.Generator.APIKey != "env-key" {
		t.Fatalf("api key = %q, want env-key", cfg.Generator.APIKey)
	}
	if cfg.Session.Secret != "env-secret" {
		t.Fatalf("secret = %q, want env-secret", cfg.Session.Secret)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
