package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for k := range defaults {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Port != "3000" || cfg.APIURL != "http://localhost:4000" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.APITimeout != 10*time.Second || cfg.SearchDebounce != 300*time.Millisecond || cfg.CatalogTTL != 5*time.Minute {
		t.Fatalf("durations not decoded: %v %v %v", cfg.APITimeout, cfg.SearchDebounce, cfg.CatalogTTL)
	}
	if cfg.SessionSecret != devSecret || !cfg.IsDevelopment() {
		t.Fatalf("development secret not applied")
	}
	if cfg.Addr() != ":3000" {
		t.Fatalf("Addr() = %s", cfg.Addr())
	}
}

func TestLoadConfigRequiresSecretInProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatalf("missing SESSION_SECRET accepted in production")
	}
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	env := "API_URL=https://api.rids.cl/\nSESSION_SECRET=abc\nSEARCH_DEBOUNCE=150ms\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("PORT", "8081")
	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.APIURL != "https://api.rids.cl" || cfg.SessionSecret != "abc" || cfg.SearchDebounce != 150*time.Millisecond {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Port != "8081" {
		t.Fatalf("environment should win over .env, Port = %s", cfg.Port)
	}
}
