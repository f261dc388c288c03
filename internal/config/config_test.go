// ABOUTME: Tests for configuration loading
// ABOUTME: Covers env expansion, duration parsing, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /var/lib/glingo/content.db
cache:
  ttl: 10m
  max_entries: 256
  sweep_interval: 30s
remote:
  enabled: true
  base_url: https://content.example.org
  jwt_secret: shhh
  timeout: 5s
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "/var/lib/glingo/content.db" {
		t.Errorf("database path: %q", cfg.Database.Path)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("cache ttl: %v", cfg.Cache.TTL)
	}
	if cfg.Cache.MaxEntries != 256 {
		t.Errorf("cache max entries: %d", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.SweepInterval != 30*time.Second {
		t.Errorf("sweep interval: %v", cfg.Cache.SweepInterval)
	}
	if !cfg.Remote.Enabled || cfg.Remote.Timeout != 5*time.Second {
		t.Errorf("remote: %+v", cfg.Remote)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level: %q", cfg.Logging.Level)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("GLINGO_TEST_SECRET", "from-env")
	path := writeConfig(t, `
database:
  path: content.db
remote:
  enabled: true
  base_url: https://content.example.org
  jwt_secret: ${GLINGO_TEST_SECRET}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Remote.JWTSecret != "from-env" {
		t.Errorf("jwt_secret: %q", cfg.Remote.JWTSecret)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: content.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("default cache ttl: %v", cfg.Cache.TTL)
	}
	if cfg.Cache.MaxEntries != 1024 {
		t.Errorf("default max entries: %d", cfg.Cache.MaxEntries)
	}
	if !cfg.Database.AutoResetEnabled() {
		t.Error("auto reset should default on")
	}
}

func TestLoad_AutoResetOptOut(t *testing.T) {
	path := writeConfig(t, `
database:
  path: content.db
  auto_reset: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.AutoResetEnabled() {
		t.Error("auto_reset: false should disable the reset path")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing database path", `cache: {ttl: 1m}`},
		{"remote without base_url", "database:\n  path: x.db\nremote:\n  enabled: true\n  jwt_secret: s"},
		{"remote without secret", "database:\n  path: x.db\nremote:\n  enabled: true\n  base_url: https://x"},
		{"bad duration", "database:\n  path: x.db\ncache:\n  ttl: soon"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
