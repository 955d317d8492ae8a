package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amsaid/relayconsole/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.ServerAddr != ":8080" {
		t.Errorf("expected default server addr :8080, got %q", cfg.ServerAddr)
	}
	if cfg.DBPath != "storage.db" {
		t.Errorf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.RelaySendTimeout != 30*time.Second {
		t.Errorf("expected default send timeout, got %v", cfg.RelaySendTimeout)
	}
	if cfg.InstallMsgComplete == "" {
		t.Error("expected a default completion message")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("log_level: debug\nserver_addr: \":9090\"\ndb_path: /tmp/relay.db\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.LogLevel)
	}
	if cfg.ServerAddr != ":9090" {
		t.Errorf("expected server addr :9090, got %q", cfg.ServerAddr)
	}
	if cfg.DBPath != "/tmp/relay.db" {
		t.Errorf("expected db path override, got %q", cfg.DBPath)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("RELAY_LOG_LEVEL", "error")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("expected env override to win, got %q", cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: loud\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	if _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for unknown log level")
	}
}
