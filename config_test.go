package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal("Expectation: nil error, Received:", err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 8005 {
		t.Fatal("Expectation: 0.0.0.0:8005, Received:", cfg.addr())
	}
	if cfg.HistoryLimit != 100 {
		t.Fatal("Expectation: 100, Received:", cfg.HistoryLimit)
	}
	if cfg.IdleTimeout != 0 {
		t.Fatal("Expectation: idle timeout off, Received:", cfg.IdleTimeout)
	}
	if cfg.Gateway.Addr != "" {
		t.Fatal("Expectation: gateway off, Received:", cfg.Gateway.Addr)
	}
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relayhub.yaml")
	data := `
host: 127.0.0.1
port: 9000
history_limit: 5
idle_timeout: 30s
gateway:
  addr: ":8081"
  origin: "http://example.com"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal("write config:", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal("Expectation: nil error, Received:", err)
	}
	if cfg.addr() != "127.0.0.1:9000" {
		t.Fatal("Expectation: 127.0.0.1:9000, Received:", cfg.addr())
	}
	if cfg.HistoryLimit != 5 {
		t.Fatal("Expectation: 5, Received:", cfg.HistoryLimit)
	}
	if time.Duration(cfg.IdleTimeout) != 30*time.Second {
		t.Fatal("Expectation: 30s, Received:", cfg.IdleTimeout)
	}
	if cfg.Gateway.Addr != ":8081" || cfg.Gateway.Origin != "http://example.com" {
		t.Fatal("Expectation: gateway configured, Received:", cfg.Gateway)
	}

	// Unset keys keep their defaults.
	if time.Duration(cfg.MetricsInterval) != 60*time.Second {
		t.Fatal("Expectation: 60s, Received:", cfg.MetricsInterval)
	}
}

func TestConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Expectation: error for missing file, Received: nil")
	}
}

func TestConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("host: [unclosed"), 0o644); err != nil {
		t.Fatal("write config:", err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Fatal("Expectation: error for bad yaml, Received: nil")
	}
}
