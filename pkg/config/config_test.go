package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen != ":8090" {
		t.Errorf("unexpected default listen: %q", cfg.Listen)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("unexpected default log level: %q", cfg.LogLevel)
	}
	if cfg.SampleInterval != time.Second {
		t.Errorf("unexpected default sample interval: %v", cfg.SampleInterval)
	}
	if !cfg.Sampling {
		t.Error("sampling should default to enabled")
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("listen: \":9999\"\nlog_level: debug\nsample_interval: 5s\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != ":9999" {
		t.Errorf("expected listen :9999, got %q", cfg.Listen)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug level, got %q", cfg.LogLevel)
	}
	if cfg.SampleInterval != 5*time.Second {
		t.Errorf("expected 5s interval, got %v", cfg.SampleInterval)
	}
	// Unset keys keep their defaults
	if !cfg.Sampling {
		t.Error("unset sampling should keep its default")
	}
}

func TestLoad_MissingFileIsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("explicit missing file should fail")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("IMAGEFORGE_LOG_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("environment should override the file, got %q", cfg.LogLevel)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	want := Default()
	want.Listen = ":7070"
	want.EngineSeed = 42
	if err := Write(want, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}
