package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.Name != DefaultServerName || cfg.Server.ProtocolVersion != DefaultProtocolVersion {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if !cfg.Journal.Enabled || cfg.Journal.Path != MemoryJournal {
		t.Fatalf("expected in-memory journal by default, got %+v", cfg.Journal)
	}
}

func TestFromYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := FromYAML([]byte("log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Log.Level)
	}
	if cfg.Server.Version != DefaultServerVersion {
		t.Fatalf("expected default version, got %q", cfg.Server.Version)
	}
}

func TestFromYAMLRejectsInvalid(t *testing.T) {
	if _, err := FromYAML([]byte("log:\n  level: loud\n")); err == nil {
		t.Fatalf("expected invalid level error")
	}
	if _, err := FromYAML([]byte("server: [")); err == nil {
		t.Fatalf("expected yaml error")
	}
	if _, err := FromYAML([]byte("journal:\n  enabled: true\n  path: \"\"\n")); err == nil {
		t.Fatalf("expected journal path error")
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(Path(dir))
	if err != nil {
		t.Fatalf("LoadOptional missing file: %v", err)
	}
	if cfg.Server.Name != DefaultServerName {
		t.Fatalf("expected defaults for missing file")
	}

	path := filepath.Join(dir, "taskmcp.yml")
	if err := os.WriteFile(path, []byte("server:\n  name: custom\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = LoadOptional(path)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Server.Name != "custom" {
		t.Fatalf("expected custom name, got %q", cfg.Server.Name)
	}
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault()))
	if err != nil {
		t.Fatalf("FromYAML(GenerateDefault()): %v", err)
	}
	if *cfg != *Default() {
		t.Fatalf("generated template differs from Default(): %+v", cfg)
	}
}
