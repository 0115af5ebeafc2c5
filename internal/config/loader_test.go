package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IdleTimeoutMs != 10_000 {
		t.Fatalf("IdleTimeoutMs = %d, want 10000", cfg.IdleTimeoutMs)
	}
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crasd.json")
	if err := os.WriteFile(path, []byte(`{"cards":[{"name":"hw:0"}]}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IdleTimeoutMs != 10_000 {
		t.Fatalf("IdleTimeoutMs default not applied: got %d", cfg.IdleTimeoutMs)
	}
	if len(cfg.Cards) != 1 || cfg.Cards[0].Name != "hw:0" {
		t.Fatalf("Cards not parsed: %+v", cfg.Cards)
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crasd.json")
	if err := os.WriteFile(path, []byte(`{"log_level":"verbose"}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("Load should reject an unknown log_level")
	}
}

func TestLoadRejectsMissingCardName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crasd.json")
	if err := os.WriteFile(path, []byte(`{"cards":[{"descriptor_path":"x"}]}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("Load should reject a card with no name")
	}
}

func TestSaveDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "crasd.json")
	if err := SaveDefault(path); err != nil {
		t.Fatalf("SaveDefault: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load after SaveDefault: %v", err)
	}
	if cfg.ControlSocket != "/run/crasd.sock" {
		t.Fatalf("ControlSocket = %q, want /run/crasd.sock", cfg.ControlSocket)
	}
}
