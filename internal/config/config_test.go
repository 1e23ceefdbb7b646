package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.LogFile != "brain.jsonl" {
		t.Errorf("log file = %q, want brain.jsonl", cfg.LogFile)
	}
	if filepath.Base(cfg.DataDir) != ".mnemo" {
		t.Errorf("data dir = %q, want ~/.mnemo", cfg.DataDir)
	}
	if time.Duration(cfg.LockTimeout) != 5*time.Second {
		t.Errorf("lock timeout = %v", time.Duration(cfg.LockTimeout))
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LogFile != "brain.jsonl" {
		t.Errorf("log file = %q, want default", cfg.LogFile)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mnemo", "config.json")

	cfg := Default()
	cfg.DataDir = "/tmp/mnemo-test"
	cfg.LegacyDir = "/tmp/old-logs"
	cfg.LockTimeout = Duration(2 * time.Second)

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 0600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.DataDir != cfg.DataDir {
		t.Errorf("data dir = %q, want %q", loaded.DataDir, cfg.DataDir)
	}
	if loaded.LegacyDir != cfg.LegacyDir {
		t.Errorf("legacy dir = %q, want %q", loaded.LegacyDir, cfg.LegacyDir)
	}
	if time.Duration(loaded.LockTimeout) != 2*time.Second {
		t.Errorf("lock timeout = %v, want 2s", time.Duration(loaded.LockTimeout))
	}
}

func TestLegacyPathFallsBackToDataDir(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data"
	if got := cfg.LegacyPath(); got != "/data" {
		t.Errorf("legacy path = %q, want data dir", got)
	}
	cfg.LegacyDir = "/old"
	if got := cfg.LegacyPath(); got != "/old" {
		t.Errorf("legacy path = %q, want /old", got)
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"lock_timeout":"soon"}`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}
