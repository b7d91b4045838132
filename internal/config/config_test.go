package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewLoadsSettings(t *testing.T) {
	dir := t.TempDir()
	content := []byte("tie_break = \"local\"\ndelete_wins = false\nmax_retries = 7\n")
	if err := os.WriteFile(filepath.Join(dir, SettingsFile), content, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if cfg.Settings.TieBreak != "local" {
		t.Errorf("tie_break = %q", cfg.Settings.TieBreak)
	}
	if cfg.Settings.DeleteWins == nil || *cfg.Settings.DeleteWins {
		t.Errorf("delete_wins = %v, want false", cfg.Settings.DeleteWins)
	}
	if cfg.Settings.MaxRetries != 7 {
		t.Errorf("max_retries = %d", cfg.Settings.MaxRetries)
	}
}

func TestNewWithoutSettingsFile(t *testing.T) {
	cfg, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if cfg.Settings.TieBreak != "" || cfg.Settings.DeleteWins != nil {
		t.Errorf("settings not zero: %+v", cfg.Settings)
	}
}

func TestNewRejectsBadSettings(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SettingsFile), []byte("tie_break = ["), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); err == nil {
		t.Error("malformed config.toml accepted")
	}
}

func TestExplicitDirUsedForBothTrees(t *testing.T) {
	dir := t.TempDir()
	cfg, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir != dir || cfg.DataDir != dir {
		t.Errorf("dirs = %q, %q, want both %q", cfg.Dir, cfg.DataDir, dir)
	}
	if cfg.DBPath() != filepath.Join(dir, DBFile) {
		t.Errorf("db path = %q", cfg.DBPath())
	}
	if cfg.SyncLogPath() != filepath.Join(dir, SyncLogFile) {
		t.Errorf("sync log path = %q", cfg.SyncLogPath())
	}
}

func TestDefaultDirsHonorXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	if got := DefaultConfigDir(); got != filepath.Join("/tmp/xdg-config", AppName) {
		t.Errorf("config dir = %q", got)
	}
	if got := DefaultDataDir(); got != filepath.Join("/tmp/xdg-data", AppName) {
		t.Errorf("data dir = %q", got)
	}
}

func TestTokenHelpers(t *testing.T) {
	dir := t.TempDir()
	cfg, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HasToken() {
		t.Error("token reported before it exists")
	}
	if err := os.WriteFile(cfg.TokenPath(), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	if !cfg.HasToken() {
		t.Error("token not detected")
	}
	if err := cfg.RemoveToken(); err != nil {
		t.Fatal(err)
	}
	if cfg.HasToken() {
		t.Error("token survived removal")
	}
}
