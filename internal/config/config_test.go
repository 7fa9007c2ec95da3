package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path == "" {
		t.Error("Expected a default database path")
	}
	if !strings.Contains(cfg.Database.Path, ".retain") {
		t.Errorf("Expected database under ~/.retain, got %q", cfg.Database.Path)
	}
	if cfg.Backup.Keep != 30 {
		t.Errorf("Expected default backup retention 30, got %d", cfg.Backup.Keep)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.Review.MaxCardsPerSession != 0 {
		t.Errorf("Expected unlimited session default, got %d", cfg.Review.MaxCardsPerSession)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("RETAIN_DATABASE_PATH", "/tmp/retain-test/cards.db")
	t.Setenv("RETAIN_BACKUP_KEEP", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "/tmp/retain-test/cards.db" {
		t.Errorf("Expected env database path, got %q", cfg.Database.Path)
	}
	if cfg.Backup.Keep != 7 {
		t.Errorf("Expected env backup retention 7, got %d", cfg.Backup.Keep)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := filepath.Abs(expandPath("~"))
	if err != nil {
		t.Fatalf("Abs failed: %v", err)
	}
	got := expandPath("~/data/cards.db")
	if !strings.HasPrefix(got, home) {
		t.Errorf("Expected %q under %q", got, home)
	}
	if expandPath("") != "" {
		t.Error("Empty path must stay empty")
	}
}

func TestGetDatabasePathCreatesDir(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{}
	cfg.Database.Path = filepath.Join(dir, "nested", "cards.db")

	path, err := cfg.GetDatabasePath()
	if err != nil {
		t.Fatalf("GetDatabasePath failed: %v", err)
	}
	if path != cfg.Database.Path {
		t.Errorf("Unexpected path %q", path)
	}
}
