package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config carries everything the CLI needs at startup. Values resolve
// in the usual viper order: flags bound by the command layer, then
// RETAIN_* environment variables, then retain.yaml, then defaults.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Review   ReviewConfig   `mapstructure:"review"`

	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// DatabaseConfig locates the collection database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// BackupConfig controls archive placement and retention.
type BackupConfig struct {
	Dir  string `mapstructure:"dir"`
	Keep int    `mapstructure:"keep"`
}

// ReviewConfig bounds interactive sessions. A zero cap means the deck
// limits alone decide when a session ends.
type ReviewConfig struct {
	MaxCardsPerSession int `mapstructure:"max_cards_per_session"`
}

// envKeys are the nested keys reachable through RETAIN_* variables.
var envKeys = []string{
	"database.path",
	"backup.dir",
	"backup.keep",
	"review.max_cards_per_session",
}

// Load resolves the application configuration.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve home directory: %w", err)
	}
	base := filepath.Join(home, ".retain")

	for key, val := range map[string]any{
		"database.path":                filepath.Join(base, "collection.db"),
		"backup.dir":                   filepath.Join(base, "backups"),
		"backup.keep":                  30,
		"review.max_cards_per_session": 0,
		"log_level":                    "info",
		"log_json":                     false,
	} {
		viper.SetDefault(key, val)
	}

	viper.SetConfigName("retain")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(base)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("RETAIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	// a missing config file is fine; anything else is the user's
	// mistake and should surface
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode configuration: %w", err)
	}

	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Backup.Dir = expandPath(cfg.Backup.Dir)
	return &cfg, nil
}

// expandPath resolves $VARS and a leading ~ against the user's home.
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
		}
	}
	return p
}

// GetDatabasePath ensures the database directory exists and returns
// the database file path. User data stays private (0700).
func (c *Config) GetDatabasePath() (string, error) {
	if err := os.MkdirAll(filepath.Dir(c.Database.Path), 0700); err != nil {
		return "", fmt.Errorf("cannot create data directory: %w", err)
	}
	return c.Database.Path, nil
}
