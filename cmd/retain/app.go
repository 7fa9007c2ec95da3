package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mfield/retain/internal/backup"
	"github.com/mfield/retain/internal/collection"
	"github.com/mfield/retain/internal/config"
	"github.com/mfield/retain/internal/sched"
	"github.com/mfield/retain/internal/storage"
	"github.com/mfield/retain/internal/study"
)

// App holds all application dependencies and configuration
type App struct {
	Config       *config.Config
	DB           *storage.DB
	Collection   *collection.Collection
	Scheduler    *sched.Scheduler
	StudyService *study.Service
	Backups      *backup.Manager
	Log          *slog.Logger
}

// NewApp creates a new application with all dependencies wired up
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Log:    newLogger(cfg),
	}

	dbPath, err := cfg.GetDatabasePath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}

	app.DB, err = storage.NewDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	app.Collection, err = collection.Open(app.DB, collection.WithLogger(app.Log))
	if err != nil {
		app.DB.Close()
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}

	app.Scheduler = sched.New(app.Collection)
	app.StudyService = study.NewService(app.Collection, app.Scheduler)
	app.Backups = backup.NewManager(cfg.Backup.Dir, cfg.Backup.Keep, app.Log)

	return app, nil
}

// Close cleans up application resources
func (a *App) Close() error {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}

// newLogger builds the application logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// ConfigLoader defines how configuration is loaded
type ConfigLoader interface {
	Load() (*config.Config, error)
}

// DefaultConfigLoader loads config using the default Viper-based method
type DefaultConfigLoader struct{}

// Load implements ConfigLoader using the existing config.Load() function
func (l *DefaultConfigLoader) Load() (*config.Config, error) {
	return config.Load()
}

// TestConfigLoader allows injecting pre-built configuration for tests
type TestConfigLoader struct {
	Config *config.Config
}

// Load implements ConfigLoader by returning the pre-built config
func (l *TestConfigLoader) Load() (*config.Config, error) {
	if l.Config == nil {
		return nil, fmt.Errorf("no config provided to TestConfigLoader")
	}
	return l.Config, nil
}
