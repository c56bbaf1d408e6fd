// Package cli holds the start-up steps shared by the smartexpense binaries.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"smartexpense/internal/config"
	applog "smartexpense/internal/log"
	"smartexpense/internal/storage"
)

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     cfg.SlogLevel(),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and exits
// the process when it is invalid.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		// the configured logger cannot be trusted yet
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// InitStorage opens the configured database and applies migrations.
// It exits the process on failure.
func InitStorage(ctx context.Context, logger *applog.Logger, cfg *config.Config) *storage.Repository {
	logger = logger.WithComponent(applog.ComponentStorage)
	repo, err := storage.Open(ctx, cfg.Storage())
	if err != nil {
		logger.ErrorContext(ctx, "Failed to open database",
			applog.FieldOperation, applog.OpMigrate,
			"driver", cfg.DatabaseDriver,
			applog.FieldError, err.Error())
		os.Exit(1)
	}
	return repo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
