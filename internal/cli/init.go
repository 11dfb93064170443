// Package cli provides common initialization utilities shared by
// cmd/budget, cmd/budget-worker, and cmd/budgetctl.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"budget/internal/amqp"
	"budget/internal/config"
	"budget/internal/store"
)

// SetupLogger initializes structured logging with default settings.
// Returns the configured logger and sets it as the default logger.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStores opens the configured persistence backend.
// Returns the backend or exits the process on failure.
func OpenStores(logger *slog.Logger, cfg *config.Config) *store.Result {
	result, err := store.Open(store.Config{
		Type:         store.BackendType(cfg.DataBackend),
		DataDir:      cfg.DataDir,
		SQLiteDBPath: cfg.SQLiteDBPath,
	}, logger)
	if err != nil {
		logger.Error("Failed to open persistence backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// ConnectAMQP connects to the configured broker. Returns nil when no AMQP
// URL is configured or the broker is unreachable; callers treat a nil
// client as "sync disabled".
func ConnectAMQP(logger *slog.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		return nil
	}
	logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client
}
