package store

import (
	"fmt"
	"log/slog"

	"budget/internal/jsonstore"
	"budget/internal/storage"
)

// BackendType represents the persistence backend
type BackendType string

const (
	JSONBackend   BackendType = "json"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case JSONBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc represents a cleanup function for backend resources
type CleanupFunc func() error

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// JSON backend specific
	DataDir string

	// SQLite backend specific
	SQLiteDBPath string
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case JSONBackend:
		// DataDir defaults to "data" if empty
	}

	return nil
}

// Result contains the backend instance and optional cleanup function
type Result struct {
	Stores  Stores
	Cleanup CleanupFunc
}

// Open creates the configured persistence backend.
func Open(config Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &Result{Stores: repo, Cleanup: repo.Close}, nil

	case JSONBackend:
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "data"
		}
		st, err := jsonstore.Open(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open JSON data directory: %w", err)
		}
		logger.Info("Initialized JSON backend", "data_directory", dataDir)
		return &Result{Stores: st, Cleanup: nil}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
