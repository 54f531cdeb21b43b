// Package app wires configuration, logging and storage for the commands.
package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/notexe/remindd/internal/config"
	"github.com/notexe/remindd/internal/reminder"
	"github.com/notexe/remindd/internal/storage"
)

// LoadConfig loads and validates the configuration at path.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process logger. Logs go to the configured file,
// or to fallback when none is set.
func NewLogger(cfg config.LogConfig, fallback io.Writer) (*log.Logger, func() error, error) {
	noop := func() error { return nil }
	if cfg.File == "" {
		return log.New(fallback, cfg.Prefix, log.LstdFlags), noop, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, noop, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to open log file: %w", err)
	}
	return log.New(f, cfg.Prefix, log.LstdFlags), f.Close, nil
}

// OpenStore opens the configured backend and loads the reminder store.
// The commands share the backend, so the store syncs before each write.
// The returned close function flushes unsaved collections and releases
// the backend.
func OpenStore(cfg *config.Config, logger *log.Logger) (*reminder.Store, func() error, error) {
	backend, closeBackend, err := storage.Open(cfg.StorageOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	store := reminder.NewStore(backend, reminder.WithLogger(logger), reminder.WithSharedBackend())
	closeFn := func() error {
		flushErr := store.Flush()
		if err := closeBackend(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		return flushErr
	}
	return store, closeFn, nil
}
