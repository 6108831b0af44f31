// Package store provides the durable key-value store that holds the
// session token across process restarts.
package store

import (
	"errors"
	"fmt"

	"tasksync/internal/config"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// Store is a durable string key-value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Close releases resources held by the store.
	Close() error
}

// Open opens the backend selected by cfg.Store, creating the config
// directory if needed.
func Open(cfg *config.Config) (Store, error) {
	if err := cfg.EnsureDir(); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	switch cfg.Store {
	case config.StoreSQLiteBackend:
		return OpenSQLite(cfg.DBPath())
	case config.StoreFileBackend, "":
		return NewFile(cfg.StorePath()), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store)
	}
}
