// Package kvstore provides a small key-value store behind a backend
// factory, used to persist locally cached metadata blobs.
package kvstore

import (
	"fmt"
	"log/slog"

	"github.com/fidde/signal_explorer/internal/kvstore/file"
	"github.com/fidde/signal_explorer/internal/kvstore/memory"
	"github.com/fidde/signal_explorer/internal/kvstore/sqlite"
)

// Store is implemented by all backends. Get returns an error wrapping
// models.ErrKeyNotFound when the key is absent; Delete of an absent key is
// not an error.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	List() ([]string, error)
	Close() error
}

// Config holds key-value store configuration.
type Config struct {
	// Backend selects the implementation: "memory", "file" or "sqlite"
	Backend string `yaml:"backend"`

	// Dir is the storage directory for the file backend
	Dir string `yaml:"dir"`

	// Path is the database file for the sqlite backend
	Path string `yaml:"path"`
}

// DefaultConfig returns the default key-value store configuration.
func DefaultConfig() Config {
	return Config{
		Backend: "memory",
		Dir:     "./data/kv",
		Path:    "./data/kv.db",
	}
}

// New creates a store implementation based on configuration.
func New(cfg Config, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "memory":
		logger.Info("using in-memory key-value store")
		return memory.New(), nil

	case "file":
		logger.Info("using file key-value store", "dir", cfg.Dir)
		return file.New(cfg.Dir)

	case "sqlite":
		logger.Info("using sqlite key-value store", "path", cfg.Path)
		return sqlite.New(cfg.Path)

	default:
		return nil, fmt.Errorf("unknown kvstore backend: %s (supported: memory, file, sqlite)", cfg.Backend)
	}
}
