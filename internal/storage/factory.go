package storage

import (
	"fmt"

	"go.uber.org/zap"
)

// Backend names accepted by New.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Options selects and configures a storage backend.
type Options struct {
	Backend      string
	DatabasePath string
	BadgerPath   string
	Logger       *zap.Logger
}

// New opens the configured backend. An empty backend means sqlite.
func New(opts Options) (Storage, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		return NewSQLiteStorage(opts.DatabasePath)
	case BackendBadger:
		return NewBadgerStorage(BadgerOptions{Dir: opts.BadgerPath, Logger: opts.Logger})
	case BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: sqlite, badger, memory)", opts.Backend)
	}
}
