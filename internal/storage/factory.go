package storage

import (
	"fmt"
	"log/slog"

	"brandevo/internal/config"
)

func NewStore(cfg config.Store, logger *slog.Logger) (Store, error) {
	switch cfg.Kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(cfg.Path)
	case "badger":
		return NewBadgerStore(BadgerOptions{Path: cfg.Path, SyncWrites: true, Logger: logger}), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
