package app

import (
	"fmt"
	"strings"
	"time"

	"nutricare/internal/config"
	"nutricare/internal/history"
	"nutricare/internal/storage"
	logx "nutricare/pkg/logx"
)

// mapStorageConfig converts the storage section. A nil section or driver
// "none" falls back to the in-memory driver so history still works within
// one process.
func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{Driver: "memory"}, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "", "none", "memory", "mem":
		return storage.Config{Driver: "memory"}, nil
	case "file", "badger":
		return storage.Config{Driver: driver, Path: path, SyncWrites: sc.SyncWrites}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// OpenStorage opens the configured KV store.
func OpenStorage(cfg *config.Config, log logx.Logger) (storage.KV, error) {
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	kv, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	if kv == nil {
		kv = storage.NewMemory()
	}
	return kv, nil
}

// NewHistory builds the history store over kv using the history section.
func NewHistory(cfg *config.Config, kv storage.KV, log logx.Logger) *history.Store {
	opts := []history.Option{history.WithLogger(log.With(logx.String("comp", "history")))}
	if cfg != nil {
		if k := strings.TrimSpace(cfg.History.Key); k != "" {
			opts = append(opts, history.WithKey(k))
		}
		if cfg.History.Capacity > 0 {
			opts = append(opts, history.WithCapacity(cfg.History.Capacity))
		}
	}
	return history.New(kv, opts...)
}
