package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrNotFound = errors.New("storage: key not found")
	ErrClosed   = errors.New("storage closed")
)

// Config configures storage.
//
// Driver values:
//   - "memory": process-local map, lost on exit
//   - "file": dependency-free file backend (json snapshot + jsonl journal)
//   - "sqlite": SQLite database file (modernc.org/sqlite, pure Go)
//   - "badger": BadgerDB directory
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	SyncWrites  bool          // badger only
}

// KV is the string key/value API the engine persists through.
//
// Get reports ok=false (and a nil error) for missing keys. Remove is
// idempotent.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// MustGet is Get with a missing key reported as ErrNotFound.
func MustGet(ctx context.Context, kv KV, key string) (string, error) {
	if kv == nil {
		return "", ErrDisabled
	}
	v, ok, err := kv.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}
