package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"nutricare/internal/storage"
	logx "nutricare/pkg/logx"
)

const (
	DefaultKey      = "noti_history_v1"
	DefaultCapacity = 300
)

var ErrEmptyID = errors.New("history: item id is required")

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		if strings.TrimSpace(key) != "" {
			s.key = key
		}
	}
}

func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Store is the history singleton. Construct it once and pass it to every
// consumer (dispatcher, debug server, CLI).
type Store struct {
	kv       storage.KV
	key      string
	capacity int
	log      logx.Logger

	// mu serializes read-modify-write cycles and the fan-out that follows.
	mu sync.Mutex

	subMu sync.RWMutex
	subs  map[uint64]func([]Item)
	seq   uint64
}

// New returns a store over kv. A nil kv falls back to process memory.
func New(kv storage.KV, opts ...Option) *Store {
	if kv == nil {
		kv = storage.NewMemory()
	}
	s := &Store{
		kv:       kv,
		key:      DefaultKey,
		capacity: DefaultCapacity,
		log:      logx.Nop(),
		subs:     map[uint64]func([]Item){},
	}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	s.log = s.log.With(logx.String("comp", "history"))
	return s
}

func (s *Store) Capacity() int { return s.capacity }

// ReadAll returns the stored list, newest first. Unreadable or corrupt data
// reads as an empty list.
func (s *Store) ReadAll(ctx context.Context) []Item {
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) []Item {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.log.Warn("history read failed", logx.Err(err))
		return []Item{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []Item{}
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn("history corrupt, treating as empty", logx.Err(err))
		return []Item{}
	}
	if items == nil {
		items = []Item{}
	}
	return items
}

// Append inserts item at the head. An existing item with the same id is
// replaced, and the list is trimmed to capacity from the oldest end.
func (s *Store) Append(ctx context.Context, item Item) error {
	if strings.TrimSpace(item.ID) == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.load(ctx)
	next := make([]Item, 0, min(len(cur)+1, s.capacity))
	next = append(next, item)
	for _, it := range cur {
		if len(next) >= s.capacity {
			break
		}
		if it.ID == item.ID {
			continue
		}
		next = append(next, it)
	}

	b, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("history encode: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(b)); err != nil {
		return fmt.Errorf("history persist: %w", err)
	}
	s.publish(next)
	return nil
}

// Clear removes all items and notifies subscribers with an empty list.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("history clear: %w", err)
	}
	s.publish([]Item{})
	return nil
}

// Subscribe registers cb for every later mutation. Callbacks run
// synchronously on the mutating goroutine and get their own copy of the list.
func (s *Store) Subscribe(cb func(items []Item)) (unsubscribe func()) {
	if cb == nil {
		return func() {}
	}
	s.subMu.Lock()
	s.seq++
	id := s.seq
	s.subs[id] = cb
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) publish(items []Item) {
	s.subMu.RLock()
	cbs := make([]func([]Item), 0, len(s.subs))
	for _, cb := range s.subs {
		cbs = append(cbs, cb)
	}
	s.subMu.RUnlock()

	for _, cb := range cbs {
		cp := make([]Item, len(items))
		copy(cp, items)
		s.safeCall(cb, cp)
	}
}

func (s *Store) safeCall(cb func([]Item), items []Item) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("history subscriber panicked", logx.Any("panic", r))
		}
	}()
	cb(items)
}
