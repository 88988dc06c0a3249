package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"nutricare/internal/storage"
)

func TestAppend_DedupKeepsLatestAtHead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(storage.NewMemory())

	_ = s.Append(ctx, Item{ID: "a", Message: "first"})
	_ = s.Append(ctx, Item{ID: "b", Message: "other"})
	if err := s.Append(ctx, Item{ID: "a", Message: "second"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got := s.ReadAll(ctx)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].ID != "a" || got[0].Message != "second" || got[1].ID != "b" {
		t.Fatalf("unexpected order/content: %+v", got)
	}
}

func TestAppend_CapacityEvictsOldest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(storage.NewMemory())
	for i := 0; i < 301; i++ {
		if err := s.Append(ctx, Item{ID: fmt.Sprintf("n%03d", i)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	got := s.ReadAll(ctx)
	if len(got) != DefaultCapacity {
		t.Fatalf("len = %d, want %d", len(got), DefaultCapacity)
	}
	if got[0].ID != "n300" {
		t.Fatalf("head = %s", got[0].ID)
	}
	if got[len(got)-1].ID != "n001" {
		t.Fatalf("tail = %s, oldest (n000) should be evicted", got[len(got)-1].ID)
	}
}

func TestAppend_RejectsEmptyID(t *testing.T) {
	t.Parallel()

	s := New(nil)
	if err := s.Append(context.Background(), Item{}); err != ErrEmptyID {
		t.Fatalf("err = %v", err)
	}
}

func TestReadAll_CorruptIsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := storage.NewMemory()
	_ = kv.Set(ctx, DefaultKey, "{not json")
	s := New(kv)
	if got := s.ReadAll(ctx); len(got) != 0 {
		t.Fatalf("got %+v", got)
	}
	// Appending over corrupt data starts a fresh list.
	if err := s.Append(ctx, Item{ID: "x"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if got := s.ReadAll(ctx); len(got) != 1 {
		t.Fatalf("after append got %+v", got)
	}
}

func TestSubscribe_FullListOnEveryMutation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(storage.NewMemory())

	var seen [][]Item
	unsub := s.Subscribe(func(items []Item) { seen = append(seen, items) })

	_ = s.Append(ctx, Item{ID: "a"})
	_ = s.Append(ctx, Item{ID: "b"})
	_ = s.Clear(ctx)
	unsub()
	_ = s.Append(ctx, Item{ID: "c"})

	if len(seen) != 3 {
		t.Fatalf("callbacks = %d, want 3", len(seen))
	}
	if len(seen[0]) != 1 || len(seen[1]) != 2 || seen[1][0].ID != "b" || len(seen[2]) != 0 {
		t.Fatalf("unexpected snapshots: %+v", seen)
	}
}

func TestSubscribe_PersistedBeforeFanout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := storage.NewMemory()
	s := New(kv)

	var stored string
	s.Subscribe(func(items []Item) { stored, _, _ = kv.Get(ctx, DefaultKey) })
	_ = s.Append(ctx, Item{ID: "a"})
	if stored == "" {
		t.Fatalf("subscriber ran before the list was persisted")
	}
}

func TestSubscribe_PanicIsContained(t *testing.T) {
	t.Parallel()

	s := New(nil)
	s.Subscribe(func([]Item) { panic("ui bug") })
	if err := s.Append(context.Background(), Item{ID: "a"}); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestCustomKeyAndCapacity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := storage.NewMemory()
	s := New(kv, WithKey("hist"), WithCapacity(2))
	for _, id := range []string{"a", "b", "c"} {
		_ = s.Append(ctx, Item{ID: id, At: FormatAt(time.Now())})
	}
	if _, ok, _ := kv.Get(ctx, "hist"); !ok {
		t.Fatalf("custom key not used")
	}
	if got := s.ReadAll(ctx); len(got) != 2 || got[1].ID != "b" {
		t.Fatalf("got %+v", got)
	}
}
