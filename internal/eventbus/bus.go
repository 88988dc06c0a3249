package eventbus

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event is a lightweight, in-memory signal used to decouple the reminder
// engine from its observers (metrics, logs, the debug feed).
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop events (bounded backpressure).
//
// Data should be small and ideally JSON-serializable.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// Engine topics.
const (
	TopicReminderScheduled = "reminder.scheduled"
	TopicReminderCancelled = "reminder.cancelled"
	TopicReminderFailed    = "reminder.failed"
	TopicDelivered         = "notification.delivered"
	TopicAction            = "notification.action"
	TopicBootstrap         = "reminder.bootstrap"
)

// ReminderData is the payload of the reminder.* topics.
type ReminderData struct {
	ID     string    `json:"id"`
	Family string    `json:"family"`
	FireAt time.Time `json:"fire_at,omitempty"`
	Err    string    `json:"err,omitempty"`
}

// NotificationData is the payload of the notification.* topics.
type NotificationData struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Context string `json:"context"` // foreground|background
	Action  string `json:"action,omitempty"`
}

// BootstrapData summarizes one bootstrap run.
type BootstrapData struct {
	Goal      string        `json:"goal"`
	Scheduled int           `json:"scheduled"`
	Failed    int           `json:"failed"`
	Pruned    int           `json:"pruned"`
	Took      time.Duration `json:"took"`
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns a simple in-memory fanout bus.
//
// It intentionally does not own any background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

// Nop returns a bus that drops everything.
func Nop() Bus { return nopBus{} }

type nopBus struct{}

func (nopBus) Publish(Event) {}
func (nopBus) Subscribe(int) (<-chan Event, func()) {
	ch := make(chan Event)
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}

// MatchPrefix reports whether e.Type starts with any of the prefixes.
// An empty prefix list matches everything.
func MatchPrefix(e Event, prefixes ...string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(e.Type, p) {
			return true
		}
	}
	return false
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Snapshot subscribers so Publish doesn't hold locks while attempting sends.
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If subscriber is slow, we drop.
		// A concurrent unsubscribe may close the channel; recover from the
		// send-on-closed panic.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}
