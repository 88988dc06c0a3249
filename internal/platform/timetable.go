package platform

import (
	"sort"
	"sync"
	"time"
)

// Timetable keeps live triggers keyed by notification id, each backed by a
// time.AfterFunc timer. Replacing or removing an id bumps its version so a
// stale timer callback that already started is ignored.
type Timetable struct {
	mu      sync.Mutex
	entries map[string]*ttEntry
	ver     map[string]uint64
	fire    func(n Notification)
	closed  bool
}

type ttEntry struct {
	n     Notification
	at    time.Time
	ver   uint64
	timer *time.Timer
}

// NewTimetable returns a table that calls fire (on the timer goroutine) when
// a trigger is due. The entry is removed before fire runs.
func NewTimetable(fire func(n Notification)) *Timetable {
	return &Timetable{
		entries: map[string]*ttEntry{},
		ver:     map[string]uint64{},
		fire:    fire,
	}
}

// Put upserts a trigger.
func (t *Timetable) Put(n Notification, at time.Time) error {
	if n.ID == "" {
		return ErrMissingTriggerID
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if old, ok := t.entries[n.ID]; ok {
		old.timer.Stop()
	}
	ver := t.ver[n.ID] + 1
	t.ver[n.ID] = ver

	e := &ttEntry{n: n.Clone(), at: at, ver: ver}
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	id := n.ID
	e.timer = time.AfterFunc(delay, func() { t.due(id, ver) })
	t.entries[id] = e
	return nil
}

func (t *Timetable) due(id string, ver uint64) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok || e.ver != ver || t.closed {
		t.mu.Unlock()
		return
	}
	delete(t.entries, id)
	fire := t.fire
	t.mu.Unlock()

	if fire != nil {
		fire(e.n.Clone())
	}
}

// FireNow delivers a pending trigger immediately. Returns false if id is not pending.
func (t *Timetable) FireNow(id string) bool {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok || t.closed {
		t.mu.Unlock()
		return false
	}
	e.timer.Stop()
	delete(t.entries, id)
	t.ver[id]++
	fire := t.fire
	t.mu.Unlock()

	if fire != nil {
		fire(e.n.Clone())
	}
	return true
}

// Remove cancels a trigger. Unknown ids are a no-op.
func (t *Timetable) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ver[id]++
	e, ok := t.entries[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.entries, id)
	return true
}

// Get returns a pending notification.
func (t *Timetable) Get(id string) (Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return Pending{}, false
	}
	return Pending{Notification: e.n.Clone(), FireAt: e.at}, true
}

// IDs returns pending ids, sorted.
func (t *Timetable) IDs() []string {
	t.mu.Lock()
	out := make([]string, 0, len(t.entries))
	for id := range t.entries {
		out = append(out, id)
	}
	t.mu.Unlock()
	sort.Strings(out)
	return out
}

// Pending returns live triggers ordered by fire time, then id.
func (t *Timetable) Pending() []Pending {
	t.mu.Lock()
	out := make([]Pending, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, Pending{Notification: e.n.Clone(), FireAt: e.at})
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].FireAt.Before(out[j].FireAt)
		}
		return out[i].Notification.ID < out[j].Notification.ID
	})
	return out
}

func (t *Timetable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close stops every timer. Later Puts fail with ErrClosed.
func (t *Timetable) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, e := range t.entries {
		e.timer.Stop()
		delete(t.entries, id)
	}
}
