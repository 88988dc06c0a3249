package platform

import (
	"context"
	"sync"
)

// Handlers is the event registry shared by drivers.
//
// Foreground handlers are subscriptions (many, removable). The background
// handler is a single process-wide registration; a later call replaces it.
type Handlers struct {
	mu         sync.RWMutex
	seq        uint64
	foreground map[uint64]Handler
	background Handler
}

func (h *Handlers) OnForeground(fn Handler) func() {
	if fn == nil {
		return func() {}
	}
	h.mu.Lock()
	if h.foreground == nil {
		h.foreground = map[uint64]Handler{}
	}
	h.seq++
	id := h.seq
	h.foreground[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.foreground, id)
			h.mu.Unlock()
		})
	}
}

func (h *Handlers) OnBackground(fn Handler) {
	h.mu.Lock()
	h.background = fn
	h.mu.Unlock()
}

// Emit routes ev to one context. With foreground=true it goes to every
// foreground subscriber, falling back to the background handler when there
// are none. Returns false when nobody received it.
func (h *Handlers) Emit(ctx context.Context, foreground bool, ev Event) bool {
	h.mu.RLock()
	var fg []Handler
	if foreground {
		fg = make([]Handler, 0, len(h.foreground))
		for _, fn := range h.foreground {
			fg = append(fg, fn)
		}
	}
	bg := h.background
	h.mu.RUnlock()

	if len(fg) > 0 {
		for _, fn := range fg {
			fn(ctx, ev)
		}
		return true
	}
	if bg != nil {
		bg(ctx, ev)
		return true
	}
	return false
}
