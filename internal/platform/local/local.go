// Package local is an in-process Notification Platform Gateway.
//
// Triggers fire on timers inside the daemon. Delivered notifications are
// logged and kept in a small "shown" list so simulated button presses
// (Press) can refer to them. Authorization and process state are
// configurable, which makes the driver the reference gateway for tests and
// for the debug HTTP surface.
package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nutricare/internal/platform"
	logx "nutricare/pkg/logx"
)

type Config struct {
	// Authorization is the initial permission state: authorized, denied,
	// provisional or not_determined.
	Authorization string
	// GrantOnRequest decides what RequestAuthorization returns while the
	// state is not determined.
	GrantOnRequest bool
	// Background starts the process in the background state.
	Background bool
	// ShownLimit bounds the list of delivered notifications kept for Press.
	ShownLimit int
}

type Gateway struct {
	log logx.Logger

	handlers platform.Handlers
	table    *platform.Timetable

	mu             sync.Mutex
	auth           platform.AuthStatus
	grantOnRequest bool
	background     bool
	channels       map[string]platform.Channel
	shown          []platform.Notification
	shownLimit     int
	settingsOpened int
	closed         bool
}

var _ platform.Gateway = (*Gateway)(nil)

func New(cfg Config, log logx.Logger) *Gateway {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.ShownLimit <= 0 {
		cfg.ShownLimit = 50
	}
	g := &Gateway{
		log:            log.With(logx.String("comp", "platform.local")),
		auth:           platform.ParseAuthStatus(cfg.Authorization),
		grantOnRequest: cfg.GrantOnRequest,
		background:     cfg.Background,
		channels:       map[string]platform.Channel{},
		shownLimit:     cfg.ShownLimit,
	}
	g.table = platform.NewTimetable(g.deliver)
	return g
}

func (g *Gateway) CreateChannel(ctx context.Context, ch platform.Channel) (string, error) {
	_ = ctx
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return "", platform.ErrClosed
	}
	g.channels[ch.ID] = ch
	return ch.ID, nil
}

// Channels returns the created channels.
func (g *Gateway) Channels() []platform.Channel {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]platform.Channel, 0, len(g.channels))
	for _, ch := range g.channels {
		out = append(out, ch)
	}
	return out
}

func (g *Gateway) AuthorizationStatus(ctx context.Context) (platform.AuthStatus, error) {
	_ = ctx
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.auth, nil
}

func (g *Gateway) RequestAuthorization(ctx context.Context) (platform.AuthStatus, error) {
	_ = ctx
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.auth == platform.AuthNotDetermined {
		if g.grantOnRequest {
			g.auth = platform.AuthAuthorized
		} else {
			g.auth = platform.AuthDenied
		}
	}
	return g.auth, nil
}

// SetAuthorization changes the permission state (e.g. user toggled it in settings).
func (g *Gateway) SetAuthorization(s platform.AuthStatus) {
	g.mu.Lock()
	g.auth = s
	g.mu.Unlock()
}

// SetBackground switches the process state used to route deliveries.
func (g *Gateway) SetBackground(background bool) {
	g.mu.Lock()
	g.background = background
	g.mu.Unlock()
}

func (g *Gateway) CreateTrigger(ctx context.Context, n platform.Notification, trig platform.TimestampTrigger) (string, error) {
	_ = ctx
	if n.ID == "" {
		return "", platform.ErrMissingTriggerID
	}
	if !trig.FireAt.After(time.Now()) {
		return "", fmt.Errorf("%w: %s", platform.ErrPastFireTime, trig.FireAt.Format(time.RFC3339))
	}
	if err := g.table.Put(n, trig.FireAt); err != nil {
		return "", err
	}
	g.log.Trace("trigger created", logx.String("id", n.ID), logx.Time("fire_at", trig.FireAt))
	return n.ID, nil
}

func (g *Gateway) Cancel(ctx context.Context, id string) error {
	_ = ctx
	if g.table.Remove(id) {
		g.log.Trace("trigger cancelled", logx.String("id", id))
	}
	g.mu.Lock()
	for i, n := range g.shown {
		if n.ID == id {
			g.shown = append(g.shown[:i], g.shown[i+1:]...)
			break
		}
	}
	g.mu.Unlock()
	return nil
}

func (g *Gateway) TriggerIDs(ctx context.Context) ([]string, error) {
	_ = ctx
	return g.table.IDs(), nil
}

func (g *Gateway) Pending(ctx context.Context) ([]platform.Pending, error) {
	_ = ctx
	return g.table.Pending(), nil
}

func (g *Gateway) OnForegroundEvent(h platform.Handler) func() {
	return g.handlers.OnForeground(h)
}

func (g *Gateway) OnBackgroundEvent(h platform.Handler) {
	g.handlers.OnBackground(h)
}

func (g *Gateway) OpenSettings(ctx context.Context) error {
	_ = ctx
	g.mu.Lock()
	g.settingsOpened++
	g.mu.Unlock()
	g.log.Info("notification settings requested")
	return nil
}

// SettingsOpened reports how many times OpenSettings was called.
func (g *Gateway) SettingsOpened() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settingsOpened
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.table.Close()
	return nil
}

// FireNow delivers a pending trigger immediately.
func (g *Gateway) FireNow(id string) error {
	if !g.table.FireNow(id) {
		return fmt.Errorf("%w: %s", platform.ErrUnknownTrigger, id)
	}
	return nil
}

// Shown returns delivered notifications still on display, newest first.
func (g *Gateway) Shown() []platform.Notification {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]platform.Notification, len(g.shown))
	copy(out, g.shown)
	return out
}

// Press simulates the user tapping an action button on a delivered (or
// still pending) notification.
func (g *Gateway) Press(ctx context.Context, id, action string) error {
	n, ok := g.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", platform.ErrUnknownTrigger, id)
	}
	g.mu.Lock()
	fg := !g.background
	g.mu.Unlock()

	ev := platform.Event{
		Type: platform.EventActionPressed,
		Detail: platform.EventDetail{
			Notification: &n,
			PressAction:  &platform.PressAction{ID: action},
		},
	}
	if !g.handlers.Emit(ctx, fg, ev) {
		g.log.Warn("action pressed with no handler", logx.String("id", id), logx.String("action", action))
	}
	return nil
}

func (g *Gateway) lookup(id string) (platform.Notification, bool) {
	g.mu.Lock()
	for _, n := range g.shown {
		if n.ID == id {
			g.mu.Unlock()
			return n.Clone(), true
		}
	}
	g.mu.Unlock()
	if p, ok := g.table.Get(id); ok {
		return p.Notification, true
	}
	return platform.Notification{}, false
}

func (g *Gateway) deliver(n platform.Notification) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	granted := g.auth.Granted()
	fg := !g.background
	if granted {
		g.shown = append([]platform.Notification{n}, g.shown...)
		if len(g.shown) > g.shownLimit {
			g.shown = g.shown[:g.shownLimit]
		}
	}
	g.mu.Unlock()

	if !granted {
		g.log.Debug("delivery suppressed, not authorized", logx.String("id", n.ID))
		return
	}
	g.log.Info("notification delivered", logx.String("id", n.ID), logx.String("title", n.Title), logx.Bool("foreground", fg))

	ev := platform.Event{Type: platform.EventDelivered, Detail: platform.EventDetail{Notification: &n}}
	if !g.handlers.Emit(context.Background(), fg, ev) {
		g.log.Warn("delivered with no handler", logx.String("id", n.ID))
	}
}
