package local

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nutricare/internal/platform"
	logx "nutricare/pkg/logx"
)

type recorder struct {
	mu  sync.Mutex
	evs []platform.Event
	ch  chan struct{}
}

func newRecorder() *recorder { return &recorder{ch: make(chan struct{}, 16)} }

func (r *recorder) handle(ctx context.Context, ev platform.Event) {
	r.mu.Lock()
	r.evs = append(r.evs, ev)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.evs)
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestCreateTrigger_ReplacesSameID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := New(Config{Authorization: "authorized"}, logx.Nop())
	defer g.Close()

	at := time.Now().Add(time.Hour)
	for i := 0; i < 3; i++ {
		if _, err := g.CreateTrigger(ctx, platform.Notification{ID: "a", Title: "t"}, platform.TimestampTrigger{FireAt: at}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	ids, _ := g.TriggerIDs(ctx)
	if len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("ids = %v", ids)
	}
	if err := g.Cancel(ctx, "a"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := g.Cancel(ctx, "a"); err != nil {
		t.Fatalf("cancel unknown: %v", err)
	}
	if ids, _ := g.TriggerIDs(ctx); len(ids) != 0 {
		t.Fatalf("ids after cancel = %v", ids)
	}
}

func TestCreateTrigger_RejectsPast(t *testing.T) {
	t.Parallel()

	g := New(Config{}, logx.Nop())
	defer g.Close()
	_, err := g.CreateTrigger(context.Background(), platform.Notification{ID: "x"}, platform.TimestampTrigger{FireAt: time.Now().Add(-time.Minute)})
	if !errors.Is(err, platform.ErrPastFireTime) {
		t.Fatalf("err = %v", err)
	}
}

func TestDelivery_RoutesToExactlyOneContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := New(Config{Authorization: "authorized"}, logx.Nop())
	defer g.Close()

	fg, bg := newRecorder(), newRecorder()
	unsub := g.OnForegroundEvent(fg.handle)
	g.OnBackgroundEvent(bg.handle)

	at := time.Now().Add(time.Hour)
	_, _ = g.CreateTrigger(ctx, platform.Notification{ID: "one"}, platform.TimestampTrigger{FireAt: at})
	if err := g.FireNow("one"); err != nil {
		t.Fatalf("fire: %v", err)
	}
	fg.wait(t)
	if fg.count() != 1 || bg.count() != 0 {
		t.Fatalf("foreground delivery: fg=%d bg=%d", fg.count(), bg.count())
	}

	g.SetBackground(true)
	_, _ = g.CreateTrigger(ctx, platform.Notification{ID: "two"}, platform.TimestampTrigger{FireAt: at})
	_ = g.FireNow("two")
	bg.wait(t)
	if fg.count() != 1 || bg.count() != 1 {
		t.Fatalf("background delivery: fg=%d bg=%d", fg.count(), bg.count())
	}

	// Foreground with no subscribers falls back to the background handler.
	g.SetBackground(false)
	unsub()
	_, _ = g.CreateTrigger(ctx, platform.Notification{ID: "three"}, platform.TimestampTrigger{FireAt: at})
	_ = g.FireNow("three")
	bg.wait(t)
	if bg.count() != 2 {
		t.Fatalf("fallback delivery: bg=%d", bg.count())
	}
}

func TestTimerFires(t *testing.T) {
	t.Parallel()

	g := New(Config{Authorization: "authorized"}, logx.Nop())
	defer g.Close()
	rec := newRecorder()
	g.OnForegroundEvent(rec.handle)

	_, err := g.CreateTrigger(context.Background(), platform.Notification{ID: "soon"}, platform.TimestampTrigger{FireAt: time.Now().Add(20 * time.Millisecond)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rec.wait(t)
	if ids, _ := g.TriggerIDs(context.Background()); len(ids) != 0 {
		t.Fatalf("fired trigger still pending: %v", ids)
	}
	if len(g.Shown()) != 1 {
		t.Fatalf("shown = %v", g.Shown())
	}
}

func TestPress_EmitsAction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := New(Config{Authorization: "authorized"}, logx.Nop())
	defer g.Close()
	rec := newRecorder()
	g.OnForegroundEvent(rec.handle)

	_, _ = g.CreateTrigger(ctx, platform.Notification{ID: "p", Data: map[string]string{"k": "v"}}, platform.TimestampTrigger{FireAt: time.Now().Add(time.Hour)})
	if err := g.Press(ctx, "p", "done"); err != nil {
		t.Fatalf("press: %v", err)
	}
	rec.wait(t)
	ev := rec.evs[0]
	if ev.Type != platform.EventActionPressed || ev.Detail.PressAction.ID != "done" || ev.Detail.Notification.Data["k"] != "v" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if err := g.Press(ctx, "missing", "done"); !errors.Is(err, platform.ErrUnknownTrigger) {
		t.Fatalf("press unknown err = %v", err)
	}
}

func TestAuthorization(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := New(Config{GrantOnRequest: false}, logx.Nop())
	defer g.Close()
	if s, _ := g.AuthorizationStatus(ctx); s != platform.AuthNotDetermined {
		t.Fatalf("initial = %v", s)
	}
	if s, _ := g.RequestAuthorization(ctx); s != platform.AuthDenied {
		t.Fatalf("request = %v", s)
	}
	g.SetAuthorization(platform.AuthAuthorized)
	if s, _ := g.RequestAuthorization(ctx); s != platform.AuthAuthorized {
		t.Fatalf("after grant = %v", s)
	}
	_ = g.OpenSettings(ctx)
	if g.SettingsOpened() != 1 {
		t.Fatalf("settings opened = %d", g.SettingsOpened())
	}
}
