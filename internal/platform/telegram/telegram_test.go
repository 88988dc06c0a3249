package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"nutricare/internal/platform"
	logx "nutricare/pkg/logx"
)

type fakeSender struct {
	mu       sync.Mutex
	failures int
	texts    []string
	markups  []*tele.ReplyMarkup
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("telegram: 502")
	}
	s, _ := what.(string)
	f.texts = append(f.texts, s)
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			f.markups = append(f.markups, so.ReplyMarkup)
		}
	}
	return &tele.Message{ID: len(f.texts)}, nil
}

func testConfig() Config {
	return Config{ChatID: 42, RatePerSec: 1000, RetryMax: 3, RetryBase: time.Millisecond, RetryMaxDelay: 2 * time.Millisecond}
}

func TestSendAfterRetry_EmitsDelivered(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{failures: 2}
	g := newGateway(testConfig(), fs, logx.Nop())
	defer g.Close()

	got := make(chan platform.Event, 1)
	g.OnForegroundEvent(func(ctx context.Context, ev platform.Event) { got <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = g.Start(ctx) }()

	n := platform.Notification{ID: "water_0_20240502", Title: "Drink water", Body: "250 ml", Actions: []platform.Action{{ID: "done", Title: "Mark done"}}}
	if _, err := g.CreateTrigger(ctx, n, platform.TimestampTrigger{FireAt: time.Now().Add(10 * time.Millisecond)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	select {
	case ev := <-got:
		if ev.Type != platform.EventDelivered || ev.Detail.Notification.ID != n.ID {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no delivered event")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.texts) != 1 || fs.texts[0] != "<b>Drink water</b>\n250 ml" {
		t.Fatalf("texts = %q", fs.texts)
	}
	if len(fs.markups) != 1 || fs.markups[0] == nil || len(fs.markups[0].InlineKeyboard) != 1 {
		t.Fatalf("missing inline keyboard")
	}
	if data := fs.markups[0].InlineKeyboard[0][0].Data; data != "done|water_0_20240502" {
		t.Fatalf("callback data = %q", data)
	}
}

func TestSendGivesUp_NoDelivered(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{failures: 10}
	g := newGateway(testConfig(), fs, logx.Nop())
	defer g.Close()

	err := g.sendWithRetry(context.Background(), platform.Notification{ID: "x", Title: "t"})
	if err == nil {
		t.Fatalf("expected error after retries")
	}
	if fs.failures != 7 {
		t.Fatalf("attempts = %d, want 3", 10-fs.failures)
	}
}

func TestHandleCallback(t *testing.T) {
	t.Parallel()

	g := newGateway(testConfig(), &fakeSender{}, logx.Nop())
	defer g.Close()
	g.remember(platform.Notification{ID: "meal_lunch_20240502_pre", Data: map[string]string{"meal": "lunch"}})

	var got []platform.Event
	g.OnBackgroundEvent(func(ctx context.Context, ev platform.Event) { got = append(got, ev) })

	if reply := g.handleCallback(context.Background(), "done|meal_lunch_20240502_pre"); reply == "" {
		t.Fatalf("expected toast text")
	}
	_ = g.handleCallback(context.Background(), "done|unknown_id")
	_ = g.handleCallback(context.Background(), "garbage")

	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[0].Detail.PressAction.ID != "done" || got[0].Detail.Notification.Data["meal"] != "lunch" {
		t.Fatalf("first event = %+v", got[0])
	}
	if got[1].Detail.Notification.ID != "unknown_id" || got[1].Detail.Notification.Data != nil {
		t.Fatalf("second event = %+v", got[1])
	}
}

func TestRetryDelayBounds(t *testing.T) {
	t.Parallel()

	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}
	for attempt := 1; attempt <= 8; attempt++ {
		d := retryDelay(cfg, attempt)
		if d <= 0 || d > time.Second {
			t.Fatalf("attempt %d: delay %v out of bounds", attempt, d)
		}
	}
}

func TestRememberIsBounded(t *testing.T) {
	t.Parallel()

	g := newGateway(testConfig(), &fakeSender{}, logx.Nop())
	for i := 0; i < sentLimit+10; i++ {
		g.remember(platform.Notification{ID: string(rune('a'+i%26)) + time.Duration(i).String()})
	}
	if len(g.sent) != sentLimit || len(g.sentIDs) != sentLimit {
		t.Fatalf("sent=%d ids=%d", len(g.sent), len(g.sentIDs))
	}
}
