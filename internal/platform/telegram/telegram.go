// Package telegram delivers reminders as Telegram messages.
//
// Triggers are kept in an in-process Timetable; when one is due the
// notification is sent to the configured chat with one inline button per
// action. Button presses come back through the long poller as callback
// queries and are surfaced as ActionPressed events.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"nutricare/internal/platform"
	rtsup "nutricare/internal/runtime/supervisor"
	logx "nutricare/pkg/logx"
	"nutricare/pkg/tgui"
)

type Config struct {
	Token       string
	ChatID      int64
	PollTimeout time.Duration

	RatePerSec    float64
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	QueueSize     int
}

// sender is the part of *tele.Bot used for delivery.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type Gateway struct {
	cfg Config
	log logx.Logger

	bot    *tele.Bot
	sender sender

	limiter  *rate.Limiter
	queue    chan platform.Notification
	handlers platform.Handlers
	table    *platform.Timetable

	mu       sync.Mutex
	channels map[string]platform.Channel
	sent     map[string]platform.Notification
	sentIDs  []string
	closed   bool
}

var (
	_ platform.Gateway = (*Gateway)(nil)
	_ platform.Starter = (*Gateway)(nil)
)

const sentLimit = 200

func New(cfg Config, log logx.Logger) (*Gateway, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is required")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	g := newGateway(cfg, b, log)
	g.bot = b
	b.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil || c.Chat() == nil || c.Chat().ID != g.cfg.ChatID {
			return nil
		}
		reply := g.handleCallback(context.Background(), cb.Data)
		return c.Respond(&tele.CallbackResponse{Text: reply})
	})
	return g, nil
}

func newGateway(cfg Config, s sender, log logx.Logger) *Gateway {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}
	g := &Gateway{
		cfg:      cfg,
		log:      log.With(logx.String("comp", "platform.telegram")),
		sender:   s,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
		queue:    make(chan platform.Notification, cfg.QueueSize),
		channels: map[string]platform.Channel{},
		sent:     map[string]platform.Notification{},
	}
	g.table = platform.NewTimetable(g.enqueue)
	return g
}

// Start runs the send worker and, when a bot is configured, the long poller.
// It blocks until ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	sup := rtsup.New(ctx, rtsup.WithLogger(g.log))
	sup.Go0("telegram.send", g.sendLoop)
	if g.bot != nil {
		bot := g.bot
		sup.Go0("telegram.stop_on_cancel", func(c context.Context) {
			<-c.Done()
			bot.Stop()
		})
		// Start blocks until Stop; an early return while ctx is alive is restarted.
		sup.GoRestart("telegram.poll", func(c context.Context) error {
			g.log.Info("polling started")
			bot.Start()
			g.log.Info("polling stopped")
			if c.Err() != nil {
				return nil
			}
			return errors.New("poller exited")
		}, rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second))
	}
	<-sup.Context().Done()
	wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = sup.Wait(wctx)
	return nil
}

func (g *Gateway) enqueue(n platform.Notification) {
	select {
	case g.queue <- n:
	default:
		g.log.Warn("send queue full, reminder dropped", logx.String("id", n.ID), logx.Int("cap", cap(g.queue)))
	}
}

func (g *Gateway) sendLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-g.queue:
			if err := g.sendWithRetry(ctx, n); err != nil {
				g.log.Warn("reminder send failed", logx.String("id", n.ID), logx.Err(err))
				continue
			}
			g.remember(n)
			ev := platform.Event{Type: platform.EventDelivered, Detail: platform.EventDetail{Notification: &n}}
			if !g.handlers.Emit(ctx, true, ev) {
				g.log.Warn("delivered with no handler", logx.String("id", n.ID))
			}
		}
	}
}

func (g *Gateway) sendWithRetry(ctx context.Context, n platform.Notification) error {
	for attempt := 1; ; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		err := g.send(n)
		if err == nil {
			return nil
		}
		if attempt >= g.cfg.RetryMax {
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		}
		d := retryDelay(g.cfg, attempt)
		g.log.Debug("send retry", logx.String("id", n.ID), logx.Int("attempt", attempt), logx.Duration("delay", d), logx.Err(err))
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (g *Gateway) send(n platform.Notification) error {
	if g.sender == nil {
		return platform.ErrClosed
	}
	opt := &tele.SendOptions{ParseMode: tele.ModeHTML, DisableWebPagePreview: true}
	kb := tgui.NewInline()
	btns := make([]tele.Btn, 0, len(n.Actions))
	for _, a := range n.Actions {
		data, err := tgui.Data(a.ID, n.ID)
		if err != nil {
			g.log.Warn("action button dropped", logx.String("id", n.ID), logx.String("action", a.ID), logx.Err(err))
			continue
		}
		btns = append(btns, tgui.Btn(a.Title, data))
	}
	opt.ReplyMarkup = kb.Row(btns...).Markup()
	_, err := g.sender.Send(&tele.Chat{ID: g.cfg.ChatID}, tgui.Reminder(n.Title, n.Body).String(), opt)
	return err
}

// handleCallback turns a button press into an ActionPressed event and
// returns the toast text for the user.
func (g *Gateway) handleCallback(ctx context.Context, data string) string {
	action, id, ok := tgui.ParseData(data)
	if !ok {
		return ""
	}
	g.mu.Lock()
	n, known := g.sent[id]
	g.mu.Unlock()
	if !known {
		// Sent before a restart; the id alone is enough to resolve the reminder.
		n = platform.Notification{ID: id}
	}
	ev := platform.Event{
		Type: platform.EventActionPressed,
		Detail: platform.EventDetail{
			Notification: &n,
			PressAction:  &platform.PressAction{ID: action},
		},
	}
	g.handlers.Emit(ctx, true, ev)
	return "Marked done"
}

func (g *Gateway) remember(n platform.Notification) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sent[n.ID]; !ok {
		g.sentIDs = append(g.sentIDs, n.ID)
	}
	g.sent[n.ID] = n
	for len(g.sentIDs) > sentLimit {
		delete(g.sent, g.sentIDs[0])
		g.sentIDs = g.sentIDs[1:]
	}
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

// A configured chat is the permission grant.
func (g *Gateway) AuthorizationStatus(ctx context.Context) (platform.AuthStatus, error) {
	_ = ctx
	if g.cfg.ChatID == 0 {
		return platform.AuthDenied, nil
	}
	return platform.AuthAuthorized, nil
}

func (g *Gateway) RequestAuthorization(ctx context.Context) (platform.AuthStatus, error) {
	return g.AuthorizationStatus(ctx)
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
	return n.ID, nil
}

func (g *Gateway) Cancel(ctx context.Context, id string) error {
	_ = ctx
	g.table.Remove(id)
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
	g.log.Warn("telegram delivery needs a chat: set gateway.telegram.chat_id and start a conversation with the bot")
	return nil
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.table.Close()
	return nil
}

func retryDelay(cfg Config, attempt int) time.Duration {
	// attempt starts at 1 (first attempt), delay is for the NEXT attempt.
	base := cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	maxD := cfg.RetryMaxDelay
	if maxD <= 0 {
		maxD = 10 * time.Second
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxD {
			d = maxD
			break
		}
	}
	// Jitter 0.7..1.3
	d = time.Duration(float64(d) * (0.7 + rand.Float64()*0.6))
	if d > maxD {
		d = maxD
	}
	return d
}
