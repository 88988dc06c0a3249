package reminder

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"nutricare/internal/eventbus"
	"nutricare/internal/history"
	"nutricare/internal/platform"
	logx "nutricare/pkg/logx"
)

const (
	ContextForeground = "foreground"
	ContextBackground = "background"
)

// HistoryAppender is the part of history.Store the dispatcher writes to.
type HistoryAppender interface {
	Append(ctx context.Context, item history.Item) error
}

// Canceller is the part of Materializer the dispatcher needs.
type Canceller interface {
	Cancel(ctx context.Context, f Family, subKey string, date Date) error
}

type DispatcherOptions struct {
	Now   func() time.Time
	NewID func() string
	Bus   eventbus.Bus
	Log   logx.Logger
}

// Dispatcher handles gateway events. Foreground and Background return two
// thin registrations over the same stateless logic; the only state they
// share is the durable history store.
type Dispatcher struct {
	hist   HistoryAppender
	cancel Canceller
	now    func() time.Time
	newID  func() string
	bus    eventbus.Bus
	log    logx.Logger
}

func NewDispatcher(hist HistoryAppender, cancel Canceller, opt DispatcherOptions) *Dispatcher {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.NewID == nil {
		opt.NewID = uuid.NewString
	}
	if opt.Bus == nil {
		opt.Bus = eventbus.Nop()
	}
	if opt.Log.IsZero() {
		opt.Log = logx.Nop()
	}
	return &Dispatcher{
		hist:   hist,
		cancel: cancel,
		now:    opt.Now,
		newID:  opt.NewID,
		bus:    opt.Bus,
		log:    opt.Log.With(logx.String("comp", "reminder.dispatch")),
	}
}

// Register wires both contexts into gw. The returned func removes the
// foreground subscription; the background handler stays for the process.
func (d *Dispatcher) Register(gw platform.Gateway) (unsubscribe func()) {
	gw.OnBackgroundEvent(d.Background())
	return gw.OnForegroundEvent(d.Foreground())
}

func (d *Dispatcher) Foreground() platform.Handler {
	return func(ctx context.Context, ev platform.Event) { d.handle(ctx, ContextForeground, ev) }
}

func (d *Dispatcher) Background() platform.Handler {
	return func(ctx context.Context, ev platform.Event) { d.handle(ctx, ContextBackground, ev) }
}

func (d *Dispatcher) handle(ctx context.Context, where string, ev platform.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event handler panicked", logx.String("context", where), logx.Any("panic", r))
		}
	}()
	switch ev.Type {
	case platform.EventDelivered:
		d.onDelivered(ctx, where, ev.Detail.Notification)
	case platform.EventActionPressed:
		action := ""
		if ev.Detail.PressAction != nil {
			action = ev.Detail.PressAction.ID
		}
		d.onAction(ctx, where, action, ev.Detail.Notification)
	default:
		d.log.Trace("event ignored", logx.String("context", where), logx.String("type", ev.Type.String()))
	}
}

func (d *Dispatcher) onDelivered(ctx context.Context, where string, n *platform.Notification) {
	item := Normalize(n, d.now(), d.newID)
	if err := d.hist.Append(ctx, item); err != nil {
		d.log.Warn("history append failed", logx.String("id", item.ID), logx.Err(err))
	}
	d.bus.Publish(eventbus.Event{Type: eventbus.TopicDelivered, Data: eventbus.NotificationData{ID: item.ID, Kind: string(item.Kind), Context: where}})
}

func (d *Dispatcher) onAction(ctx context.Context, where, action string, n *platform.Notification) {
	if action != ActionDone {
		d.log.Debug("unknown action ignored", logx.String("action", action))
		return
	}
	f, subKey, date, err := ResolveTarget(n)
	if err != nil {
		d.log.Warn("action target unresolved", logx.String("context", where), logx.Err(err))
		return
	}
	if err := d.cancel.Cancel(ctx, f, subKey, date); err != nil {
		d.log.Warn("action cancel failed", logx.String("id", DeriveID(f, subKey, date)), logx.Err(err))
	}
	d.bus.Publish(eventbus.Event{Type: eventbus.TopicAction, Data: eventbus.NotificationData{ID: DeriveID(f, subKey, date), Kind: string(f), Context: where, Action: action}})
}

// Normalize turns a delivered notification into a history item. Missing or
// unexpected fields never fail: kind falls back to "other", meal to empty,
// id to a random UUID.
func Normalize(n *platform.Notification, at time.Time, newID func() string) history.Item {
	if n == nil {
		n = &platform.Notification{}
	}
	data := n.Data
	if data == nil {
		data = map[string]string{}
	}

	id := strings.TrimSpace(n.ID)
	if id == "" {
		if newID == nil {
			newID = uuid.NewString
		}
		id = newID()
	}

	kind := history.ParseKind(data[DataKind])
	if kind == history.KindOther && data[DataKind] == "" {
		// Older payloads carry only the id.
		if f, _, _, err := ParseID(id); err == nil {
			kind = history.ParseKind(string(f))
		}
	}

	meal := ""
	if kind != history.KindOther {
		if m, ok := ParseMeal(data[DataMeal]); ok {
			meal = string(m)
		} else if _, sub, _, err := ParseID(id); err == nil {
			meal = sub
		}
	}

	return history.Item{
		ID:      id,
		Title:   n.Title,
		Message: n.Body,
		At:      history.FormatAt(at),
		Kind:    kind,
		Meal:    meal,
	}
}

// ResolveTarget finds which trigger a "done" press should cancel. A meal-pre
// press suppresses the matching meal-post; meal-post and hydration presses
// dismiss themselves. The data map is preferred, the id is the fallback.
func ResolveTarget(n *platform.Notification) (Family, string, Date, error) {
	if n == nil {
		return "", "", Date{}, ErrInvalidID
	}
	f, subKey, date, err := fromData(n.Data)
	if err != nil {
		f, subKey, date, err = ParseID(n.ID)
		if err != nil {
			return "", "", Date{}, err
		}
	}
	if f == FamilyMealPre {
		f = FamilyMealPost
	}
	return f, subKey, date, nil
}

func fromData(data map[string]string) (Family, string, Date, error) {
	if len(data) == 0 {
		return "", "", Date{}, ErrInvalidID
	}
	f, err := ParseFamily(data[DataFamily])
	if err != nil {
		return "", "", Date{}, err
	}
	date, err := ParseDate(data[DataDate])
	if err != nil {
		return "", "", Date{}, err
	}
	if f.IsMeal() {
		m, ok := ParseMeal(data[DataMeal])
		if !ok {
			return "", "", Date{}, ErrUnknownSlot
		}
		return f, string(m), date, nil
	}
	slot := strings.TrimSpace(data[DataSlot])
	if slot == "" {
		return "", "", Date{}, ErrUnknownSlot
	}
	return f, slot, date, nil
}
