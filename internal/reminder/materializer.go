package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"nutricare/internal/eventbus"
	"nutricare/internal/platform"
	logx "nutricare/pkg/logx"
)

type MaterializerOptions struct {
	Location    *time.Location
	Now         func() time.Time
	Parallelism int
	Bus         eventbus.Bus
	Log         logx.Logger
}

// Materializer turns slots into live platform triggers. For a given id it
// always cancels before it creates, under a per-id lock, so at most one live
// trigger exists per logical reminder.
type Materializer struct {
	gw    platform.Gateway
	ready *Readiness
	loc   *time.Location
	now   func() time.Time
	par   int
	bus   eventbus.Bus
	log   logx.Logger
	locks *keyedMutex
}

// SlotError is one failed slot of a range run.
type SlotError struct {
	ID     string `json:"id"`
	Family Family `json:"family"`
	Err    string `json:"err"`
}

// RangeReport summarizes ScheduleRange. It is informational; partial success
// is normal.
type RangeReport struct {
	Scheduled []Trigger     `json:"scheduled"`
	Skipped   []string      `json:"skipped,omitempty"`
	Failed    []SlotError   `json:"failed,omitempty"`
	Took      time.Duration `json:"took"`
}

func NewMaterializer(gw platform.Gateway, ready *Readiness, opt MaterializerOptions) *Materializer {
	if opt.Location == nil {
		opt.Location = time.Local
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Parallelism <= 0 {
		opt.Parallelism = 4
	}
	if opt.Bus == nil {
		opt.Bus = eventbus.Nop()
	}
	if opt.Log.IsZero() {
		opt.Log = logx.Nop()
	}
	return &Materializer{
		gw:    gw,
		ready: ready,
		loc:   opt.Location,
		now:   opt.Now,
		par:   opt.Parallelism,
		bus:   opt.Bus,
		log:   opt.Log.With(logx.String("comp", "reminder.materializer")),
		locks: newKeyedMutex(),
	}
}

func (m *Materializer) Location() *time.Location { return m.loc }

// Today is the current calendar day in the engine location.
func (m *Materializer) Today() Date { return DateOf(m.now().In(m.loc)) }

func (m *Materializer) ensureReady(ctx context.Context) {
	if m.ready == nil {
		return
	}
	if _, err := m.ready.EnsureReady(ctx); err != nil {
		m.log.Warn("ensure ready failed", logx.Err(err))
	}
}

// ScheduleOne (re)creates the trigger for slot on date. Calling it again for
// the same slot and date replaces the trigger instead of adding one.
func (m *Materializer) ScheduleOne(ctx context.Context, slot Slot, date Date) (Trigger, error) {
	m.ensureReady(ctx)
	return m.scheduleOne(ctx, slot, date)
}

func (m *Materializer) scheduleOne(ctx context.Context, slot Slot, date Date) (Trigger, error) {
	tr := BuildTrigger(slot, date, m.now(), m.loc, m.channelID())

	unlock := m.locks.Lock(tr.ID)
	defer unlock()

	if err := m.gw.Cancel(ctx, tr.ID); err != nil {
		return tr, m.failed(tr, fmt.Errorf("cancel %s: %w", tr.ID, err))
	}
	if _, err := m.gw.CreateTrigger(ctx, tr.Notification, platform.TimestampTrigger{FireAt: tr.FireAt, AllowWhileIdle: true}); err != nil {
		return tr, m.failed(tr, fmt.Errorf("create %s: %w", tr.ID, err))
	}

	m.log.Debug("reminder scheduled", logx.String("id", tr.ID), logx.Time("fire_at", tr.FireAt), logx.Bool("rolled_over", tr.RolledOver))
	m.bus.Publish(eventbus.Event{Type: eventbus.TopicReminderScheduled, Data: eventbus.ReminderData{ID: tr.ID, Family: string(tr.Family), FireAt: tr.FireAt}})
	return tr, nil
}

func (m *Materializer) failed(tr Trigger, err error) error {
	m.log.Warn("reminder schedule failed", logx.String("id", tr.ID), logx.Err(err))
	m.bus.Publish(eventbus.Event{Type: eventbus.TopicReminderFailed, Data: eventbus.ReminderData{ID: tr.ID, Family: string(tr.Family), FireAt: tr.FireAt, Err: err.Error()}})
	return err
}

func (m *Materializer) channelID() string {
	if m.ready == nil {
		return DefaultChannelID
	}
	return m.ready.ChannelID()
}

// ScheduleRange schedules every slot on today+0 .. today+daysAhead. Slots are
// processed concurrently and a failing slot never stops its siblings.
//
// An instance whose nominal time already passed rolls over to a later day. If
// that day is inside the horizon the same slot is scheduled under its own id
// there, so the rolled-over copy is skipped (and any old trigger at its id
// cancelled) rather than doubling the reminder.
func (m *Materializer) ScheduleRange(ctx context.Context, slots []Slot, daysAhead int) RangeReport {
	start := time.Now()
	m.ensureReady(ctx)
	if daysAhead < 0 {
		daysAhead = 0
	}

	now := m.now()
	today := DateOf(now.In(m.loc))
	planned := Plan(slots, today, daysAhead, now, m.loc)

	type slotKey struct {
		family Family
		subKey string
		at     int64
	}
	nominal := map[slotKey]bool{}
	for _, tr := range planned {
		if !tr.RolledOver {
			nominal[slotKey{tr.Family, tr.SubKey, tr.FireAt.UnixNano()}] = true
		}
	}
	bySlot := map[string]Slot{}
	for _, s := range slots {
		bySlot[string(s.Family)+"/"+s.SubKey] = s
	}

	var (
		mu     sync.Mutex
		report RangeReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.par)
	for _, tr := range planned {
		tr := tr
		if tr.RolledOver && nominal[slotKey{tr.Family, tr.SubKey, tr.FireAt.UnixNano()}] {
			g.Go(func() error {
				_ = m.cancelID(gctx, tr.ID, tr.Family)
				mu.Lock()
				report.Skipped = append(report.Skipped, tr.ID)
				mu.Unlock()
				return nil
			})
			continue
		}
		slot := bySlot[string(tr.Family)+"/"+tr.SubKey]
		g.Go(func() error {
			got, err := m.scheduleOne(gctx, slot, tr.Date)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, SlotError{ID: tr.ID, Family: tr.Family, Err: err.Error()})
				return nil
			}
			report.Scheduled = append(report.Scheduled, got)
			return nil
		})
	}
	_ = g.Wait()

	SortTriggers(report.Scheduled)
	report.Took = time.Since(start)
	m.log.Info("range scheduled",
		logx.Int("slots", len(slots)),
		logx.Int("days_ahead", daysAhead),
		logx.Int("scheduled", len(report.Scheduled)),
		logx.Int("skipped", len(report.Skipped)),
		logx.Int("failed", len(report.Failed)),
		logx.Duration("took", report.Took),
	)
	return report
}

// Cancel removes the trigger for (family, subKey, date). Unknown ids are fine.
func (m *Materializer) Cancel(ctx context.Context, f Family, subKey string, date Date) error {
	m.ensureReady(ctx)
	return m.cancelID(ctx, DeriveID(f, subKey, date), f)
}

// CancelID removes a trigger by id.
func (m *Materializer) CancelID(ctx context.Context, id string) error {
	m.ensureReady(ctx)
	f, _, _, _ := ParseID(id)
	return m.cancelID(ctx, id, f)
}

func (m *Materializer) cancelID(ctx context.Context, id string, f Family) error {
	unlock := m.locks.Lock(id)
	defer unlock()
	if err := m.gw.Cancel(ctx, id); err != nil {
		m.log.Warn("reminder cancel failed", logx.String("id", id), logx.Err(err))
		return fmt.Errorf("cancel %s: %w", id, err)
	}
	m.log.Debug("reminder cancelled", logx.String("id", id))
	m.bus.Publish(eventbus.Event{Type: eventbus.TopicReminderCancelled, Data: eventbus.ReminderData{ID: id, Family: string(f)}})
	return nil
}
