package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nutricare/internal/eventbus"
	"nutricare/internal/platform"
	logx "nutricare/pkg/logx"
)

// BootstrapOptions selects what a bootstrap run materializes.
type BootstrapOptions struct {
	DaysAhead int
	MealPre   bool
	MealPost  bool
	Hydration bool
	// Reconcile cancels engine-owned triggers this run did not produce
	// (goal change, shorter horizon, disabled family).
	Reconcile bool
}

// DefaultBootstrapOptions enables every family over a two day horizon.
func DefaultBootstrapOptions() BootstrapOptions {
	return BootstrapOptions{DaysAhead: 2, MealPre: true, MealPost: true, Hydration: true, Reconcile: true}
}

// Families lists the enabled families in plan order.
func (o BootstrapOptions) Families() []Family {
	var out []Family
	if o.MealPre {
		out = append(out, FamilyMealPre)
	}
	if o.MealPost {
		out = append(out, FamilyMealPost)
	}
	if o.Hydration {
		out = append(out, FamilyHydration)
	}
	return out
}

// BootstrapReport describes one bootstrap run.
type BootstrapReport struct {
	Goal   Goal                `json:"goal"`
	Auth   platform.AuthStatus `json:"-"`
	Range  RangeReport         `json:"range"`
	Pruned []string            `json:"pruned,omitempty"`
	Took   time.Duration       `json:"took"`
}

// Lifecycle is the facade used by the daemon and by meal-logging flows.
type Lifecycle struct {
	gw    platform.Gateway
	ready *Readiness
	mat   *Materializer
	cat   *Catalog
	goals GoalSource
	bus   eventbus.Bus
	log   logx.Logger

	// One bootstrap at a time; cron refresh and config reload can overlap.
	bootMu sync.Mutex

	goalMu   sync.RWMutex
	lastGoal Goal
}

type LifecycleOptions struct {
	Bus eventbus.Bus
	Log logx.Logger
}

func NewLifecycle(gw platform.Gateway, ready *Readiness, mat *Materializer, cat *Catalog, goals GoalSource, opt LifecycleOptions) *Lifecycle {
	if cat == nil {
		cat = DefaultCatalog()
	}
	if goals == nil {
		goals = StaticGoal(GoalMaintain)
	}
	if opt.Bus == nil {
		opt.Bus = eventbus.Nop()
	}
	if opt.Log.IsZero() {
		opt.Log = logx.Nop()
	}
	return &Lifecycle{
		gw:       gw,
		ready:    ready,
		mat:      mat,
		cat:      cat,
		goals:    goals,
		bus:      opt.Bus,
		log:      opt.Log.With(logx.String("comp", "reminder.lifecycle")),
		lastGoal: GoalMaintain,
	}
}

func (l *Lifecycle) EnsureReady(ctx context.Context) (platform.AuthStatus, error) {
	return l.ready.EnsureReady(ctx)
}

// Goal resolves the user goal, falling back to MAINTAIN on lookup errors.
func (l *Lifecycle) Goal(ctx context.Context) Goal {
	g, err := l.goals.UserGoal(ctx)
	if err != nil {
		l.log.Warn("goal lookup failed, using MAINTAIN", logx.Err(err))
		g = GoalMaintain
	}
	l.goalMu.Lock()
	l.lastGoal = g
	l.goalMu.Unlock()
	return g
}

// LastGoal is the goal used by the most recent bootstrap or Schedule call.
func (l *Lifecycle) LastGoal() Goal {
	l.goalMu.RLock()
	defer l.goalMu.RUnlock()
	return l.lastGoal
}

// Bootstrap looks up the goal, makes sure the platform is ready and
// materializes the rolling horizon for every enabled family.
func (l *Lifecycle) Bootstrap(ctx context.Context, opt BootstrapOptions) (BootstrapReport, error) {
	l.bootMu.Lock()
	defer l.bootMu.Unlock()

	start := time.Now()
	rep := BootstrapReport{Goal: l.Goal(ctx)}

	status, err := l.ready.EnsureReady(ctx)
	if err != nil {
		l.log.Warn("ensure ready failed, scheduling anyway", logx.Err(err))
	}
	rep.Auth = status

	var slots []Slot
	for _, f := range opt.Families() {
		s, err := l.cat.Slots(f, rep.Goal)
		if err != nil {
			return rep, fmt.Errorf("slots for %s: %w", f, err)
		}
		slots = append(slots, s...)
	}
	rep.Range = l.mat.ScheduleRange(ctx, slots, opt.DaysAhead)

	if opt.Reconcile {
		rep.Pruned = l.reconcile(ctx, rep.Range)
	}
	rep.Took = time.Since(start)

	l.log.Info("bootstrap done",
		logx.String("goal", string(rep.Goal)),
		logx.String("auth", status.String()),
		logx.Int("scheduled", len(rep.Range.Scheduled)),
		logx.Int("failed", len(rep.Range.Failed)),
		logx.Int("pruned", len(rep.Pruned)),
		logx.Duration("took", rep.Took),
	)
	l.bus.Publish(eventbus.Event{Type: eventbus.TopicBootstrap, Data: eventbus.BootstrapData{
		Goal:      string(rep.Goal),
		Scheduled: len(rep.Range.Scheduled),
		Failed:    len(rep.Range.Failed),
		Pruned:    len(rep.Pruned),
		Took:      rep.Took,
	}})
	return rep, nil
}

// reconcile cancels engine-owned triggers that the range run did not
// produce. Failed ids are kept: an old trigger beats no trigger.
func (l *Lifecycle) reconcile(ctx context.Context, rr RangeReport) []string {
	ids, err := l.gw.TriggerIDs(ctx)
	if err != nil {
		l.log.Warn("list triggers failed, skipping reconcile", logx.Err(err))
		return nil
	}
	keep := make(map[string]bool, len(rr.Scheduled)+len(rr.Failed))
	for _, tr := range rr.Scheduled {
		keep[tr.ID] = true
	}
	for _, f := range rr.Failed {
		keep[f.ID] = true
	}
	var pruned []string
	for _, id := range ids {
		if keep[id] || !IsEngineID(id) {
			continue
		}
		if err := l.mat.CancelID(ctx, id); err != nil {
			continue
		}
		pruned = append(pruned, id)
	}
	return pruned
}

// Schedule materializes one reminder by family, sub-key and date.
func (l *Lifecycle) Schedule(ctx context.Context, f Family, subKey string, date Date) (Trigger, error) {
	goal := l.LastGoal()
	if f == FamilyHydration {
		goal = l.Goal(ctx)
	}
	slot, err := l.cat.Slot(f, subKey, goal)
	if err != nil {
		return Trigger{}, err
	}
	return l.mat.ScheduleOne(ctx, slot, date)
}

// OnAcknowledge is called when the user logs a meal or ticks a reminder. For
// meals the follow-up (meal-post) reminder is cancelled; hydration cancels
// its own trigger.
func (l *Lifecycle) OnAcknowledge(ctx context.Context, f Family, subKey string, date Date) error {
	switch f {
	case FamilyMealPre, FamilyMealPost:
		if _, ok := ParseMeal(subKey); !ok {
			return fmt.Errorf("%w: %s/%s", ErrUnknownSlot, f, subKey)
		}
		return l.mat.Cancel(ctx, FamilyMealPost, subKey, date)
	case FamilyHydration:
		return l.mat.Cancel(ctx, FamilyHydration, subKey, date)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFamily, f)
}

// Materializer exposes the underlying materializer.
func (l *Lifecycle) Materializer() *Materializer { return l.mat }

// Catalog exposes the plan tables.
func (l *Lifecycle) Catalog() *Catalog { return l.cat }
