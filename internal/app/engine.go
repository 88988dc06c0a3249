package app

import (
	"context"
	"time"

	"nutricare/internal/config"
	"nutricare/internal/reminder"
	logx "nutricare/pkg/logx"
)

// engine is one immutable build of the reminder components for a given
// reminders section. A config reload swaps in a new build.
type engine struct {
	lc      *reminder.Lifecycle
	opt     reminder.BootstrapOptions
	loc     *time.Location
	refresh string
}

func (a *App) buildEngine(cfg *config.Config) (*engine, error) {
	cat, err := config.ReminderCatalog(cfg)
	if err != nil {
		return nil, err
	}
	loc, err := config.Location(cfg)
	if err != nil {
		return nil, err
	}
	mat := reminder.NewMaterializer(a.gw, a.ready, reminder.MaterializerOptions{
		Location:    loc,
		Parallelism: cfg.Reminders.Parallelism,
		Bus:         a.bus,
		Log:         a.log,
	})
	goals := reminder.ProfileGoalSource{
		KV:       a.kv,
		Key:      cfg.Reminders.ProfileKey,
		Fallback: config.DefaultGoal(cfg),
	}
	lc := reminder.NewLifecycle(a.gw, a.ready, mat, cat, goals, reminder.LifecycleOptions{Bus: a.bus, Log: a.log})
	return &engine{lc: lc, opt: config.Bootstrap(cfg), loc: loc, refresh: config.RefreshSpec(cfg)}, nil
}

// Lifecycle is the current reminder facade.
func (a *App) Lifecycle() *reminder.Lifecycle { return a.eng.Load().lc }

// Bootstrap materializes the horizon with the current engine build. Runs
// are serialized across cron, reload and manual triggers.
func (a *App) Bootstrap(ctx context.Context, reason string) (reminder.BootstrapReport, error) {
	a.bootMu.Lock()
	defer a.bootMu.Unlock()

	e := a.eng.Load()
	rep, err := e.lc.Bootstrap(ctx, e.opt)
	if err != nil {
		a.log.Warn("bootstrap failed", logx.String("reason", reason), logx.Err(err))
		return rep, err
	}
	if len(rep.Range.Failed) > 0 {
		ids := make([]string, 0, len(rep.Range.Failed))
		for _, f := range rep.Range.Failed {
			ids = append(ids, f.ID)
		}
		a.log.Warn("some reminders could not be scheduled; next refresh retries", logx.String("reason", reason), logx.Strings("ids", ids))
	}
	return rep, nil
}

func (a *App) refreshNow(ctx context.Context, reason string) {
	_, _ = a.Bootstrap(ctx, reason)
}

// OnAcknowledge forwards to the current lifecycle.
func (a *App) OnAcknowledge(ctx context.Context, f reminder.Family, subKey string, date reminder.Date) error {
	return a.eng.Load().lc.OnAcknowledge(ctx, f, subKey, date)
}

// engineCanceller lets the dispatcher cancel through whichever engine build
// is current when the event arrives.
type engineCanceller struct{ a *App }

func (c engineCanceller) Cancel(ctx context.Context, f reminder.Family, subKey string, date reminder.Date) error {
	return c.a.eng.Load().lc.Materializer().Cancel(ctx, f, subKey, date)
}
