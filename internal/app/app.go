package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nutricare/internal/config"
	"nutricare/internal/eventbus"
	"nutricare/internal/history"
	"nutricare/internal/metrics"
	"nutricare/internal/observability/debughttp"
	"nutricare/internal/platform"
	"nutricare/internal/platform/local"
	"nutricare/internal/reminder"
	rtsup "nutricare/internal/runtime/supervisor"
	"nutricare/internal/storage"
	logx "nutricare/pkg/logx"
)

// App wires the reminder engine to its gateway, storage and operator
// surfaces, and keeps it in step with the config file.
type App struct {
	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	kv   storage.KV
	hist *history.Store

	gw    platform.Gateway
	local *local.Gateway
	ready *reminder.Readiness
	disp  *reminder.Dispatcher

	eng    atomic.Pointer[engine]
	bootMu sync.Mutex

	metrics *metrics.Metrics
	refresh *refresher
	debug   *debughttp.Service

	unregister func()
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(config.LogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	a := &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     eventbus.New(),
		metrics: metrics.New(),
	}

	kv, err := OpenStorage(cfg, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	a.kv = kv
	a.hist = NewHistory(cfg, kv, log)

	gw, lg, err := newGateway(cfg, log)
	if err != nil {
		_ = kv.Close()
		_ = logSvc.Close()
		return nil, err
	}
	a.gw, a.local = gw, lg
	a.ready = reminder.NewReadiness(gw, platform.Channel{ID: strings.TrimSpace(cfg.Gateway.Channel)}, nil, log.With(logx.String("comp", "readiness")))

	e, err := a.buildEngine(cfg)
	if err != nil {
		_ = gw.Close()
		_ = kv.Close()
		_ = logSvc.Close()
		return nil, err
	}
	a.eng.Store(e)

	a.disp = reminder.NewDispatcher(a.hist, engineCanceller{a: a}, reminder.DispatcherOptions{Bus: a.bus, Log: log})
	a.refresh = newRefresher(a.refreshNow, log)
	a.metrics.RegisterPending(func() int {
		ids, err := gw.TriggerIDs(context.Background())
		if err != nil {
			return 0
		}
		return len(ids)
	})

	dc, err := mapDebugConfig(cfg)
	if err != nil {
		_ = gw.Close()
		_ = kv.Close()
		_ = logSvc.Close()
		return nil, err
	}
	deps := debughttp.Deps{
		Metrics:  a.metrics.Handler(),
		History:  a.hist,
		Ack:      a,
		Triggers: gw,
		Health:   a.health,
		Location: e.loc,
	}
	if lg != nil {
		deps.Presser = lg
	}
	a.debug = debughttp.New(dc, deps, log)

	log.Info("app configured",
		logx.String("config", cfgPath),
		logx.String("gateway", gatewayName(cfg)),
		logx.String("tz", e.loc.String()),
		logx.Int("days_ahead", e.opt.DaysAhead),
	)
	return a, nil
}

func gatewayName(cfg *config.Config) string {
	if d := strings.TrimSpace(cfg.Gateway.Driver); d != "" {
		return d
	}
	return "local"
}

// History is the injected history store.
func (a *App) History() *history.Store { return a.hist }

// Gateway is the active platform driver.
func (a *App) Gateway() platform.Gateway { return a.gw }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) health() any {
	out := map[string]any{
		"goal":         a.Lifecycle().LastGoal(),
		"refresh_next": a.refresh.Next(),
		"history":      len(a.hist.ReadAll(context.Background())),
	}
	if a.sup != nil {
		out["app"] = a.sup.Snapshot()
	}
	if ds := a.debug.Supervisor(); ds != nil {
		out["debug"] = ds.Snapshot()
	}
	return out
}

// Start runs the gateway, registers the event dispatcher, bootstraps the
// horizon once and then keeps it fresh (cron, config reload).
func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	runCtx := a.sup.Context()

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		if _, err := mapDebugConfig(cfg); err != nil {
			return err
		}
		if _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		if strings.EqualFold(strings.TrimSpace(cfg.Gateway.Driver), "telegram") {
			if _, err := mapTelegramConfig(cfg.Gateway.Telegram); err != nil {
				return err
			}
		}
		return nil
	})

	if st, ok := a.gw.(platform.Starter); ok {
		a.sup.Go("gateway", st.Start)
	}
	a.unregister = a.disp.Register(a.gw)

	a.sup.Go0("metrics", func(c context.Context) { a.metrics.Run(c, a.bus) })
	a.sup.Go0("eventbus.log", a.logEvents)

	// First bootstrap before reporting ready; failures are logged, the
	// next refresh repairs them.
	_, _ = a.Bootstrap(runCtx, "startup")

	e := a.eng.Load()
	if err := a.refresh.Start(runCtx, e.refresh, e.loc); err != nil {
		return err
	}
	if a.debug.Enabled() {
		a.debug.Start(runCtx)
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	a.log.Info("app started")
	return nil
}

func (a *App) logEvents(c context.Context) {
	events, unsub := a.bus.Subscribe(128)
	defer unsub()
	for {
		select {
		case <-c.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			// Keep this debug-level; a bootstrap emits one event per trigger.
			a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
		}
	}
}

func (a *App) reloadLoop(c context.Context, sub chan *config.Config) {
	// Track last applied config to generate a safe diff summary.
	lastApplied := a.cfgm.Get()
	for {
		var newCfg *config.Config
		select {
		case <-c.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			newCfg = cfg
		}
		// Coalesce bursts: keep only the latest config in the channel.
	drain:
		for {
			select {
			case newer := <-sub:
				if newer != nil {
					newCfg = newer
				}
			default:
				break drain
			}
		}

		sections, attrs := config.SummarizeConfigChange(lastApplied, newCfg)
		lastApplied = newCfg
		if len(sections) == 0 {
			a.log.Info("config reloaded (no changes)")
			continue
		}
		a.applyConfig(c, newCfg, sections)

		fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
		a.log.Info("config reloaded", fields...)
	}
}

func (a *App) applyConfig(c context.Context, cfg *config.Config, sections []string) {
	for _, s := range sections {
		switch s {
		case config.SectionLogging:
			a.logs.Apply(config.LogConfig(cfg))
		case config.SectionReminders:
			e, err := a.buildEngine(cfg)
			if err != nil {
				a.log.Warn("invalid reminders config; keeping previous", logx.Err(err))
				continue
			}
			a.bootMu.Lock()
			a.eng.Store(e)
			a.bootMu.Unlock()
			if err := a.refresh.Start(c, e.refresh, e.loc); err != nil {
				a.log.Warn("refresh schedule rejected; keeping previous", logx.Err(err))
			}
			a.refreshNow(c, "config")
		case config.SectionDebug:
			dc, err := mapDebugConfig(cfg)
			if err != nil {
				a.log.Warn("invalid debug config; keeping previous", logx.Err(err))
				continue
			}
			a.debug.Reconfigure(c, dc)
		default:
			if config.RestartRequired(s) {
				a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
			}
		}
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// First, cancel the app run context so background loops start unwinding immediately.
	a.sup.Cancel()

	// Helper: run a shutdown step with an upper bound so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok && time.Until(dl) < max {
				max = time.Until(dl)
			}
			if max <= 0 {
				a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
				return
			}
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			// Contract: fn MUST honor stepCtx and return promptly. If it doesn't, log a leak signal.
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("refresh", 2*time.Second, func(c context.Context) error { a.refresh.Stop(c); return nil })
	step("debug", time.Second, func(c context.Context) error { a.debug.Stop(c); return nil })
	step("dispatcher", 0, func(context.Context) error {
		if a.unregister != nil {
			a.unregister()
		}
		return nil
	})
	step("gateway", 2*time.Second, func(context.Context) error { return a.gw.Close() })

	// Wait for supervised goroutines (gateway loops, config watch/reload, metrics).
	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", time.Second, func(context.Context) error { return a.kv.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
