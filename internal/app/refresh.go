package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "nutricare/pkg/logx"
)

// refresher re-runs bootstrap on a cron schedule so the rolling horizon
// keeps moving forward day after day.
type refresher struct {
	log    logx.Logger
	parser cron.Parser
	run    func(ctx context.Context, reason string)

	mu   sync.Mutex
	c    *cron.Cron
	spec string
	loc  *time.Location
}

func newRefresher(run func(ctx context.Context, reason string), log logx.Logger) *refresher {
	return &refresher{
		log:    log.With(logx.String("comp", "refresh")),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		run:    run,
	}
}

// cronLogger routes cron's internal logging through logx.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Warn("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}

// Start (re)starts the cron with spec in loc. Calling it again with the same
// spec and location is a no-op.
func (r *refresher) Start(ctx context.Context, spec string, loc *time.Location) error {
	spec = strings.TrimSpace(spec)
	if loc == nil {
		loc = time.Local
	}
	if _, err := r.parser.Parse(spec); err != nil {
		return fmt.Errorf("refresh spec %q: %w", spec, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.c != nil && r.spec == spec && r.loc.String() == loc.String() {
		return nil
	}
	if r.c != nil {
		<-r.c.Stop().Done()
	}

	cl := cronLogger{log: r.log}
	c := cron.New(
		cron.WithParser(r.parser),
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(spec, func() { r.run(ctx, "cron") }); err != nil {
		return err
	}
	c.Start()
	r.c, r.spec, r.loc = c, spec, loc

	var next time.Time
	if es := c.Entries(); len(es) > 0 {
		next = es[0].Next
	}
	r.log.Info("refresh scheduled", logx.String("spec", spec), logx.String("tz", loc.String()), logx.Time("next", next))
	return nil
}

// Next is the next scheduled refresh, zero when stopped.
func (r *refresher) Next() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.c == nil {
		return time.Time{}
	}
	if es := r.c.Entries(); len(es) > 0 {
		return es[0].Next
	}
	return time.Time{}
}

// Stop waits for a running refresh to finish or ctx to end.
func (r *refresher) Stop(ctx context.Context) {
	r.mu.Lock()
	c := r.c
	r.c = nil
	r.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}
