package reminder

import (
	"context"
	"sort"
	"sync"
	"time"

	"nutricare/internal/history"
	"nutricare/internal/platform"
	logx "nutricare/pkg/logx"
)

// fakeGateway records trigger operations without timers.
type fakeGateway struct {
	mu sync.Mutex

	live map[string]platform.Pending
	ops  []string

	failCreate map[string]error
	failCancel map[string]error

	auth        platform.AuthStatus
	requestAuth platform.AuthStatus
	channels    int
	settings    int

	// pairOpen counts cancels not yet followed by a create for the same id.
	pairOpen map[string]int
	overlap  bool

	fg []platform.Handler
	bg platform.Handler
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		live:        map[string]platform.Pending{},
		failCreate:  map[string]error{},
		failCancel:  map[string]error{},
		auth:        platform.AuthAuthorized,
		requestAuth: platform.AuthAuthorized,
		pairOpen:    map[string]int{},
	}
}

func (g *fakeGateway) CreateChannel(ctx context.Context, ch platform.Channel) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels++
	return ch.ID, nil
}

func (g *fakeGateway) AuthorizationStatus(ctx context.Context) (platform.AuthStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.auth, nil
}

func (g *fakeGateway) RequestAuthorization(ctx context.Context) (platform.AuthStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.auth = g.requestAuth
	return g.auth, nil
}

func (g *fakeGateway) CreateTrigger(ctx context.Context, n platform.Notification, trig platform.TimestampTrigger) (string, error) {
	// Give concurrent callers a chance to interleave.
	time.Sleep(time.Millisecond)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ops = append(g.ops, "create:"+n.ID)
	if g.pairOpen[n.ID] > 0 {
		g.pairOpen[n.ID]--
	}
	if err := g.failCreate[n.ID]; err != nil {
		return "", err
	}
	g.live[n.ID] = platform.Pending{Notification: n.Clone(), FireAt: trig.FireAt}
	return n.ID, nil
}

func (g *fakeGateway) Cancel(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ops = append(g.ops, "cancel:"+id)
	if err := g.failCancel[id]; err != nil {
		return err
	}
	if g.pairOpen[id] > 0 {
		g.overlap = true
	}
	g.pairOpen[id]++
	delete(g.live, id)
	return nil
}

func (g *fakeGateway) TriggerIDs(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.live))
	for id := range g.live {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (g *fakeGateway) Pending(ctx context.Context) ([]platform.Pending, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]platform.Pending, 0, len(g.live))
	for _, p := range g.live {
		out = append(out, p)
	}
	return out, nil
}

func (g *fakeGateway) OnForegroundEvent(h platform.Handler) func() {
	g.mu.Lock()
	g.fg = append(g.fg, h)
	g.mu.Unlock()
	return func() {}
}

func (g *fakeGateway) OnBackgroundEvent(h platform.Handler) {
	g.mu.Lock()
	g.bg = h
	g.mu.Unlock()
}

func (g *fakeGateway) OpenSettings(ctx context.Context) error {
	g.mu.Lock()
	g.settings++
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) Close() error { return nil }

func (g *fakeGateway) liveIDs() []string {
	ids, _ := g.TriggerIDs(context.Background())
	return ids
}

func (g *fakeGateway) has(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.live[id]
	return ok
}

func (g *fakeGateway) fireAt(id string) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live[id].FireAt
}

// fixedClock returns a now func pinned to t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func newTestEngine(now time.Time) (*fakeGateway, *Materializer, *Lifecycle) {
	gw := newFakeGateway()
	ready := NewReadiness(gw, platform.Channel{}, nil, logx.Nop())
	mat := NewMaterializer(gw, ready, MaterializerOptions{Location: time.UTC, Now: fixedClock(now)})
	lc := NewLifecycle(gw, ready, mat, DefaultCatalog(), StaticGoal(GoalLose), LifecycleOptions{})
	return gw, mat, lc
}

type memHistory struct {
	mu    sync.Mutex
	items []history.Item
}

func (m *memHistory) Append(ctx context.Context, it history.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, it)
	return nil
}

type cancelCall struct {
	f      Family
	subKey string
	date   Date
}

type recordingCanceller struct {
	calls []cancelCall
}

func (r *recordingCanceller) Cancel(ctx context.Context, f Family, subKey string, date Date) error {
	r.calls = append(r.calls, cancelCall{f, subKey, date})
	return nil
}
