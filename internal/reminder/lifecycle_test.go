package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"nutricare/internal/platform"
	"nutricare/internal/storage"
	logx "nutricare/pkg/logx"
)

func TestOnAcknowledge_CancelsPost(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	gw, _, lc := newTestEngine(now)
	d := Date{2024, time.May, 1}

	if _, err := lc.Schedule(ctx, FamilyMealPost, "lunch", d); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if !gw.has("meal_lunch_20240501_post") {
		t.Fatalf("post not scheduled: %v", gw.liveIDs())
	}
	for _, f := range []Family{FamilyMealPre, FamilyMealPost} {
		if err := lc.OnAcknowledge(ctx, f, "lunch", d); err != nil {
			t.Fatalf("acknowledge via %s: %v", f, err)
		}
		if gw.has("meal_lunch_20240501_post") {
			t.Fatalf("post still live after acknowledge via %s", f)
		}
	}
}

func TestOnAcknowledge_Hydration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	gw, _, lc := newTestEngine(now)
	d := Date{2024, time.May, 1}

	_, _ = lc.Schedule(ctx, FamilyHydration, "2", d)
	if !gw.has("water_2_20240501") {
		t.Fatalf("hydration not scheduled")
	}
	if err := lc.OnAcknowledge(ctx, FamilyHydration, "2", d); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if gw.has("water_2_20240501") {
		t.Fatalf("hydration still live")
	}
	if err := lc.OnAcknowledge(ctx, FamilyMealPre, "brunch", d); !errors.Is(err, ErrUnknownSlot) {
		t.Fatalf("bad meal err = %v", err)
	}
	if err := lc.OnAcknowledge(ctx, Family("snack"), "x", d); !errors.Is(err, ErrUnknownFamily) {
		t.Fatalf("bad family err = %v", err)
	}
}

func TestSchedule_HydrationScenario(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	_, _, lc := newTestEngine(now)
	tr, err := lc.Schedule(context.Background(), FamilyHydration, "2", Date{2024, time.May, 1})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if want := time.Date(2024, time.May, 1, 12, 15, 0, 0, time.UTC); !tr.FireAt.Equal(want) {
		t.Fatalf("fire at = %s, want %s", tr.FireAt, want)
	}
	if tr.Notification.Data[DataML] != "250" {
		t.Fatalf("ml = %q", tr.Notification.Data[DataML])
	}
}

type failingGoal struct{}

func (failingGoal) UserGoal(context.Context) (Goal, error) { return "", errors.New("profile service down") }

func TestBootstrap_GoalFallbackAndFamilies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, time.May, 1, 0, 30, 0, 0, time.UTC)
	gw := newFakeGateway()
	ready := NewReadiness(gw, platform.Channel{}, nil, logx.Nop())
	mat := NewMaterializer(gw, ready, MaterializerOptions{Location: time.UTC, Now: fixedClock(now)})
	lc := NewLifecycle(gw, ready, mat, nil, failingGoal{}, LifecycleOptions{})

	opt := DefaultBootstrapOptions()
	opt.DaysAhead = 0
	opt.MealPost = false
	rep, err := lc.Bootstrap(ctx, opt)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if rep.Goal != GoalMaintain {
		t.Fatalf("goal = %s", rep.Goal)
	}
	maintain := len(DefaultHydrationPlans()[GoalMaintain].Slots)
	if want := 3 + maintain; len(rep.Range.Scheduled) != want {
		t.Fatalf("scheduled = %d, want %d", len(rep.Range.Scheduled), want)
	}
	for _, id := range gw.liveIDs() {
		if f, _, _, _ := ParseID(id); f == FamilyMealPost {
			t.Fatalf("disabled family scheduled: %s", id)
		}
	}
}

func TestBootstrap_ReconcilePrunesStale(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, time.May, 1, 0, 30, 0, 0, time.UTC)
	kv := storage.NewMemory()
	_ = SetProfileGoal(ctx, kv, "", "WEIGHT_LOSS")

	gw := newFakeGateway()
	ready := NewReadiness(gw, platform.Channel{}, nil, logx.Nop())
	mat := NewMaterializer(gw, ready, MaterializerOptions{Location: time.UTC, Now: fixedClock(now)})
	lc := NewLifecycle(gw, ready, mat, nil, ProfileGoalSource{KV: kv}, LifecycleOptions{})

	opt := DefaultBootstrapOptions()
	opt.DaysAhead = 1
	first, _ := lc.Bootstrap(ctx, opt)
	if first.Goal != GoalLose {
		t.Fatalf("goal = %s", first.Goal)
	}
	// Foreign triggers are never touched.
	gw.live["someone-else"] = platform.Pending{}

	// Switch goal and shrink the horizon: LOSE water slots 5 and the second
	// day must go.
	_ = SetProfileGoal(ctx, kv, "", "GAIN_WEIGHT")
	opt.DaysAhead = 0
	second, err := lc.Bootstrap(ctx, opt)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if second.Goal != GoalGain || len(second.Pruned) == 0 {
		t.Fatalf("goal=%s pruned=%v", second.Goal, second.Pruned)
	}
	live := gw.liveIDs()
	want := len(second.Range.Scheduled) + 1
	if len(live) != want {
		t.Fatalf("live = %d (%v), want %d", len(live), live, want)
	}
	if gw.has("water_5_20240501") || gw.has("meal_lunch_20240502_pre") {
		t.Fatalf("stale triggers survived: %v", live)
	}
	if !gw.has("someone-else") {
		t.Fatalf("foreign trigger pruned")
	}
}

func TestEnsureReady_DeniedPromptsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := newFakeGateway()
	gw.auth = platform.AuthDenied
	prompts := 0
	ready := NewReadiness(gw, platform.Channel{}, PrompterFunc(func(ctx context.Context, s platform.AuthStatus) error {
		prompts++
		return nil
	}), logx.Nop())

	for i := 0; i < 3; i++ {
		s, err := ready.EnsureReady(ctx)
		if err != nil || s != platform.AuthDenied {
			t.Fatalf("EnsureReady = %v, %v", s, err)
		}
	}
	if prompts != 1 || gw.settings != 1 || gw.channels != 1 {
		t.Fatalf("prompts=%d settings=%d channels=%d", prompts, gw.settings, gw.channels)
	}
	if ready.ChannelID() != DefaultChannelID {
		t.Fatalf("channel = %s", ready.ChannelID())
	}
}

func TestEnsureReady_RequestsWhenUndetermined(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.auth = platform.AuthNotDetermined
	ready := NewReadiness(gw, platform.Channel{}, nil, logx.Nop())
	s, err := ready.EnsureReady(context.Background())
	if err != nil || s != platform.AuthAuthorized {
		t.Fatalf("EnsureReady = %v, %v", s, err)
	}
	if gw.settings != 0 {
		t.Fatalf("settings opened although granted")
	}
}
