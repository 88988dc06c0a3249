package reminder

import (
	"context"
	"errors"
	"testing"

	"nutricare/internal/storage"
)

func TestMapProfileGoal(t *testing.T) {
	t.Parallel()

	cases := map[string]Goal{
		"LOSE_WEIGHT":     GoalLose,
		"WEIGHT_LOSS":     GoalLose,
		"gain_weight":     GoalGain,
		"WEIGHT_GAIN":     GoalGain,
		"MAINTAIN_WEIGHT": GoalMaintain,
	}
	for in, want := range cases {
		got, ok := MapProfileGoal(in)
		if !ok || got != want {
			t.Fatalf("MapProfileGoal(%q) = %s, %v", in, got, ok)
		}
	}
	if _, ok := MapProfileGoal("BULK"); ok {
		t.Fatalf("unexpected mapping")
	}
	if g, err := ParseGoal("maintain"); err != nil || g != GoalMaintain {
		t.Fatalf("ParseGoal = %s, %v", g, err)
	}
	if _, err := ParseGoal("BULK"); !errors.Is(err, ErrUnknownGoal) {
		t.Fatalf("ParseGoal err = %v", err)
	}
}

func TestProfileGoalSource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := storage.NewMemory()
	src := ProfileGoalSource{KV: kv, Fallback: GoalGain}

	if g, err := src.UserGoal(ctx); err != nil || g != GoalGain {
		t.Fatalf("missing profile = %s, %v", g, err)
	}
	_ = SetProfileGoal(ctx, kv, "", "LOSE_WEIGHT")
	if g, err := src.UserGoal(ctx); err != nil || g != GoalLose {
		t.Fatalf("profile = %s, %v", g, err)
	}
	_ = kv.Set(ctx, DefaultProfileKey, "{broken")
	if _, err := src.UserGoal(ctx); err == nil {
		t.Fatalf("expected decode error")
	}
	_ = SetProfileGoal(ctx, kv, "", "SOMETHING_ELSE")
	if _, err := src.UserGoal(ctx); !errors.Is(err, ErrUnknownGoal) {
		t.Fatalf("unknown goal err = %v", err)
	}
	if g, _ := (ProfileGoalSource{}).UserGoal(ctx); g != GoalMaintain {
		t.Fatalf("nil kv = %s", g)
	}
}
