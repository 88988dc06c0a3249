package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nutricare/internal/storage"
)

const DefaultProfileKey = "user_profile"

// GoalSource answers which hydration plan applies to the user.
type GoalSource interface {
	UserGoal(ctx context.Context) (Goal, error)
}

// StaticGoal always returns the same goal.
type StaticGoal Goal

func (g StaticGoal) UserGoal(context.Context) (Goal, error) { return Goal(g), nil }

// MapProfileGoal folds the upstream profile enumeration, including its two
// legacy spellings, into a Goal.
func MapProfileGoal(s string) (Goal, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOSE_WEIGHT", "WEIGHT_LOSS":
		return GoalLose, true
	case "GAIN_WEIGHT", "WEIGHT_GAIN":
		return GoalGain, true
	case "MAINTAIN_WEIGHT":
		return GoalMaintain, true
	}
	return "", false
}

type profileDoc struct {
	Goal string `json:"goal"`
}

// ProfileGoalSource reads the cached user profile from the KV store
// (JSON {"goal": "LOSE_WEIGHT"}). A missing profile yields Fallback.
type ProfileGoalSource struct {
	KV       storage.KV
	Key      string
	Fallback Goal
}

func (p ProfileGoalSource) UserGoal(ctx context.Context) (Goal, error) {
	fallback := p.Fallback
	if fallback == "" {
		fallback = GoalMaintain
	}
	if p.KV == nil {
		return fallback, nil
	}
	key := p.Key
	if key == "" {
		key = DefaultProfileKey
	}
	raw, ok, err := p.KV.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read profile: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	var doc profileDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", fmt.Errorf("decode profile: %w", err)
	}
	if strings.TrimSpace(doc.Goal) == "" {
		return fallback, nil
	}
	return ParseGoal(doc.Goal)
}

// SetProfileGoal stores a profile document carrying goal. Used by the CLI and tests.
func SetProfileGoal(ctx context.Context, kv storage.KV, key, profileGoal string) error {
	if key == "" {
		key = DefaultProfileKey
	}
	b, err := json.Marshal(profileDoc{Goal: profileGoal})
	if err != nil {
		return err
	}
	return kv.Set(ctx, key, string(b))
}
