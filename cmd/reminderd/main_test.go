package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPlan_JSON(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "reminders:\n  timezone: UTC\n")
	out, err := execute(t, "--config", cfg, "plan", "--days", "0", "--goal", "LOSE", "--now", "2026-05-01T10:00:00Z", "--json")
	if err != nil {
		t.Fatalf("plan: %v\n%s", err, out)
	}
	var got []struct {
		ID         string `json:"id"`
		RolledOver bool   `json:"rolled_over"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	// 3 pre + 3 post + 6 LOSE water slots.
	if len(got) != 12 {
		t.Fatalf("triggers = %d", len(got))
	}
	rolled := map[string]bool{}
	for _, tr := range got {
		rolled[tr.ID] = tr.RolledOver
	}
	if r, ok := rolled["meal_breakfast_20260501_pre"]; !ok || !r {
		t.Fatalf("breakfast pre should be present and rolled over: %v", rolled)
	}
	if r, ok := rolled["meal_dinner_20260501_pre"]; !ok || r {
		t.Fatalf("dinner pre should be present and on time: %v", rolled)
	}
}

func TestPlan_RejectsBadFlags(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "reminders:\n  timezone: UTC\n")
	if _, err := execute(t, "--config", cfg, "plan", "--goal", "BULK"); err == nil {
		t.Fatalf("expected error for unknown goal")
	}
	if _, err := execute(t, "--config", cfg, "plan", "--now", "yesterday"); err == nil {
		t.Fatalf("expected error for bad --now")
	}
}

func TestHistory_EmptyAndClear(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := writeConfig(t, "storage:\n  driver: file\n  path: "+filepath.Join(dir, "kv")+"\n")

	out, err := execute(t, "--config", cfg, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "no notifications yet") {
		t.Fatalf("output = %q", out)
	}
	out, err = execute(t, "--config", cfg, "history", "clear")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !strings.Contains(out, "history cleared") {
		t.Fatalf("output = %q", out)
	}
}
