package history

import (
	"testing"
	"time"
)

func TestGroupByDay_TodayThenYesterday(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("ICT", 7*3600)
	now := time.Date(2024, 5, 2, 14, 0, 0, 0, loc)
	items := []Item{
		{ID: "y", At: FormatAt(time.Date(2024, 5, 1, 20, 0, 0, 0, loc))},
		{ID: "t", At: FormatAt(time.Date(2024, 5, 2, 9, 0, 0, 0, loc))},
	}

	got := GroupByDay(items, now)
	if len(got) != 2 {
		t.Fatalf("sections = %+v", got)
	}
	if got[0].Label != LabelToday || got[0].Items[0].ID != "t" {
		t.Fatalf("first section = %+v", got[0])
	}
	if got[1].Label != LabelYesterday || got[1].Items[0].ID != "y" {
		t.Fatalf("second section = %+v", got[1])
	}
}

func TestGroupByDay_OlderDatesAndOrdering(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, loc)
	items := []Item{
		{ID: "old-am", At: FormatAt(time.Date(2024, 5, 3, 7, 0, 0, 0, loc))},
		{ID: "old-pm", At: FormatAt(time.Date(2024, 5, 3, 19, 0, 0, 0, loc))},
		{ID: "today", At: FormatAt(time.Date(2024, 5, 10, 7, 30, 0, 0, loc))},
		{ID: "broken", At: "yesterday-ish"},
	}

	got := GroupByDay(items, now)
	if len(got) != 3 {
		t.Fatalf("sections = %+v", got)
	}
	if got[1].Label != "03/05/2024" {
		t.Fatalf("label = %q", got[1].Label)
	}
	if got[1].Items[0].ID != "old-pm" || got[1].Items[1].ID != "old-am" {
		t.Fatalf("items not newest first: %+v", got[1].Items)
	}
	if got[2].Label != LabelUnknown || got[2].Items[0].ID != "broken" {
		t.Fatalf("unknown section = %+v", got[2])
	}
}

func TestGroupByDay_UsesNowLocation(t *testing.T) {
	t.Parallel()

	// 23:30 UTC on May 1 is already May 2 in UTC+7.
	loc := time.FixedZone("ICT", 7*3600)
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, loc)
	items := []Item{{ID: "a", At: FormatAt(time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC))}}
	if got := GroupByDay(items, now); got[0].Label != LabelToday {
		t.Fatalf("label = %q", got[0].Label)
	}
}

func TestFormatClock(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("X", 2*3600)
	it := Item{At: FormatAt(time.Date(2024, 5, 2, 7, 5, 0, 0, time.UTC))}
	if got := FormatClock(it, loc); got != "09:05" {
		t.Fatalf("FormatClock = %q", got)
	}
	if got := FormatClock(Item{At: "nope"}, loc); got != "" {
		t.Fatalf("malformed = %q", got)
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	if ParseKind("meal-pre") != KindMealPre || ParseKind(" MEAL-POST ") != KindMealPost || ParseKind("hydration") != KindOther {
		t.Fatalf("ParseKind mapping wrong")
	}
}
