package reminder

import (
	"testing"
	"time"
)

func mustSlot(t *testing.T, f Family, subKey string, g Goal) Slot {
	t.Helper()
	s, err := DefaultCatalog().Slot(f, subKey, g)
	if err != nil {
		t.Fatalf("slot %s/%s: %v", f, subKey, err)
	}
	return s
}

func TestFireTime_Table(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	d := Date{2024, time.May, 1}
	at := func(day, h, m int) time.Time { return time.Date(2024, time.May, day, h, m, 0, 0, loc) }

	cases := []struct {
		name string
		slot Slot
		now  time.Time
		want time.Time
	}{
		{"breakfast pre rolls over", mustSlot(t, FamilyMealPre, "breakfast", GoalMaintain), at(1, 8, 5), at(2, 5, 30)},
		{"breakfast pre same day", mustSlot(t, FamilyMealPre, "breakfast", GoalMaintain), at(1, 5, 0), at(1, 5, 30)},
		{"lunch post adds lag", mustSlot(t, FamilyMealPost, "lunch", GoalMaintain), at(1, 9, 0), at(1, 13, 30)},
		{"dinner post rolls over", mustSlot(t, FamilyMealPost, "dinner", GoalMaintain), at(1, 21, 0), at(2, 20, 30)},
		{"hydration 12:15 lose", mustSlot(t, FamilyHydration, "2", GoalLose), at(1, 10, 0), at(1, 12, 15)},
		{"equal to now rolls over", mustSlot(t, FamilyHydration, "2", GoalLose), at(1, 12, 15), at(2, 12, 15)},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := FireTime(tc.slot, d, tc.now, loc)
			if !got.Equal(tc.want) {
				t.Fatalf("FireTime = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestFireTime_MultiDayRollover(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	slot := mustSlot(t, FamilyMealPre, "lunch", GoalMaintain) // 10:30
	now := time.Date(2024, time.March, 10, 11, 0, 0, 0, loc)

	for _, d := range []Date{{2024, time.March, 9}, {2024, time.February, 1}, {2021, time.June, 30}} {
		got := FireTime(slot, d, now, loc)
		want := time.Date(2024, time.March, 11, 10, 30, 0, 0, loc)
		if !got.Equal(want) {
			t.Fatalf("date %s: FireTime = %s, want %s", d, got, want)
		}
	}
}

func TestFireTime_MonthBoundary(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	slot := mustSlot(t, FamilyMealPost, "dinner", GoalMaintain)
	now := time.Date(2024, time.February, 29, 22, 0, 0, 0, loc)
	got := FireTime(slot, Date{2024, time.February, 29}, now, loc)
	want := time.Date(2024, time.March, 1, 20, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("FireTime = %s, want %s", got, want)
	}
}

func TestBuildTrigger_IDFromTargetDate(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	slot := mustSlot(t, FamilyMealPre, "breakfast", GoalMaintain)
	now := time.Date(2024, time.May, 1, 8, 5, 0, 0, loc)
	tr := BuildTrigger(slot, Date{2024, time.May, 1}, now, loc, "ch")

	if tr.ID != "meal_breakfast_20240501_pre" {
		t.Fatalf("id = %s", tr.ID)
	}
	if !tr.RolledOver {
		t.Fatalf("expected RolledOver")
	}
	if tr.Notification.Data[DataDate] != "20240501" || tr.Notification.Data[DataMeal] != "breakfast" || tr.Notification.Data[DataFamily] != "meal-pre" {
		t.Fatalf("data = %v", tr.Notification.Data)
	}
	if len(tr.Notification.Actions) != 1 || tr.Notification.Actions[0].ID != ActionDone {
		t.Fatalf("actions = %v", tr.Notification.Actions)
	}
	// The slot's own data map must not be mutated.
	if _, ok := slot.Data[DataDate]; ok {
		t.Fatalf("slot data mutated")
	}
}

func TestPlan_OrderedAndSized(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	slots, _ := DefaultCatalog().Slots(FamilyHydration, GoalLose)
	now := time.Date(2024, time.May, 1, 6, 0, 0, 0, loc)
	got := Plan(slots, DateOf(now), 1, now, loc)
	if len(got) != 2*len(slots) {
		t.Fatalf("len = %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].FireAt.Before(got[i-1].FireAt) {
			t.Fatalf("not ordered at %d", i)
		}
	}
}

func TestDate(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2024-12-31")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := d.AddDays(1).Compact(); got != "20250101" {
		t.Fatalf("AddDays = %s", got)
	}
	if _, err := ParseDate("20241301"); err == nil {
		t.Fatalf("expected invalid month error")
	}
	if !d.Before(d.AddDays(1)) || d.AddDays(1).Before(d) {
		t.Fatalf("Before wrong")
	}
	var back Date
	b, _ := d.MarshalText()
	if err := back.UnmarshalText(b); err != nil || back != d {
		t.Fatalf("text round trip = %v, %v", back, err)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "7", "24:00", "12:60", "aa:bb", "1:2:3"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	got, err := ParseTimeOfDay(" 07:05 ")
	if err != nil || got.String() != "07:05" {
		t.Fatalf("got %v, %v", got, err)
	}
}
