package reminder

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	meals := c.Meals()
	if len(meals) != 3 || meals[0].StartHour != 6 || meals[0].EndHour != 8 || meals[2].Key != Dinner {
		t.Fatalf("meals = %+v", meals)
	}
	lose := c.Plan(GoalLose)
	found := false
	for _, s := range lose.Slots {
		if s.TimeOfDay == "12:15" && s.Milliliters == 250 {
			found = true
		}
	}
	if !found {
		t.Fatalf("LOSE plan lacks the 12:15/250ml slot")
	}
	if c.Plan(Goal("unknown")).Principle != c.Plan(GoalMaintain).Principle {
		t.Fatalf("unknown goal should fall back to MAINTAIN")
	}
}

func TestCatalog_SlotLookup(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	pre, err := c.Slot(FamilyMealPre, "Dinner", GoalLose)
	if err != nil {
		t.Fatalf("slot: %v", err)
	}
	if pre.Base.Hour != 18 || pre.Offset != -30*time.Minute || pre.SubKey != "dinner" {
		t.Fatalf("pre = %+v", pre)
	}
	post, _ := c.Slot(FamilyMealPost, "dinner", GoalLose)
	if post.Base.Hour != 20 || post.Offset != 30*time.Minute {
		t.Fatalf("post = %+v", post)
	}

	for _, tc := range []struct {
		f   Family
		sub string
	}{
		{FamilyMealPre, "brunch"},
		{FamilyHydration, "99"},
		{FamilyHydration, "-1"},
		{FamilyHydration, "abc"},
	} {
		if _, err := c.Slot(tc.f, tc.sub, GoalLose); !errors.Is(err, ErrUnknownSlot) {
			t.Fatalf("Slot(%s,%s) err = %v", tc.f, tc.sub, err)
		}
	}
	if _, err := c.Slots(Family("snack"), GoalLose); !errors.Is(err, ErrUnknownFamily) {
		t.Fatalf("Slots unknown family err = %v", err)
	}
}

func TestNewCatalog_Validation(t *testing.T) {
	t.Parallel()

	bad := []CatalogOptions{
		{Meals: []MealDefinition{{Key: "brunch", StartHour: 10, EndHour: 11}}},
		{Meals: []MealDefinition{{Key: Lunch, StartHour: 13, EndHour: 11}}},
		{Meals: []MealDefinition{{Key: Lunch, StartHour: 11, EndHour: 13}, {Key: Lunch, StartHour: 11, EndHour: 13}}},
		{Plans: map[Goal]HydrationPlan{GoalLose: {Slots: []HydrationSlot{{TimeOfDay: "25:00", Milliliters: 100}}}}},
		{Plans: map[Goal]HydrationPlan{GoalLose: {Slots: []HydrationSlot{{TimeOfDay: "10:00", Milliliters: 0}}}}},
		{Plans: map[Goal]HydrationPlan{"BULK": {}}},
	}
	for i, opt := range bad {
		if _, err := NewCatalog(opt); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}

	c, err := NewCatalog(CatalogOptions{Lead: 45 * time.Minute, Meals: []MealDefinition{{Key: Lunch, StartHour: 12, EndHour: 14}}})
	if err != nil {
		t.Fatalf("custom catalog: %v", err)
	}
	s, _ := c.Slot(FamilyMealPre, "lunch", GoalMaintain)
	if s.Offset != -45*time.Minute || s.Title == "" {
		t.Fatalf("custom slot = %+v", s)
	}
	if _, err := c.Slot(FamilyMealPre, "breakfast", GoalMaintain); !errors.Is(err, ErrUnknownSlot) {
		t.Fatalf("breakfast should be absent: %v", err)
	}
}
