package reminder

import (
	"errors"
	"testing"
	"time"
)

func TestDeriveID_Deterministic(t *testing.T) {
	t.Parallel()

	d := Date{2024, time.May, 1}
	cases := []struct {
		f    Family
		sub  string
		want string
	}{
		{FamilyMealPre, "lunch", "meal_lunch_20240501_pre"},
		{FamilyMealPost, "lunch", "meal_lunch_20240501_post"},
		{FamilyHydration, "3", "water_3_20240501"},
	}
	for _, tc := range cases {
		a := DeriveID(tc.f, tc.sub, d)
		b := DeriveID(tc.f, tc.sub, d)
		if a != b || a != tc.want {
			t.Fatalf("DeriveID(%s,%s) = %q/%q, want %q", tc.f, tc.sub, a, b, tc.want)
		}
	}
	if DeriveID(FamilyMealPre, "lunch", d) == DeriveID(FamilyMealPre, "lunch", d.AddDays(1)) {
		t.Fatalf("different dates must differ")
	}
	if DeriveID(FamilyMealPre, "lunch", d) == DeriveID(FamilyMealPre, "dinner", d) {
		t.Fatalf("different sub-keys must differ")
	}
	if DeriveID(FamilyMealPre, "lunch", d) == DeriveID(FamilyMealPost, "lunch", d) {
		t.Fatalf("pre and post must differ")
	}
}

func TestParseID_RoundTrip(t *testing.T) {
	t.Parallel()

	d := Date{2023, time.December, 31}
	for _, tc := range []struct {
		f   Family
		sub string
	}{
		{FamilyMealPre, "breakfast"},
		{FamilyMealPost, "dinner"},
		{FamilyHydration, "0"},
		{FamilyHydration, "12"},
	} {
		f, sub, got, err := ParseID(DeriveID(tc.f, tc.sub, d))
		if err != nil || f != tc.f || sub != tc.sub || got != d {
			t.Fatalf("ParseID(%s/%s) = %s %s %v %v", tc.f, tc.sub, f, sub, got, err)
		}
	}
}

func TestParseID_Invalid(t *testing.T) {
	t.Parallel()

	for _, id := range []string{
		"",
		"meal_brunch_20240501_pre",
		"meal_lunch_20240501_mid",
		"meal_lunch_2024051_pre",
		"water_x_20240501",
		"water_01_20240501",
		"water_-1_20240501",
		"water_1_20241341",
		"speedtest_1",
	} {
		if _, _, _, err := ParseID(id); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("ParseID(%q) err = %v", id, err)
		}
		if IsEngineID(id) {
			t.Fatalf("IsEngineID(%q) = true", id)
		}
	}
}

func TestDeriveID_ASCII(t *testing.T) {
	t.Parallel()

	id := DeriveID(Family("custom"), "Tea Time ☕", Date{2024, time.January, 2})
	for _, r := range id {
		if r > 127 || r == ' ' {
			t.Fatalf("non-ascii id %q", id)
		}
	}
}
