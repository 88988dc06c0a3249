package reminder

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownFamily = errors.New("reminder: unknown family")
	ErrUnknownSlot   = errors.New("reminder: unknown slot")
	ErrUnknownGoal   = errors.New("reminder: unknown goal")
	ErrInvalidID     = errors.New("reminder: invalid identifier")
	ErrInvalidDate   = errors.New("reminder: invalid date")
)

type Family string

const (
	FamilyMealPre   Family = "meal-pre"
	FamilyMealPost  Family = "meal-post"
	FamilyHydration Family = "hydration"
)

// Families lists every family in scheduling order.
var Families = []Family{FamilyMealPre, FamilyMealPost, FamilyHydration}

func ParseFamily(s string) (Family, error) {
	switch f := Family(strings.ToLower(strings.TrimSpace(s))); f {
	case FamilyMealPre, FamilyMealPost, FamilyHydration:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFamily, s)
}

func (f Family) IsMeal() bool { return f == FamilyMealPre || f == FamilyMealPost }

type Meal string

const (
	Breakfast Meal = "breakfast"
	Lunch     Meal = "lunch"
	Dinner    Meal = "dinner"
)

func ParseMeal(s string) (Meal, bool) {
	switch m := Meal(strings.ToLower(strings.TrimSpace(s))); m {
	case Breakfast, Lunch, Dinner:
		return m, true
	}
	return "", false
}

type Goal string

const (
	GoalLose     Goal = "LOSE"
	GoalGain     Goal = "GAIN"
	GoalMaintain Goal = "MAINTAIN"
)

func ParseGoal(s string) (Goal, error) {
	switch g := Goal(strings.ToUpper(strings.TrimSpace(s))); g {
	case GoalLose, GoalGain, GoalMaintain:
		return g, nil
	}
	if g, ok := MapProfileGoal(s); ok {
		return g, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGoal, s)
}

// Date is a calendar day with no zone attached. Identifiers are derived from
// the target Date, never from the fire timestamp.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate accepts YYYYMMDD and YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	layout := "20060102"
	if strings.Contains(s, "-") {
		layout = "2006-01-02"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool { return d == Date{} }

// At returns the wall-clock time on d in loc.
func (d Date) At(hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// AddDays normalizes through time.Date, so month and year boundaries work.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// Compact renders YYYYMMDD.
func (d Date) Compact() string { return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day) }

// String renders YYYY-MM-DD.
func (d Date) String() string { return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day) }

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
