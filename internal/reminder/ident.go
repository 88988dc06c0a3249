package reminder

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	mealPrefix  = "meal_"
	waterPrefix = "water_"
)

// DeriveID is the stable trigger id for one logical reminder:
//
//	meal_<meal>_<YYYYMMDD>_pre | meal_<meal>_<YYYYMMDD>_post
//	water_<slotIndex>_<YYYYMMDD>
//
// Unknown families get a generic "<family>_<subKey>_<date>" form so the
// function stays total.
func DeriveID(f Family, subKey string, date Date) string {
	subKey = sanitizeKey(subKey)
	switch f {
	case FamilyMealPre:
		return mealPrefix + subKey + "_" + date.Compact() + "_pre"
	case FamilyMealPost:
		return mealPrefix + subKey + "_" + date.Compact() + "_post"
	case FamilyHydration:
		return waterPrefix + subKey + "_" + date.Compact()
	default:
		return sanitizeKey(string(f)) + "_" + subKey + "_" + date.Compact()
	}
}

// ParseID reverses DeriveID for the three known families.
func ParseID(id string) (Family, string, Date, error) {
	bad := func() (Family, string, Date, error) {
		return "", "", Date{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	switch {
	case strings.HasPrefix(id, mealPrefix):
		parts := strings.Split(strings.TrimPrefix(id, mealPrefix), "_")
		if len(parts) != 3 {
			return bad()
		}
		meal, ok := ParseMeal(parts[0])
		if !ok || parts[0] != string(meal) {
			return bad()
		}
		date, err := parseCompactDate(parts[1])
		if err != nil {
			return bad()
		}
		switch parts[2] {
		case "pre":
			return FamilyMealPre, string(meal), date, nil
		case "post":
			return FamilyMealPost, string(meal), date, nil
		}
		return bad()
	case strings.HasPrefix(id, waterPrefix):
		parts := strings.Split(strings.TrimPrefix(id, waterPrefix), "_")
		if len(parts) != 2 {
			return bad()
		}
		idx, err := strconv.Atoi(parts[0])
		if err != nil || idx < 0 || strconv.Itoa(idx) != parts[0] {
			return bad()
		}
		date, err := parseCompactDate(parts[1])
		if err != nil {
			return bad()
		}
		return FamilyHydration, parts[0], date, nil
	}
	return bad()
}

// IsEngineID reports whether id was produced by DeriveID for a known family.
func IsEngineID(id string) bool {
	_, _, _, err := ParseID(id)
	return err == nil
}

func parseCompactDate(s string) (Date, error) {
	if len(s) != 8 {
		return Date{}, ErrInvalidDate
	}
	return ParseDate(s)
}

// sanitizeKey keeps ids ASCII and free of the separator.
func sanitizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
