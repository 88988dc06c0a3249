package history

import (
	"strings"
	"time"
)

type Kind string

const (
	KindMealPre  Kind = "meal-pre"
	KindMealPost Kind = "meal-post"
	KindOther    Kind = "other"
)

// ParseKind maps unknown values to KindOther.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindMealPre:
		return KindMealPre
	case KindMealPost:
		return KindMealPost
	default:
		return KindOther
	}
}

// Item is one shown notification. It is never mutated after creation; a
// newer item with the same ID replaces it.
type Item struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	At      string `json:"at"` // RFC 3339
	Kind    Kind   `json:"kind"`
	Meal    string `json:"meal,omitempty"`
}

// FormatAt renders t the way Item.At stores it.
func FormatAt(t time.Time) string { return t.Format(time.RFC3339Nano) }

// Time parses At. ok is false for empty or malformed values.
func (it Item) Time() (time.Time, bool) {
	s := strings.TrimSpace(it.At)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
