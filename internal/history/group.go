package history

import (
	"sort"
	"time"
)

const (
	LabelToday     = "Today"
	LabelYesterday = "Yesterday"
	LabelUnknown   = "Unknown date"
)

// Section is one day bucket of the history list.
type Section struct {
	Label string `json:"label"`
	Items []Item `json:"items"`
}

// GroupByDay buckets items by calendar day in now's location. Sections and
// the items inside them are ordered newest first. Items with an unparseable
// timestamp go to a trailing "Unknown date" section.
func GroupByDay(items []Item, now time.Time) []Section {
	loc := now.Location()

	type dated struct {
		it Item
		t  time.Time
	}
	var ok []dated
	var bad []Item
	for _, it := range items {
		t, good := it.Time()
		if !good {
			bad = append(bad, it)
			continue
		}
		ok = append(ok, dated{it: it, t: t.In(loc)})
	}
	sort.SliceStable(ok, func(i, j int) bool { return ok[i].t.After(ok[j].t) })

	today := dayStart(now)
	yesterday := today.AddDate(0, 0, -1)

	var out []Section
	var curDay time.Time
	for _, d := range ok {
		day := dayStart(d.t)
		if len(out) == 0 || !day.Equal(curDay) {
			out = append(out, Section{Label: dayLabel(day, today, yesterday)})
			curDay = day
		}
		last := &out[len(out)-1]
		last.Items = append(last.Items, d.it)
	}
	if len(bad) > 0 {
		out = append(out, Section{Label: LabelUnknown, Items: bad})
	}
	return out
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dayLabel(day, today, yesterday time.Time) string {
	switch {
	case day.Equal(today):
		return LabelToday
	case day.Equal(yesterday):
		return LabelYesterday
	default:
		return day.Format("02/01/2006")
	}
}

// FormatClock renders the item time as "15:04" in loc, or "" when At is malformed.
func FormatClock(it Item, loc *time.Location) string {
	t, ok := it.Time()
	if !ok {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("15:04")
}
