package reminder

import (
	"sort"
	"time"

	"nutricare/internal/platform"
)

// FireTime returns the first occurrence of the slot, starting on date, that is
// strictly after now. The offset is applied to every candidate, and rollover
// repeats day by day, so a date far in the past still yields a future time.
func FireTime(s Slot, date Date, now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	at := date.At(s.Base.Hour, s.Base.Minute, loc).Add(s.Offset)
	if at.After(now) {
		return at
	}
	// Jump close to now first; the loop below finishes the last step or two.
	if gap := int(now.Sub(at) / (24 * time.Hour)); gap > 1 {
		date = date.AddDays(gap - 1)
	}
	for {
		date = date.AddDays(1)
		at = date.At(s.Base.Hour, s.Base.Minute, loc).Add(s.Offset)
		if at.After(now) {
			return at
		}
	}
}

// Trigger is one materialized reminder.
type Trigger struct {
	ID           string                `json:"id"`
	Family       Family                `json:"family"`
	SubKey       string                `json:"sub_key"`
	Date         Date                  `json:"date"`
	FireAt       time.Time             `json:"fire_at"`
	Notification platform.Notification `json:"notification"`
	// RolledOver is set when the nominal time on Date had already passed.
	RolledOver bool `json:"rolled_over,omitempty"`
}

// BuildTrigger derives the id, fire time and payload for slot on date.
func BuildTrigger(s Slot, date Date, now time.Time, loc *time.Location, channelID string) Trigger {
	id := DeriveID(s.Family, s.SubKey, date)
	data := make(map[string]string, len(s.Data)+1)
	for k, v := range s.Data {
		data[k] = v
	}
	data[DataDate] = date.Compact()

	if loc == nil {
		loc = time.Local
	}
	fireAt := FireTime(s, date, now, loc)
	nominal := date.At(s.Base.Hour, s.Base.Minute, loc).Add(s.Offset)

	return Trigger{
		ID:         id,
		Family:     s.Family,
		SubKey:     s.SubKey,
		Date:       date,
		FireAt:     fireAt,
		RolledOver: !fireAt.Equal(nominal),
		Notification: platform.Notification{
			ID:        id,
			ChannelID: channelID,
			Title:     s.Title,
			Body:      s.Body,
			Data:      data,
			Actions:   []platform.Action{{ID: ActionDone, Title: ActionDoneTitle}},
		},
	}
}

// Plan computes the triggers a range schedule would produce, without touching
// a gateway. Results are ordered by fire time, then id.
func Plan(slots []Slot, today Date, daysAhead int, now time.Time, loc *time.Location) []Trigger {
	if daysAhead < 0 {
		daysAhead = 0
	}
	out := make([]Trigger, 0, len(slots)*(daysAhead+1))
	for i := 0; i <= daysAhead; i++ {
		d := today.AddDays(i)
		for _, s := range slots {
			out = append(out, BuildTrigger(s, d, now, loc, ""))
		}
	}
	SortTriggers(out)
	return out
}

func SortTriggers(ts []Trigger) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].FireAt.Equal(ts[j].FireAt) {
			return ts[i].FireAt.Before(ts[j].FireAt)
		}
		return ts[i].ID < ts[j].ID
	})
}
