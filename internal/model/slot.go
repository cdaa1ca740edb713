package model

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used for exception keys and day buckets.
const DateLayout = "2006-01-02"

// Slot is a bookable window computed from the schedule. It is never stored.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Capacity  int       `json:"capacity"`
	Remaining int       `json:"remaining"`
}

// GroupedDay holds the slots of one calendar day.
type GroupedDay struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// GroupedSlots is the per-day view of a slot list.
type GroupedSlots struct {
	Days []GroupedDay `json:"days"`
}

// FormatInstant renders t in the canonical wire form (RFC 3339, seconds precision, t's own offset).
func FormatInstant(t time.Time) string {
	return t.Format(time.RFC3339)
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	DateLayout,
}

// ParseInstant parses an ISO-8601 string. Values carrying an offset keep their instant and are
// moved into loc; values without one are read as wall time in loc.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 instant %q", s)
}
