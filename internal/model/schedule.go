package model

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// WeekdayKeys are the fixed keys of Schedule.Days, Monday first.
var WeekdayKeys = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// TimeRange is an opening range within a day.
type TimeRange struct {
	Start string `json:"start"` // "09:00"
	End   string `json:"end"`   // "18:00"
}

// Schedule is the weekly availability template of the business.
type Schedule struct {
	Timezone            string                 `json:"timezone"`
	SlotDurationMinutes int                    `json:"slotDurationMinutes"`
	MaxBookingsPerSlot  int                    `json:"maxBookingsPerSlot"`
	Days                map[string][]TimeRange `json:"days"`
	Exceptions          map[string][]TimeRange `json:"exceptions"`
}

// Location loads the schedule timezone.
func (s *Schedule) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return nil, fmt.Errorf("schedule timezone is empty")
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// SlotDuration returns the slot length.
func (s *Schedule) SlotDuration() time.Duration {
	return time.Duration(s.SlotDurationMinutes) * time.Minute
}

// WeekdayKey maps a Go weekday to its Schedule.Days key.
func WeekdayKey(wd time.Weekday) string {
	if wd == time.Sunday {
		return "sun"
	}
	return WeekdayKeys[int(wd)-1]
}

// DefaultSchedule is written on first start when no schedule exists yet.
func DefaultSchedule() *Schedule {
	workday := []TimeRange{{Start: "09:00", End: "18:00"}}
	return &Schedule{
		Timezone:            "Europe/Paris",
		SlotDurationMinutes: 30,
		MaxBookingsPerSlot:  1,
		Days: map[string][]TimeRange{
			"mon": workday,
			"tue": workday,
			"wed": workday,
			"thu": workday,
			"fri": workday,
			"sat": {},
			"sun": {},
		},
		Exceptions: map[string][]TimeRange{},
	}
}
