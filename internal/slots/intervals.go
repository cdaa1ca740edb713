package slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"stellaris/internal/model"
)

// Interval is an open range of one calendar day, as zoned instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

// RangesFor returns the ranges that apply to date: the exception list when the date has one
// (an empty list closes the day), the weekday template otherwise.
func RangesFor(date time.Time, schedule *model.Schedule) []model.TimeRange {
	if ranges, ok := schedule.Exceptions[date.Format(model.DateLayout)]; ok && ranges != nil {
		return ranges
	}
	return schedule.Days[model.WeekdayKey(date.Weekday())]
}

// BuildDayIntervals resolves the open intervals of the calendar day of date in loc.
// Unparseable, empty and inverted ranges are dropped; order is preserved.
func BuildDayIntervals(date time.Time, schedule *model.Schedule, loc *time.Location) []Interval {
	day := date.In(loc)
	ranges := RangesFor(day, schedule)

	intervals := make([]Interval, 0, len(ranges))
	for _, r := range ranges {
		start, err := parseTimeOnDate(day, r.Start)
		if err != nil {
			continue
		}
		end, err := parseTimeOnDate(day, r.End)
		if err != nil {
			continue
		}
		if end.After(start) {
			intervals = append(intervals, Interval{Start: start, End: end})
		}
	}
	return intervals
}

// parseTimeOnDate places "HH:MM" on the calendar day of date in date's location. "24:00" is the end of the day.
func parseTimeOnDate(date time.Time, timeStr string) (time.Time, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour: %w", err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute: %w", err)
	}

	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return time.Time{}, fmt.Errorf("time out of range: %s", timeStr)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}
