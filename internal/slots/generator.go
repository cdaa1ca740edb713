package slots

import (
	"fmt"
	"sort"
	"time"

	"stellaris/internal/model"
)

// DefaultMinNotice is the lead time required before a publicly bookable slot.
const DefaultMinNotice = 5 * time.Hour

// Request describes one generation run.
type Request struct {
	From     time.Time
	To       time.Time
	Bookings []model.Booking
	// Blocked holds manually withdrawn slot starts as ISO-8601 strings.
	Blocked []string
	// MinStart overrides now + min notice when set.
	MinStart time.Time
}

// Generator computes bookable slots from a schedule.
type Generator struct {
	now       func() time.Time
	minNotice time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithMinNotice overrides DefaultMinNotice.
func WithMinNotice(d time.Duration) Option {
	return func(g *Generator) { g.minNotice = d }
}

// NewGenerator creates a new slot generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now, minNotice: DefaultMinNotice}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Now returns the generator's current time.
func (g *Generator) Now() time.Time {
	return g.now()
}

// MinNotice returns the configured minimum notice.
func (g *Generator) MinNotice() time.Duration {
	return g.minNotice
}

// GenerateSlots walks every calendar day touched by [req.From, req.To] in the schedule timezone and
// returns the slots that fit the range, start at or after the minimum start, are not blocked and
// still have capacity. The result is sorted by start.
func (g *Generator) GenerateSlots(schedule *model.Schedule, req Request) ([]model.Slot, error) {
	loc, err := schedule.Location()
	if err != nil {
		return nil, err
	}
	if schedule.SlotDurationMinutes <= 0 {
		return nil, fmt.Errorf("slot duration must be positive, got %d", schedule.SlotDurationMinutes)
	}

	minStart := req.MinStart
	if minStart.IsZero() {
		minStart = g.now().Add(g.minNotice)
	}

	booked := make(map[string]int, len(req.Bookings))
	for _, b := range req.Bookings {
		booked[instantKey(b.SlotStart)]++
	}
	blocked := BlockedSet(req.Blocked, loc)

	step := schedule.SlotDuration()
	durMin := schedule.SlotDurationMinutes

	from := req.From.In(loc)
	to := req.To.In(loc)
	lastDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc)

	seen := make(map[string]struct{})
	var out []model.Slot

	for i := 0; ; i++ {
		day := time.Date(from.Year(), from.Month(), from.Day()+i, 0, 0, 0, 0, loc)
		if day.After(lastDay) {
			break
		}

		for _, itv := range BuildDayIntervals(day, schedule, loc) {
			cursor := itv.Start
			if rem := cursor.Minute() % durMin; rem != 0 {
				cursor = cursor.Add(time.Duration(durMin-rem) * time.Minute).Truncate(time.Minute)
			}

			for ; cursor.Before(itv.End); cursor = cursor.Add(step) {
				slotEnd := cursor.Add(step)
				if slotEnd.After(itv.End) {
					break
				}
				if cursor.Before(minStart) || cursor.Before(req.From) || slotEnd.After(req.To) {
					continue
				}

				key := instantKey(cursor)
				if _, ok := blocked[key]; ok {
					continue
				}
				if _, dup := seen[key]; dup {
					continue
				}

				remaining := max(schedule.MaxBookingsPerSlot-booked[key], 0)
				if remaining == 0 {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, model.Slot{
					Start:     cursor,
					End:       slotEnd,
					Capacity:  schedule.MaxBookingsPerSlot,
					Remaining: remaining,
				})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})

	return out, nil
}

// FindSlot returns the slot starting exactly at start.
func FindSlot(slots []model.Slot, start time.Time) (model.Slot, bool) {
	for _, s := range slots {
		if s.Start.Equal(start) {
			return s, true
		}
	}
	return model.Slot{}, false
}

// BlockedSet normalizes blocked start strings into instant keys. Entries that do not parse match nothing.
func BlockedSet(blocked []string, loc *time.Location) map[string]struct{} {
	set := make(map[string]struct{}, len(blocked))
	for _, s := range blocked {
		t, err := model.ParseInstant(s, loc)
		if err != nil {
			continue
		}
		set[instantKey(t)] = struct{}{}
	}
	return set
}

func instantKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
