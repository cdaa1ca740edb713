package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stellaris/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func starts(slots []model.Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = model.FormatInstant(s.Start)
	}
	return out
}

func TestGenerateSlots_Scenarios(t *testing.T) {
	paris := mustLoad(t, "Europe/Paris")
	s := weekSchedule("Europe/Paris", 60, 1, []model.TimeRange{{Start: "09:00", End: "11:00"}})

	dayStart := time.Date(2024, 6, 10, 0, 0, 0, 0, paris)
	dayEnd := time.Date(2024, 6, 10, 23, 59, 59, 0, paris)
	early := time.Date(2024, 6, 10, 8, 0, 0, 0, paris)
	g := NewGenerator(WithClock(fixedClock(early.Add(-24 * time.Hour))))

	tests := []struct {
		name     string
		bookings []model.Booking
		blocked  []string
		want     []string
	}{
		{
			name: "open day",
			want: []string{"2024-06-10T09:00:00+02:00", "2024-06-10T10:00:00+02:00"},
		},
		{
			name:     "booking fills 09:00",
			bookings: []model.Booking{{SlotStart: time.Date(2024, 6, 10, 9, 0, 0, 0, paris)}},
			want:     []string{"2024-06-10T10:00:00+02:00"},
		},
		{
			name:    "09:00 blocked",
			blocked: []string{"2024-06-10T09:00:00+02:00"},
			want:    []string{"2024-06-10T10:00:00+02:00"},
		},
		{
			name:    "blocked start in another offset",
			blocked: []string{"2024-06-10T07:00:00Z"},
			want:    []string{"2024-06-10T10:00:00+02:00"},
		},
		{
			name:    "unparseable blocked entry matches nothing",
			blocked: []string{"not-a-date"},
			want:    []string{"2024-06-10T09:00:00+02:00", "2024-06-10T10:00:00+02:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.GenerateSlots(s, Request{
				From:     dayStart,
				To:       dayEnd,
				Bookings: tt.bookings,
				Blocked:  tt.blocked,
				MinStart: early,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, starts(got))
			for _, slot := range got {
				assert.Equal(t, 1, slot.Remaining)
				assert.Equal(t, 1, slot.Capacity)
				assert.Equal(t, time.Hour, slot.End.Sub(slot.Start))
			}
		})
	}
}

func TestGenerateSlots_MinNoticeFromClock(t *testing.T) {
	paris := mustLoad(t, "Europe/Paris")
	s := weekSchedule("Europe/Paris", 60, 1, []model.TimeRange{{Start: "09:00", End: "18:00"}})

	// 06:30 + 5h notice leaves 12:00 as the first start.
	now := time.Date(2024, 6, 10, 6, 30, 0, 0, paris)
	g := NewGenerator(WithClock(fixedClock(now)))

	got, err := g.GenerateSlots(s, Request{
		From: time.Date(2024, 6, 10, 0, 0, 0, 0, paris),
		To:   time.Date(2024, 6, 11, 0, 0, 0, 0, paris),
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "2024-06-10T12:00:00+02:00", model.FormatInstant(got[0].Start))
	assert.Len(t, got, 6)

	g = NewGenerator(WithClock(fixedClock(now)), WithMinNotice(0))
	got, err = g.GenerateSlots(s, Request{
		From: time.Date(2024, 6, 10, 0, 0, 0, 0, paris),
		To:   time.Date(2024, 6, 11, 0, 0, 0, 0, paris),
	})
	require.NoError(t, err)
	assert.Len(t, got, 9)
}

func TestGenerateSlots_Alignment(t *testing.T) {
	utc := time.UTC
	s := weekSchedule("UTC", 30, 1, []model.TimeRange{{Start: "09:10", End: "11:00"}})
	g := NewGenerator(WithClock(fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, utc))))

	got, err := g.GenerateSlots(s, Request{
		From:     time.Date(2024, 6, 10, 0, 0, 0, 0, utc),
		To:       time.Date(2024, 6, 10, 23, 0, 0, 0, utc),
		MinStart: time.Date(2024, 6, 10, 0, 0, 0, 0, utc),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-10T09:30:00Z", "2024-06-10T10:00:00Z", "2024-06-10T10:30:00Z"}, starts(got))
}

func TestGenerateSlots_RangeBoundaries(t *testing.T) {
	utc := time.UTC
	s := weekSchedule("UTC", 60, 1, []model.TimeRange{{Start: "09:00", End: "13:00"}})
	g := NewGenerator()

	got, err := g.GenerateSlots(s, Request{
		From:     time.Date(2024, 6, 10, 9, 30, 0, 0, utc),
		To:       time.Date(2024, 6, 10, 12, 0, 0, 0, utc),
		MinStart: time.Date(2024, 6, 1, 0, 0, 0, 0, utc),
	})
	require.NoError(t, err)
	// 09:00 starts before From and 12:00 ends after To.
	assert.Equal(t, []string{"2024-06-10T10:00:00Z", "2024-06-10T11:00:00Z"}, starts(got))
}

func TestGenerateSlots_Capacity(t *testing.T) {
	utc := time.UTC
	s := weekSchedule("UTC", 60, 3, []model.TimeRange{{Start: "09:00", End: "11:00"}})
	nine := time.Date(2024, 6, 10, 9, 0, 0, 0, utc)
	g := NewGenerator()

	got, err := g.GenerateSlots(s, Request{
		From:     time.Date(2024, 6, 10, 0, 0, 0, 0, utc),
		To:       time.Date(2024, 6, 11, 0, 0, 0, 0, utc),
		MinStart: nine.Add(-time.Hour),
		Bookings: []model.Booking{
			{SlotStart: nine, Status: model.StatusPending},
			{SlotStart: nine.In(mustLoad(t, "Europe/Paris")), Status: model.StatusConfirmed},
		},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Remaining)
	assert.Equal(t, 3, got[0].Capacity)
	assert.Equal(t, 3, got[1].Remaining)
}

func TestGenerateSlots_OverlappingRangesDoNotDuplicate(t *testing.T) {
	utc := time.UTC
	s := weekSchedule("UTC", 60, 1, []model.TimeRange{
		{Start: "10:00", End: "12:00"},
		{Start: "09:00", End: "11:00"},
	})
	g := NewGenerator()

	got, err := g.GenerateSlots(s, Request{
		From:     time.Date(2024, 6, 10, 0, 0, 0, 0, utc),
		To:       time.Date(2024, 6, 11, 0, 0, 0, 0, utc),
		MinStart: time.Date(2024, 6, 1, 0, 0, 0, 0, utc),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-10T09:00:00Z", "2024-06-10T10:00:00Z", "2024-06-10T11:00:00Z"}, starts(got))
}

func TestGenerateSlots_DaylightSavingDay(t *testing.T) {
	paris := mustLoad(t, "Europe/Paris")
	s := weekSchedule("Europe/Paris", 60, 1, nil)
	s.Exceptions["2024-03-31"] = []model.TimeRange{{Start: "00:00", End: "24:00"}}
	g := NewGenerator()

	got, err := g.GenerateSlots(s, Request{
		From:     time.Date(2024, 3, 31, 0, 0, 0, 0, paris),
		To:       time.Date(2024, 4, 1, 0, 0, 0, 0, paris),
		MinStart: time.Date(2024, 3, 1, 0, 0, 0, 0, paris),
	})
	require.NoError(t, err)
	assert.Len(t, got, 23)
	assert.Equal(t, "2024-03-31T03:00:00+02:00", model.FormatInstant(got[2].Start))
}

func TestGenerateSlots_Properties(t *testing.T) {
	paris := mustLoad(t, "Europe/Paris")
	s := model.DefaultSchedule()
	s.MaxBookingsPerSlot = 2
	s.Exceptions["2024-06-12"] = []model.TimeRange{}
	s.Exceptions["2024-06-15"] = []model.TimeRange{{Start: "10:15", End: "12:00"}}

	now := time.Date(2024, 6, 10, 10, 0, 0, 0, paris)
	g := NewGenerator(WithClock(fixedClock(now)))

	blocked := []string{"2024-06-11T09:00:00+02:00", "2024-06-13T14:30:00+02:00"}
	bookings := []model.Booking{
		{SlotStart: time.Date(2024, 6, 11, 10, 0, 0, 0, paris)},
		{SlotStart: time.Date(2024, 6, 11, 10, 0, 0, 0, paris)},
		{SlotStart: time.Date(2024, 6, 11, 10, 30, 0, 0, paris)},
	}

	got, err := g.GenerateSlots(s, Request{
		From:     now,
		To:       now.AddDate(0, 0, 14),
		Bookings: bookings,
		Blocked:  blocked,
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)

	minStart := now.Add(DefaultMinNotice)
	blockedKeys := BlockedSet(blocked, paris)
	seen := map[string]bool{}
	for i, slot := range got {
		key := model.FormatInstant(slot.Start)
		assert.True(t, slot.Start.Before(slot.End))
		assert.Equal(t, 30*time.Minute, slot.End.Sub(slot.Start))
		assert.False(t, slot.Start.Before(minStart), key)
		assert.NotContains(t, blockedKeys, instantKey(slot.Start))
		assert.Greater(t, slot.Remaining, 0)
		assert.LessOrEqual(t, slot.Remaining, slot.Capacity)
		assert.Equal(t, 2, slot.Capacity)
		assert.False(t, seen[key], "duplicate %s", key)
		seen[key] = true
		if i > 0 {
			assert.True(t, got[i-1].Start.Before(slot.Start))
		}
		assert.NotEqual(t, "2024-06-12", slot.Start.Format(model.DateLayout))
	}

	assert.False(t, seen["2024-06-11T10:00:00+02:00"])
	assert.True(t, seen["2024-06-11T10:30:00+02:00"])
	assert.True(t, seen["2024-06-15T10:30:00+02:00"])
	assert.False(t, seen["2024-06-15T10:15:00+02:00"])
}

func TestGenerateSlots_BadSchedule(t *testing.T) {
	g := NewGenerator()
	_, err := g.GenerateSlots(&model.Schedule{Timezone: "Nowhere/Land", SlotDurationMinutes: 30}, Request{})
	assert.Error(t, err)

	_, err = g.GenerateSlots(&model.Schedule{Timezone: "UTC"}, Request{})
	assert.Error(t, err)
}

func TestFindSlot(t *testing.T) {
	nine := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	list := []model.Slot{{Start: nine, End: nine.Add(time.Hour)}}

	_, ok := FindSlot(list, nine.In(mustLoad(t, "Europe/Paris")))
	assert.True(t, ok)
	_, ok = FindSlot(list, nine.Add(time.Minute))
	assert.False(t, ok)
}
