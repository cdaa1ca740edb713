package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datetime(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestBooking_Duration(t *testing.T) {
	b := Booking{
		SlotStart: datetime(2026, 1, 15, 10, 0),
		SlotEnd:   datetime(2026, 1, 15, 10, 30),
	}
	assert.Equal(t, 30*time.Minute, b.Duration())
}

func TestWeekdayKey(t *testing.T) {
	assert.Equal(t, "mon", WeekdayKey(time.Monday))
	assert.Equal(t, "sat", WeekdayKey(time.Saturday))
	assert.Equal(t, "sun", WeekdayKey(time.Sunday))
}

func TestParseInstant(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"offset kept as instant", "2024-06-10T07:00:00Z", "2024-06-10T09:00:00+02:00"},
		{"milliseconds", "2024-06-10T09:00:00.000+02:00", "2024-06-10T09:00:00+02:00"},
		{"wall time in zone", "2024-06-10T09:00", "2024-06-10T09:00:00+02:00"},
		{"date only", "2024-06-10", "2024-06-10T00:00:00+02:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInstant(tt.input, paris)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatInstant(got))
		})
	}

	_, err = ParseInstant("tomorrow", paris)
	assert.Error(t, err)
}

func TestDefaultSchedule(t *testing.T) {
	s := DefaultSchedule()
	for _, k := range WeekdayKeys {
		_, ok := s.Days[k]
		assert.True(t, ok, "missing day %s", k)
	}
	loc, err := s.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
	assert.Equal(t, 30*time.Minute, s.SlotDuration())
}
