package notify

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stellaris/internal/model"
)

type fakeSource struct {
	bookings []model.Booking
}

func (f *fakeSource) Schedule(context.Context) (*model.Schedule, error) {
	return model.DefaultSchedule(), nil
}

func (f *fakeSource) ListBookings(context.Context) ([]model.Booking, error) {
	return f.bookings, nil
}

func TestReminderScheduler_RunOnce(t *testing.T) {
	base := testBooking(t) // Monday 10 June 14:00 Paris

	confirmed := base
	confirmed.Status = model.StatusConfirmed

	pending := base
	pending.ID, pending.Email = "b2", "pending@example.com"

	later := confirmed
	later.ID, later.Email = "b3", "later@example.com"
	later.SlotStart = later.SlotStart.AddDate(0, 0, 1)

	mail := &mockMail{}
	mail.On("Send", "ada@example.com", "Appointment reminder", mock.Anything).Return(nil).Once()

	d := NewDispatcher(mail, nil, Config{Rate: 100}, zerolog.New(io.Discard))
	d.Start(context.Background())

	s := NewReminderScheduler(ReminderConfig{}, &fakeSource{bookings: []model.Booking{confirmed, pending, later}}, d, zerolog.New(io.Discard))

	// Sunday 9 June, 18:00 in Paris.
	now := time.Date(2024, 6, 9, 18, 0, 0, 0, base.SlotStart.Location())
	n, err := s.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	d.Close()
	mail.AssertExpectations(t)
	assert.Contains(t, mail.Calls[0].Arguments.String(2), "Reminder: your appointment is tomorrow")
}

func TestReminderScheduler_RunsOncePerDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	d := NewDispatcher(nil, nil, Config{}, zerolog.New(io.Discard))
	d.Start(context.Background())
	defer d.Close()

	s := NewReminderScheduler(ReminderConfig{DailyHour: 12}, &fakeSource{}, d, zerolog.New(io.Discard))

	now := time.Date(2024, 6, 9, 11, 59, 0, 0, loc)
	s.now = func() time.Time { return now }

	s.checkAndRun(context.Background())
	assert.Empty(t, s.lastRunDate, "before the daily time")

	now = now.Add(2 * time.Minute)
	s.checkAndRun(context.Background())
	assert.Equal(t, "2024-06-09", s.lastRunDate)

	now = time.Date(2024, 6, 10, 12, 30, 0, 0, loc)
	s.checkAndRun(context.Background())
	assert.Equal(t, "2024-06-10", s.lastRunDate)
}
