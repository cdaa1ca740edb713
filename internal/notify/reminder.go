package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stellaris/internal/model"
)

// BookingSource is the part of the booking service the reminder needs.
type BookingSource interface {
	Schedule(ctx context.Context) (*model.Schedule, error)
	ListBookings(ctx context.Context) ([]model.Booking, error)
}

// ReminderConfig controls when daily reminders go out, in the schedule's timezone.
type ReminderConfig struct {
	DailyHour     int
	DailyMinute   int
	CheckInterval time.Duration
}

// ReminderScheduler mails confirmed visitors once a day about their appointments of the following day.
type ReminderScheduler struct {
	cfg    ReminderConfig
	source BookingSource
	out    *Dispatcher
	log    zerolog.Logger
	now    func() time.Time

	mu          sync.Mutex
	lastRunDate string // YYYY-MM-DD of last run
}

func NewReminderScheduler(cfg ReminderConfig, source BookingSource, out *Dispatcher, logger zerolog.Logger) *ReminderScheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	return &ReminderScheduler{
		cfg:    cfg,
		source: source,
		out:    out,
		log:    logger.With().Str("component", "reminders").Logger(),
		now:    time.Now,
	}
}

// Start runs the scheduler loop until ctx is done.
func (s *ReminderScheduler) Start(ctx context.Context) {
	s.log.Info().Int("hour", s.cfg.DailyHour).Int("minute", s.cfg.DailyMinute).Msg("Reminder scheduler started")

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAndRun(ctx)
		}
	}
}

func (s *ReminderScheduler) checkAndRun(ctx context.Context) {
	sched, err := s.source.Schedule(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read schedule")
		return
	}
	loc, err := sched.Location()
	if err != nil {
		s.log.Error().Err(err).Msg("Invalid schedule timezone")
		return
	}

	now := s.now().In(loc)
	today := now.Format(model.DateLayout)

	s.mu.Lock()
	due := s.lastRunDate != today &&
		(now.Hour() > s.cfg.DailyHour || (now.Hour() == s.cfg.DailyHour && now.Minute() >= s.cfg.DailyMinute))
	if due {
		s.lastRunDate = today
	}
	s.mu.Unlock()

	if !due {
		return
	}

	n, err := s.RunOnce(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("Daily reminders failed")
		return
	}
	s.log.Info().Str("date", today).Int("queued", n).Msg("Daily reminders processed")
}

// RunOnce queues a reminder for every confirmed booking on the calendar day after now, in now's zone.
func (s *ReminderScheduler) RunOnce(ctx context.Context, now time.Time) (int, error) {
	bookings, err := s.source.ListBookings(ctx)
	if err != nil {
		return 0, err
	}

	tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location()).Format(model.DateLayout)

	queued := 0
	for _, b := range bookings {
		if b.Status != model.StatusConfirmed || b.Email == "" {
			continue
		}
		if b.SlotStart.In(now.Location()).Format(model.DateLayout) != tomorrow {
			continue
		}
		s.out.enqueue(Message{Channel: ChannelMail, To: b.Email, Subject: "Appointment reminder", Body: ReminderBody(b)})
		queued++
	}
	return queued, nil
}
