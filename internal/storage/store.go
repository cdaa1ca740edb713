package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"stellaris/internal/model"
)

const (
	ScheduleFile = "schedule.json"
	BookingsFile = "bookings.json"
	BlockedFile  = "blockedSlots.json"
)

// Store persists the schedule, the booking list and the blocked starts as JSON files in one directory.
type Store struct {
	dir      string
	schedule *Resource
	bookings *Resource
	blocked  *Resource
	log      zerolog.Logger
}

// Open prepares the data directory and the per-file resources.
func Open(dir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		dir:      dir,
		schedule: NewResource(filepath.Join(dir, ScheduleFile)),
		bookings: NewResource(filepath.Join(dir, BookingsFile)),
		blocked:  NewResource(filepath.Join(dir, BlockedFile)),
		log:      logger.With().Str("component", "storage").Logger(),
	}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// SchedulePath returns the schedule file path.
func (s *Store) SchedulePath() string { return s.schedule.Path() }

// EnsureDefaults creates missing data files: an empty booking list, no blocked starts and the default schedule.
func (s *Store) EnsureDefaults(ctx context.Context) error {
	defaults := []struct {
		res   *Resource
		value any
	}{
		{s.bookings, []model.Booking{}},
		{s.schedule, model.DefaultSchedule()},
		{s.blocked, []string{}},
	}
	for _, d := range defaults {
		created, err := d.res.WriteIfMissing(ctx, d.value)
		if err != nil {
			return err
		}
		if created {
			s.log.Info().Str("file", d.res.Path()).Msg("Created default data file")
		}
	}
	return nil
}

// Schedule loads the current schedule. A missing file yields the default schedule.
func (s *Store) Schedule(ctx context.Context) (*model.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sched model.Schedule
	found, err := s.schedule.Read(&sched)
	if err != nil {
		return nil, err
	}
	if !found {
		return model.DefaultSchedule(), nil
	}
	if sched.Exceptions == nil {
		sched.Exceptions = map[string][]model.TimeRange{}
	}
	return &sched, nil
}

// ReplaceSchedule overwrites the schedule.
func (s *Store) ReplaceSchedule(ctx context.Context, sched *model.Schedule) error {
	return s.schedule.Write(ctx, sched)
}

// Bookings loads every stored booking.
func (s *Store) Bookings(ctx context.Context) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bookings := []model.Booking{}
	if _, err := s.bookings.Read(&bookings); err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	return bookings, nil
}

// UpdateBookings runs fn on the booking list under the bookings lock and stores its result.
func (s *Store) UpdateBookings(ctx context.Context, fn func([]model.Booking) ([]model.Booking, error)) error {
	var bookings []model.Booking
	return s.bookings.Update(ctx, &bookings, func() error {
		next, err := fn(bookings)
		if err != nil {
			return err
		}
		if next == nil {
			next = []model.Booking{}
		}
		bookings = next
		return nil
	})
}

// Blocked loads the blocked slot starts.
func (s *Store) Blocked(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blocked := []string{}
	if _, err := s.blocked.Read(&blocked); err != nil {
		return nil, err
	}
	if blocked == nil {
		blocked = []string{}
	}
	return blocked, nil
}

// UpdateBlocked runs fn on the blocked starts under the blocked lock and stores its result.
func (s *Store) UpdateBlocked(ctx context.Context, fn func([]string) ([]string, error)) error {
	var blocked []string
	return s.blocked.Update(ctx, &blocked, func() error {
		next, err := fn(blocked)
		if err != nil {
			return err
		}
		if next == nil {
			next = []string{}
		}
		blocked = next
		return nil
	})
}
