package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stellaris/internal/events"
	"stellaris/internal/metrics"
	"stellaris/internal/model"
	"stellaris/internal/slots"
)

const (
	// DefaultRangeDays is the span of a slot query without an explicit end.
	DefaultRangeDays = 14
	// NextSlotDays bounds the search for the next free slot.
	NextSlotDays = 30
	// MaxRangeDays bounds the span of a slot query.
	MaxRangeDays = 366
)

// Store provides schedule, booking and blocked-start persistence.
type Store interface {
	Schedule(ctx context.Context) (*model.Schedule, error)
	ReplaceSchedule(ctx context.Context, sched *model.Schedule) error
	Bookings(ctx context.Context) ([]model.Booking, error)
	UpdateBookings(ctx context.Context, fn func([]model.Booking) ([]model.Booking, error)) error
	Blocked(ctx context.Context) ([]string, error)
	UpdateBlocked(ctx context.Context, fn func([]string) ([]string, error)) error
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// Request is the visitor-supplied part of a booking.
type Request struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Company     string `json:"company"`
	Phone       string `json:"phone"`
	Sector      string `json:"sector"`
	Description string `json:"description"`
	SlotStart   string `json:"slotStart"`
}

func (r Request) complete() bool {
	for _, v := range []string{r.Name, r.Email, r.Phone, r.Sector} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// SlotQuery selects a slot range. Empty bounds default to now and From + DefaultRangeDays.
type SlotQuery struct {
	From string
	To   string
	// Admin drops the minimum notice; only slots already in the past are hidden.
	Admin bool
}

// SlotList is the result of a slot query.
type SlotList struct {
	Slots    []model.Slot
	Location *time.Location
}

// Grouped returns the slots bucketed per day.
func (l *SlotList) Grouped() model.GroupedSlots {
	return slots.GroupSlotsByDay(l.Slots, l.Location)
}

// Service provides availability and booking operations.
type Service struct {
	store  Store
	gen    *slots.Generator
	events EventPublisher
	log    zerolog.Logger
	newID  func() string
}

// NewService creates a new booking service.
func NewService(store Store, gen *slots.Generator, publisher EventPublisher, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		gen:    gen,
		events: publisher,
		log:    logger.With().Str("component", "booking").Logger(),
		newID:  uuid.NewString,
	}
}

// MinNoticeHours is reported to clients refused with ErrSlotTooSoon.
func (s *Service) MinNoticeHours() float64 {
	return s.gen.MinNotice().Hours()
}

// ListSlots generates the bookable slots for q.
func (s *Service) ListSlots(ctx context.Context, q SlotQuery) (*SlotList, error) {
	sched, loc, err := s.schedule(ctx)
	if err != nil {
		return nil, err
	}

	from, to, err := s.resolveRange(q.From, q.To, loc, DefaultRangeDays)
	if err != nil {
		return nil, err
	}

	req := slots.Request{From: from, To: to}
	if q.Admin {
		req.MinStart = s.gen.Now()
	}

	list, err := s.generate(ctx, sched, req)
	if err != nil {
		return nil, err
	}
	return &SlotList{Slots: list, Location: loc}, nil
}

// NextSlot returns the first public slot within NextSlotDays, or nil.
func (s *Service) NextSlot(ctx context.Context) (*model.Slot, error) {
	sched, loc, err := s.schedule(ctx)
	if err != nil {
		return nil, err
	}

	from := s.gen.Now().In(loc)
	list, err := s.generate(ctx, sched, slots.Request{From: from, To: from.AddDate(0, 0, NextSlotDays)})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// CreateBooking registers a visitor's request as pending. The slot must honour the minimum notice.
func (s *Service) CreateBooking(ctx context.Context, req Request) (*model.Booking, error) {
	return s.create(ctx, req, false)
}

// CreateAdminBooking registers a confirmed booking on behalf of the admin. Only past slots are refused.
func (s *Service) CreateAdminBooking(ctx context.Context, req Request) (*model.Booking, error) {
	return s.create(ctx, req, true)
}

func (s *Service) create(ctx context.Context, req Request, admin bool) (*model.Booking, error) {
	if !req.complete() {
		return nil, ErrMissingFields
	}

	sched, loc, err := s.schedule(ctx)
	if err != nil {
		return nil, err
	}

	if req.SlotStart == "" {
		return nil, ErrInvalidSlot
	}
	start, err := model.ParseInstant(req.SlotStart, loc)
	if err != nil {
		return nil, ErrInvalidSlot
	}

	now := s.gen.Now().In(loc)
	if !admin && start.Sub(now) < s.gen.MinNotice() {
		return nil, ErrSlotTooSoon
	}

	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	dayEnd := time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, loc)

	var created model.Booking
	err = s.store.UpdateBookings(ctx, func(list []model.Booking) ([]model.Booking, error) {
		blocked, err := s.store.Blocked(ctx)
		if err != nil {
			return nil, fmt.Errorf("read blocked slots: %w", err)
		}

		genReq := slots.Request{
			From:     dayStart,
			To:       dayEnd,
			Bookings: list,
			Blocked:  blocked,
		}
		if admin {
			genReq.MinStart = now
		}
		daySlots, err := s.gen.GenerateSlots(sched, genReq)
		if err != nil {
			return nil, fmt.Errorf("generate slots: %w", err)
		}

		slot, ok := slots.FindSlot(daySlots, start)
		if !ok {
			return nil, ErrSlotUnavailable
		}

		created = model.Booking{
			ID:          s.newID(),
			Name:        req.Name,
			Email:       req.Email,
			Phone:       req.Phone,
			Sector:      req.Sector,
			Company:     model.StringPtr(req.Company),
			Description: model.StringPtr(req.Description),
			SlotStart:   slot.Start,
			SlotEnd:     slot.Start.Add(sched.SlotDuration()),
			CreatedAt:   now,
			Status:      model.StatusPending,
		}
		if admin {
			created.Status = model.StatusConfirmed
			created.ConfirmedAt = &now
			created.CreatedBy = model.CreatedByAdmin
		}
		return append(list, created), nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			metrics.IncBookingConflict()
			return nil, err
		}
		return nil, fmt.Errorf("save booking: %w", err)
	}

	metrics.IncBookingCreated(string(created.Status))

	eventType := events.BookingRequested
	if admin {
		eventType = events.BookingCreated
	}
	s.publish(eventType, events.BookingPayload{Booking: created})

	s.log.Info().
		Str("booking_id", created.ID).
		Str("slot", model.FormatInstant(created.SlotStart)).
		Str("status", string(created.Status)).
		Msg("Booking created")

	return &created, nil
}

// ListBookings returns every stored booking.
func (s *Service) ListBookings(ctx context.Context) ([]model.Booking, error) {
	bookings, err := s.store.Bookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("read bookings: %w", err)
	}
	return bookings, nil
}

// ConfirmBooking marks a booking confirmed. Confirming an already confirmed booking is a no-op.
func (s *Service) ConfirmBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, changed, err := s.transition(ctx, id, func(b *model.Booking, now time.Time) bool {
		if b.Status == model.StatusConfirmed {
			return false
		}
		b.Status = model.StatusConfirmed
		b.ConfirmedAt = &now
		return true
	})
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.IncAdminDecision("confirm")
		s.publish(events.BookingConfirmed, events.BookingPayload{Booking: *b})
		s.log.Info().Str("booking_id", b.ID).Msg("Booking confirmed")
	}
	return b, nil
}

// RejectBooking marks a booking rejected with an optional reason. Rejecting twice is a no-op.
func (s *Service) RejectBooking(ctx context.Context, id, reason string) (*model.Booking, error) {
	b, changed, err := s.transition(ctx, id, func(b *model.Booking, now time.Time) bool {
		if b.Status == model.StatusRejected {
			return false
		}
		b.Status = model.StatusRejected
		b.RejectedAt = &now
		b.RejectionReason = model.StringPtr(reason)
		return true
	})
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.IncAdminDecision("reject")
		s.publish(events.BookingRejected, events.BookingPayload{Booking: *b})
		s.log.Info().Str("booking_id", b.ID).Str("reason", reason).Msg("Booking rejected")
	}
	return b, nil
}

func (s *Service) transition(ctx context.Context, id string, apply func(*model.Booking, time.Time) bool) (*model.Booking, bool, error) {
	var (
		result  model.Booking
		changed bool
	)
	err := s.store.UpdateBookings(ctx, func(list []model.Booking) ([]model.Booking, error) {
		for i := range list {
			if list[i].ID != id {
				continue
			}
			now := s.gen.Now().In(list[i].SlotStart.Location())
			changed = apply(&list[i], now)
			result = list[i]
			if !changed {
				return nil, errUnchanged
			}
			return list, nil
		}
		return nil, ErrBookingNotFound
	})
	switch {
	case errors.Is(err, errUnchanged):
		return &result, false, nil
	case errors.Is(err, ErrBookingNotFound):
		return nil, false, err
	case err != nil:
		return nil, false, fmt.Errorf("update booking: %w", err)
	}
	return &result, changed, nil
}

// Schedule returns the current schedule.
func (s *Service) Schedule(ctx context.Context) (*model.Schedule, error) {
	sched, err := s.store.Schedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	return sched, nil
}

// UpdateSchedule validates raw and replaces the schedule with it.
func (s *Service) UpdateSchedule(ctx context.Context, raw []byte) (*model.Schedule, error) {
	if err := slots.ValidateJSON(raw); err != nil {
		return nil, err
	}

	var sched model.Schedule
	if err := json.Unmarshal(raw, &sched); err != nil {
		return nil, &slots.ValidationError{Message: "invalid payload"}
	}
	if sched.Exceptions == nil {
		sched.Exceptions = map[string][]model.TimeRange{}
	}

	if err := s.store.ReplaceSchedule(ctx, &sched); err != nil {
		return nil, fmt.Errorf("write schedule: %w", err)
	}

	s.publish(events.ScheduleUpdated, events.SchedulePayload{
		Timezone:            sched.Timezone,
		SlotDurationMinutes: sched.SlotDurationMinutes,
		MaxBookingsPerSlot:  sched.MaxBookingsPerSlot,
	})
	s.log.Info().Str("timezone", sched.Timezone).Int("slot_minutes", sched.SlotDurationMinutes).Msg("Schedule updated")
	return &sched, nil
}

// BlockSlot withdraws a slot start. The start is stored in canonical form; blocking twice is a no-op.
func (s *Service) BlockSlot(ctx context.Context, start string) error {
	t, err := s.parseBlockedStart(ctx, start)
	if err != nil {
		return err
	}
	canonical := model.FormatInstant(t)

	err = s.store.UpdateBlocked(ctx, func(list []string) ([]string, error) {
		for _, entry := range list {
			if sameInstant(entry, t) {
				return nil, errUnchanged
			}
		}
		return append(list, canonical), nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("block slot: %w", err)
	}

	s.publish(events.SlotBlocked, events.SlotPayload{Start: canonical})
	s.log.Info().Str("start", canonical).Msg("Slot blocked")
	return nil
}

// UnblockSlot removes every blocked entry naming the same instant as start.
func (s *Service) UnblockSlot(ctx context.Context, start string) error {
	t, err := s.parseBlockedStart(ctx, start)
	if err != nil {
		return err
	}

	err = s.store.UpdateBlocked(ctx, func(list []string) ([]string, error) {
		kept := make([]string, 0, len(list))
		for _, entry := range list {
			if entry == start || sameInstant(entry, t) {
				continue
			}
			kept = append(kept, entry)
		}
		return kept, nil
	})
	if err != nil {
		return fmt.Errorf("unblock slot: %w", err)
	}

	canonical := model.FormatInstant(t)
	s.publish(events.SlotUnblocked, events.SlotPayload{Start: canonical})
	s.log.Info().Str("start", canonical).Msg("Slot unblocked")
	return nil
}

// ListBlocked returns the blocked slot starts as stored.
func (s *Service) ListBlocked(ctx context.Context) ([]string, error) {
	blocked, err := s.store.Blocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("read blocked slots: %w", err)
	}
	return blocked, nil
}

func (s *Service) parseBlockedStart(ctx context.Context, start string) (time.Time, error) {
	if start == "" {
		return time.Time{}, ErrInvalidSlotStart
	}
	_, loc, err := s.schedule(ctx)
	if err != nil {
		return time.Time{}, err
	}
	t, err := model.ParseInstant(start, loc)
	if err != nil {
		return time.Time{}, ErrInvalidSlotStart
	}
	return t, nil
}

func sameInstant(entry string, t time.Time) bool {
	parsed, err := model.ParseInstant(entry, t.Location())
	return err == nil && parsed.Equal(t)
}

func (s *Service) schedule(ctx context.Context) (*model.Schedule, *time.Location, error) {
	sched, err := s.store.Schedule(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read schedule: %w", err)
	}
	loc, err := sched.Location()
	if err != nil {
		return nil, nil, err
	}
	return sched, loc, nil
}

func (s *Service) resolveRange(fromQ, toQ string, loc *time.Location, days int) (time.Time, time.Time, error) {
	from := s.gen.Now().In(loc)
	if fromQ != "" {
		t, err := model.ParseInstant(fromQ, loc)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}
		from = t
	}

	to := from.AddDate(0, 0, days)
	if toQ != "" {
		t, err := model.ParseInstant(toQ, loc)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}
		to = t
	}

	if !to.After(from) || to.Sub(from) > MaxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return from, to, nil
}

func (s *Service) generate(ctx context.Context, sched *model.Schedule, req slots.Request) ([]model.Slot, error) {
	bookings, err := s.store.Bookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("read bookings: %w", err)
	}
	blocked, err := s.store.Blocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("read blocked slots: %w", err)
	}

	req.Bookings = bookings
	req.Blocked = blocked

	list, err := s.gen.GenerateSlots(sched, req)
	if err != nil {
		return nil, fmt.Errorf("generate slots: %w", err)
	}
	metrics.ObserveSlotsGenerated(len(list))
	return list, nil
}

func (s *Service) publish(eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}
