package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stellaris/internal/model"
)

// Event types published by the booking service.
const (
	BookingRequested = "booking.requested"
	BookingCreated   = "booking.created_by_admin"
	BookingConfirmed = "booking.confirmed"
	BookingRejected  = "booking.rejected"
	ScheduleUpdated  = "schedule.updated"
	SlotBlocked      = "slot.blocked"
	SlotUnblocked    = "slot.unblocked"
)

// BookingTypes lists every booking event type.
var BookingTypes = []string{BookingRequested, BookingCreated, BookingConfirmed, BookingRejected}

// Event represents a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// BookingPayload is carried by booking events.
type BookingPayload struct {
	Booking model.Booking `json:"booking"`
}

// SlotPayload is carried by block/unblock events.
type SlotPayload struct {
	Start string `json:"start"`
}

// SchedulePayload is carried by schedule updates.
type SchedulePayload struct {
	Timezone            string `json:"timezone"`
	SlotDurationMinutes int    `json:"slotDurationMinutes"`
	MaxBookingsPerSlot  int    `json:"maxBookingsPerSlot"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	log         zerolog.Logger
	now         func() time.Time
}

// NewEventBus constructs an empty bus.
func NewEventBus(logger zerolog.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]EventHandler),
		log:         logger.With().Str("component", "events").Logger(),
		now:         time.Now,
	}
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, et := range eventTypes {
		b.subscribers[et] = append(b.subscribers[et], handler)
	}
}

// Publish notifies subscribers of the event type. Handler errors are logged and do not stop delivery.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = b.now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil {
			b.log.Error().Err(err).Str("event", event.Type).Str("event_id", event.ID).Msg("Event handler failed")
		}
	}
}

// PublishJSON marshals payload and publishes it under eventType.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	b.Publish(Event{Type: eventType, Payload: data})
	return nil
}
