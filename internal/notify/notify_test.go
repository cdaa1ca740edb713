package notify

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stellaris/internal/events"
	"stellaris/internal/model"
)

type mockMail struct {
	mock.Mock
}

func (m *mockMail) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type fakeChat struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeChat) SendText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func testBooking(t *testing.T) model.Booking {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	start := time.Date(2024, 6, 10, 14, 0, 0, 0, loc)
	return model.Booking{
		ID:        "b1",
		Name:      "Ada",
		Email:     "ada@example.com",
		Phone:     "0102030405",
		Sector:    "industry",
		SlotStart: start,
		SlotEnd:   start.Add(30 * time.Minute),
		Status:    model.StatusPending,
	}
}

func newBus(t *testing.T, d *Dispatcher) *events.EventBus {
	t.Helper()
	bus := events.NewEventBus(zerolog.New(io.Discard))
	d.Register(bus)
	return bus
}

func TestDispatcher_Requested(t *testing.T) {
	mail := &mockMail{}
	mail.On("Send", "admin@example.com", "New slot request", mock.Anything).Return(nil).Once()
	chat := &fakeChat{}

	d := NewDispatcher(mail, chat, Config{AdminEmail: "admin@example.com", Rate: 100}, zerolog.New(io.Discard))
	d.Start(context.Background())
	bus := newBus(t, d)

	require.NoError(t, bus.PublishJSON(events.BookingRequested, events.BookingPayload{Booking: testBooking(t)}))
	d.Close()

	mail.AssertExpectations(t)
	body := mail.Calls[0].Arguments.String(2)
	assert.Contains(t, body, "Name: Ada")
	assert.Contains(t, body, "Company: -")
	assert.Contains(t, body, "Monday 10 June 2024 at 14:00 +02:00")

	require.Len(t, chat.texts, 1)
	assert.True(t, strings.HasPrefix(chat.texts[0], "New request: Ada"))
}

func TestDispatcher_VisitorMails(t *testing.T) {
	b := testBooking(t)
	reason := "closed for maintenance"

	tests := []struct {
		name      string
		eventType string
		mutate    func(*model.Booking)
		subject   string
		contains  string
	}{
		{"confirmed", events.BookingConfirmed, func(b *model.Booking) { b.Status = model.StatusConfirmed }, "Your appointment is confirmed", "Your appointment is confirmed!"},
		{"admin created", events.BookingCreated, func(b *model.Booking) { b.CreatedBy = model.CreatedByAdmin }, "Your appointment is confirmed", "added by the administrator"},
		{"rejected", events.BookingRejected, func(b *model.Booking) { b.RejectionReason = &reason }, "Your appointment request was declined", "Reason: closed for maintenance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking := b
			tt.mutate(&booking)

			mail := &mockMail{}
			mail.On("Send", "ada@example.com", tt.subject, mock.Anything).Return(nil).Once()

			d := NewDispatcher(mail, nil, Config{Rate: 100}, zerolog.New(io.Discard))
			d.Start(context.Background())
			bus := newBus(t, d)
			require.NoError(t, bus.PublishJSON(tt.eventType, events.BookingPayload{Booking: booking}))
			d.Close()

			mail.AssertExpectations(t)
			assert.Contains(t, mail.Calls[0].Arguments.String(2), tt.contains)
		})
	}
}

func TestDispatcher_RetriesThenSucceeds(t *testing.T) {
	mail := &mockMail{}
	mail.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("421 try later")).Twice()
	mail.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	cfg := Config{Rate: 100, Retry: RetryConfig{MaxRetries: 3, RetryDelays: []time.Duration{0, 0, 0}}}
	d := NewDispatcher(mail, nil, cfg, zerolog.New(io.Discard))
	d.Start(context.Background())

	b := testBooking(t)
	bus := newBus(t, d)
	require.NoError(t, bus.PublishJSON(events.BookingConfirmed, events.BookingPayload{Booking: b}))
	d.Close()

	mail.AssertNumberOfCalls(t, "Send", 3)
}

func TestDispatcher_NoMailer(t *testing.T) {
	d := NewDispatcher(nil, nil, Config{AdminEmail: "admin@example.com"}, zerolog.New(io.Discard))
	d.Start(context.Background())
	bus := newBus(t, d)
	require.NoError(t, bus.PublishJSON(events.BookingRequested, events.BookingPayload{Booking: testBooking(t)}))
	d.Close()
	// closing twice is safe and late events are dropped
	d.Close()
	assert.NoError(t, d.Handle(events.Event{Type: events.BookingConfirmed, Payload: []byte(`{"booking":{"email":"x@y"}}`)}))
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("from@example.com", "to@example.com", "Réservation", "line1\nline2")
	assert.Contains(t, msg, "From: from@example.com\r\n")
	assert.Contains(t, msg, "Subject: =?utf-8?q?R=C3=A9servation?=\r\n")
	assert.Contains(t, msg, "line1\r\nline2")
}

func TestNewSMTPSender(t *testing.T) {
	assert.Nil(t, NewSMTPSender(SMTPConfig{}))

	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", User: "u", Pass: "p"})
	require.NotNil(t, s)
	assert.Equal(t, "smtp.example.com:587", s.addr)
	assert.Equal(t, defaultFrom, s.from)
	assert.NotNil(t, s.auth)
}

type fakeBotAPI struct {
	sent []tgbotapi.Chattable
}

func (f *fakeBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegramSender(t *testing.T) {
	api := &fakeBotAPI{}
	s := NewTelegramSenderWithAPI(api, 42)
	require.NoError(t, s.SendText(context.Background(), "hello"))

	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "hello", msg.Text)
}
