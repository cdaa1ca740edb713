package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"stellaris/internal/events"
	"stellaris/internal/metrics"
)

// MailSender sends one plain-text mail.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ChatSender posts a message to the admin chat.
type ChatSender interface {
	SendText(ctx context.Context, text string) error
}

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			30 * time.Second,
		},
	}
}

// Config configures a Dispatcher.
type Config struct {
	AdminEmail string
	// Rate is the number of messages per second; Burst the bucket size.
	Rate      float64
	Burst     int
	QueueSize int
	Retry     RetryConfig
}

// Dispatcher turns booking events into mail and chat messages and delivers them in the background.
type Dispatcher struct {
	mail       MailSender
	chat       ChatSender
	adminEmail string
	limiter    *rate.Limiter
	retry      RetryConfig
	log        zerolog.Logger

	queue  chan Message
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. mail and chat may be nil.
func NewDispatcher(mail MailSender, chat ChatSender, cfg Config, logger zerolog.Logger) *Dispatcher {
	if cfg.Rate <= 0 {
		cfg.Rate = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Retry.MaxRetries > len(cfg.Retry.RetryDelays) {
		cfg.Retry.MaxRetries = len(cfg.Retry.RetryDelays)
	}

	return &Dispatcher{
		mail:       mail,
		chat:       chat,
		adminEmail: cfg.AdminEmail,
		limiter:    rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		retry:      cfg.Retry,
		log:        logger.With().Str("component", "notify").Logger(),
		queue:      make(chan Message, cfg.QueueSize),
	}
}

// Register subscribes the dispatcher to booking events.
func (d *Dispatcher) Register(bus *events.EventBus) {
	bus.Subscribe(d.Handle, events.BookingTypes...)
}

// Start launches the delivery worker.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for m := range d.queue {
			d.deliver(ctx, m)
		}
	}()
}

// Close stops accepting messages and waits for queued ones to be handled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Handle builds the messages for a booking event and queues them.
func (d *Dispatcher) Handle(e events.Event) error {
	var p events.BookingPayload
	if err := e.Decode(&p); err != nil {
		return err
	}
	b := p.Booking

	var msgs []Message
	switch e.Type {
	case events.BookingRequested:
		if d.adminEmail != "" {
			msgs = append(msgs, Message{Channel: ChannelMail, To: d.adminEmail, Subject: "New slot request", Body: RequestedBody(b)})
		}
		msgs = append(msgs, Message{Channel: ChannelTelegram, Body: TelegramRequestedText(b)})
	case events.BookingConfirmed, events.BookingCreated:
		if b.Email != "" {
			msgs = append(msgs, Message{Channel: ChannelMail, To: b.Email, Subject: "Your appointment is confirmed", Body: ConfirmedBody(b)})
		}
	case events.BookingRejected:
		if b.Email != "" {
			msgs = append(msgs, Message{Channel: ChannelMail, To: b.Email, Subject: "Your appointment request was declined", Body: RejectedBody(b)})
		}
	}

	for _, m := range msgs {
		d.enqueue(m)
	}
	return nil
}

func (d *Dispatcher) enqueue(m Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.log.Warn().Str("channel", m.Channel).Msg("Dispatcher closed, message dropped")
		return
	}
	select {
	case d.queue <- m:
	default:
		d.log.Warn().Str("channel", m.Channel).Str("to", m.To).Msg("Notification queue full, message dropped")
	}
}

func (d *Dispatcher) deliver(ctx context.Context, m Message) {
	var send func(context.Context) error
	switch m.Channel {
	case ChannelMail:
		if d.mail == nil {
			d.log.Info().Str("to", m.To).Str("subject", m.Subject).Msg("SMTP not configured, mail skipped")
			return
		}
		send = func(ctx context.Context) error { return d.mail.Send(ctx, m.To, m.Subject, m.Body) }
	case ChannelTelegram:
		if d.chat == nil {
			return
		}
		send = func(ctx context.Context) error { return d.chat.SendText(ctx, m.Body) }
	default:
		return
	}

	if err := d.limiter.Wait(ctx); err != nil {
		d.log.Warn().Err(err).Str("channel", m.Channel).Msg("Notification cancelled")
		return
	}

	err := d.sendWithRetry(ctx, send)
	metrics.IncNotification(m.Channel, err == nil)
	if err != nil {
		d.log.Error().Err(err).Str("channel", m.Channel).Str("to", m.To).Msg("Notification failed")
		return
	}
	d.log.Debug().Str("channel", m.Channel).Str("to", m.To).Msg("Notification sent")
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, send func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= d.retry.MaxRetries; attempt++ {
		err := send(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < d.retry.MaxRetries {
			delay := d.retry.RetryDelays[attempt]
			d.log.Info().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("Retrying notification")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
