package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stellaris"

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_created_total",
			Help:      "Count of bookings created by status.",
		},
		[]string{"status"},
	)

	bookingConflict = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflict_total",
			Help:      "Count of booking requests for a slot that was no longer available.",
		},
	)

	adminDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_decision_total",
			Help:      "Count of admin decisions over bookings.",
		},
		[]string{"decision"},
	)

	slotsGenerated = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slots_generated",
			Help:      "Number of slots returned per generation run.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Count of public requests refused by the rate limiter.",
		},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Count of notifications by channel and result.",
		},
		[]string{"channel", "result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingCreated,
			bookingConflict,
			adminDecision,
			slotsGenerated,
			httpRequests,
			rateLimited,
			notificationsSent,
		)
	})
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncBookingConflict() {
	bookingConflict.Inc()
}

func IncAdminDecision(decision string) {
	adminDecision.WithLabelValues(decision).Inc()
}

func ObserveSlotsGenerated(n int) {
	slotsGenerated.Observe(float64(n))
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

func IncRateLimited() {
	rateLimited.Inc()
}

func IncNotification(channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	notificationsSent.WithLabelValues(channel, result).Inc()
}
