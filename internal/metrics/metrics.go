package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lendit",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lendit",
			Name:      "bookings_created_total",
			Help:      "Bookings accepted into waiting state.",
		},
	)

	bookingDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lendit",
			Name:      "booking_decisions_total",
			Help:      "Owner decisions by outcome.",
		},
		[]string{"outcome"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lendit",
			Name:      "booking_conflicts_total",
			Help:      "Creations and approvals rejected for calendar overlap.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, bookingDecisions, bookingConflicts)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncDecision records an owner decision outcome ("approved" or "rejected").
func IncDecision(outcome string) {
	bookingDecisions.WithLabelValues(outcome).Inc()
}

func IncConflict() {
	bookingConflicts.Inc()
}
