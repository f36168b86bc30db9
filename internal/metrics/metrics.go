package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BookingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rhbook_bookings_total",
			Help: "Booking submissions by outcome",
		},
		[]string{"outcome"}, // created|missing_fields|invalid_name|admin_redirect|invalid_phone|failed
	)

	CodeCollisionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rhbook_code_collisions_total",
			Help: "Commits rejected by the booking_code unique index",
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rhbook_notifications_total",
			Help: "Confirmation SMS outcomes",
		},
		[]string{"stage"}, // sent|failed|poison
	)
)

var registerOnce sync.Once

// MustRegister registers the collectors once per process; serve and the
// workers may both call it.
func MustRegister(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			BookingsTotal,
			CodeCollisionsTotal,
			NotificationsTotal,
		)
	})
}
