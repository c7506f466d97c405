package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	checkins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devicecheckin",
			Subsystem: "checkin",
			Name:      "requests_total",
			Help:      "Check-in exchanges by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)
	checkinDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "devicecheckin",
			Subsystem: "checkin",
			Name:      "request_duration_seconds",
			Help:      "Check-in exchange duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
	registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devicecheckin",
			Subsystem: "gcm",
			Name:      "registrations_total",
			Help:      "Push registrations by outcome (ok, error, a documented server code, or other).",
		},
		[]string{"outcome"},
	)
	registrationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "devicecheckin",
			Subsystem: "gcm",
			Name:      "registration_duration_seconds",
			Help:      "Registration exchange duration in seconds, including any bootstrap check-in.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	intents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devicecheckin",
			Subsystem: "front",
			Name:      "intents_total",
			Help:      "Inbound intents by action and delivery route.",
		},
		[]string{"action", "delivery"},
	)
)

// RegisterMetrics registers the collectors with the default registry once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(checkins, checkinDuration, registrations, registrationDuration, intents)
	})
}

// RecordCheckin counts one check-in. mode is "bootstrap" or "authenticated".
func RecordCheckin(mode, outcome string, duration time.Duration) {
	RegisterMetrics()
	checkins.WithLabelValues(mode, outcome).Inc()
	checkinDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordRegistration counts one registration attempt.
func RecordRegistration(outcome string, duration time.Duration) {
	RegisterMetrics()
	registrations.WithLabelValues(outcome).Inc()
	registrationDuration.Observe(duration.Seconds())
}

// RecordIntent counts one handled intent. delivery is "reply", "broadcast", "ignored" or "dropped".
func RecordIntent(action, delivery string) {
	RegisterMetrics()
	intents.WithLabelValues(action, delivery).Inc()
}
