package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shortener"

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	EventsHandled    *prometheus.CounterVec
	EventLag         *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served.",
		}),
		EventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_handled_total",
			Help:      "Lifecycle events consumed, by topic and outcome.",
		}, []string{"topic", "outcome"}),
		EventLag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_lag_seconds",
			Help:      "Time between publishing an event and handling it.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"topic"}),
	}

	reg.MustRegister(m.RequestDuration, m.RequestsInFlight, m.EventsHandled, m.EventLag)

	return m
}

// EventHandled records a consumed event.
func (m *Metrics) EventHandled(topic, outcome string, lag time.Duration) {
	m.EventsHandled.WithLabelValues(topic, outcome).Inc()

	if lag > 0 {
		m.EventLag.WithLabelValues(topic).Observe(lag.Seconds())
	}
}
