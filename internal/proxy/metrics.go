package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts engine outcomes. A nil *Metrics records nothing.
type Metrics struct {
	outcomes *prometheus.CounterVec
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "plura",
				Subsystem: "proxy",
				Name:      "outcomes_total",
				Help:      "New messages by terminal state.",
			},
			[]string{"state"},
		),
		actions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "plura",
				Subsystem: "proxy",
				Name:      "actions_total",
				Help:      "Message actions by kind and result.",
			},
			[]string{"action", "result"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "plura",
				Subsystem: "proxy",
				Name:      "operation_duration_seconds",
				Help:      "Time from receipt to terminal state.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

func (m *Metrics) outcome(state State, seconds float64) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(state)).Inc()
	m.duration.WithLabelValues("message").Observe(seconds)
}

func (m *Metrics) action(kind string, err error, seconds float64) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(kind, resultLabel(err)).Inc()
	m.duration.WithLabelValues(kind).Observe(seconds)
}
