package backend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for backend fetches.
type Metrics struct {
	fetchTotal     *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	breakerState   prometheus.Gauge
	breakerChanges *prometheus.CounterVec
}

// NewMetrics creates backend metrics registered with registerer. A nil
// registerer leaves them unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pap"
	}

	m := &Metrics{
		fetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "fetches_total",
				Help:      "Total number of backend fetches",
			},
			[]string{"outcome"},
		),
		fetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "fetch_duration_seconds",
				Help:      "Backend fetch duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		breakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "circuit_breaker_state",
				Help:      "Backend circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
		),
		breakerChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "circuit_breaker_transitions_total",
				Help:      "Total number of backend circuit breaker state transitions",
			},
			[]string{"from", "to"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(m.fetchTotal, m.fetchDuration, m.breakerState, m.breakerChanges)
	}

	for _, outcome := range []string{outcomeSuccess, outcomeError, outcomeRejected} {
		m.fetchTotal.WithLabelValues(outcome)
	}

	return m
}

// RecordFetch records one fetch.
func (m *Metrics) RecordFetch(outcome string, duration time.Duration) {
	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(duration.Seconds())
}

// SetBreakerState records a breaker transition.
func (m *Metrics) SetBreakerState(from, to string, state int) {
	m.breakerState.Set(float64(state))
	m.breakerChanges.WithLabelValues(from, to).Inc()
}

const (
	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeRejected = "rejected"
)
