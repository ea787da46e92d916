package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeAllowed      = "allowed"
	OutcomeNotFound     = "not_found"
	OutcomeUnauthorized = "unauthorized"
	OutcomeDenied       = "denied"
	OutcomeError        = "error"
)

// Metrics holds Prometheus metrics for authorization outcomes.
type Metrics struct {
	authorizeTotal    *prometheus.CounterVec
	authorizeDuration *prometheus.HistogramVec
}

// NewMetrics creates gateway metrics registered with registerer. A nil
// registerer leaves them unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pap"
	}

	m := &Metrics{
		authorizeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "authorizations_total",
				Help:      "Total number of protected resource requests by outcome",
			},
			[]string{"resource", "outcome"},
		),
		authorizeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "authorization_duration_seconds",
				Help:      "Protected resource request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(m.authorizeTotal, m.authorizeDuration)
	}

	return m
}

// RecordAuthorization records one request outcome.
func (m *Metrics) RecordAuthorization(resource, outcome string, duration time.Duration) {
	m.authorizeTotal.WithLabelValues(resource, outcome).Inc()
	m.authorizeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}
