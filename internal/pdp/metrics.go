package pdp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for PDP calls.
type Metrics struct {
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates PDP metrics registered with registerer. A nil
// registerer leaves them unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pap"
	}

	m := &Metrics{
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pdp",
				Name:      "requests_total",
				Help:      "Total number of policy decision point requests",
			},
			[]string{"operation", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pdp",
				Name:      "request_duration_seconds",
				Help:      "Policy decision point request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(m.requestTotal, m.requestDuration)
	}

	m.init()

	return m
}

// init pre-populates label combinations so the series exist from startup.
func (m *Metrics) init() {
	for _, outcome := range []string{outcomeAllow, outcomeDeny, outcomeUndefined, outcomeError} {
		m.requestTotal.WithLabelValues(opDecide, outcome)
	}
	for _, outcome := range []string{outcomeSuccess, outcomeError} {
		m.requestTotal.WithLabelValues(opPutPolicy, outcome)
	}
}

// RecordRequest records one PDP call.
func (m *Metrics) RecordRequest(operation, outcome string, duration time.Duration) {
	m.requestTotal.WithLabelValues(operation, outcome).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
