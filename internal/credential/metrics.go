package credential

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for token issuance and verification.
type Metrics struct {
	issueTotal     *prometheus.CounterVec
	verifyTotal    *prometheus.CounterVec
	verifyDuration prometheus.Histogram
}

// NewMetrics creates credential metrics registered with registerer. A nil
// registerer leaves them unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pap"
	}

	m := &Metrics{
		issueTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "credential",
				Name:      "issued_total",
				Help:      "Total number of token issuance attempts",
			},
			[]string{"status", "reason"},
		),
		verifyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "credential",
				Name:      "verifications_total",
				Help:      "Total number of token verifications",
			},
			[]string{"status", "reason"},
		),
		verifyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "credential",
				Name:      "verification_duration_seconds",
				Help:      "Token verification duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05},
			},
		),
	}

	if registerer != nil {
		registerer.MustRegister(m.issueTotal, m.verifyTotal, m.verifyDuration)
	}

	m.issueTotal.WithLabelValues(statusSuccess, "")
	m.verifyTotal.WithLabelValues(statusSuccess, "")

	return m
}

// RecordIssue records one issuance attempt.
func (m *Metrics) RecordIssue(status, reason string) {
	m.issueTotal.WithLabelValues(status, reason).Inc()
}

// RecordVerification records one verification.
func (m *Metrics) RecordVerification(status, reason string, duration time.Duration) {
	m.verifyTotal.WithLabelValues(status, reason).Inc()
	m.verifyDuration.Observe(duration.Seconds())
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Failure reasons used as metric labels.
const (
	reasonMissingAttributes = "missing_attributes"
	reasonSigning           = "signing"
	reasonEmptyToken        = "empty_token"
	reasonExpired           = "expired"
	reasonInvalid           = "invalid"
)
