package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for health probes.
type Metrics struct {
	probesTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

// NewMetrics creates health metrics registered with registerer. A nil
// registerer leaves them unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pap"
	}

	m := &Metrics{
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "probes_total",
				Help:      "Total number of health probes served",
			},
			[]string{"type"},
		),
		checkStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Current health check status (1=healthy, 0=unhealthy)",
			},
			[]string{"check"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(m.probesTotal, m.checkStatus)
	}

	for _, probe := range []string{"liveness", "readiness"} {
		m.probesTotal.WithLabelValues(probe)
	}

	return m
}

// RecordProbe counts one probe.
func (m *Metrics) RecordProbe(probe string) {
	m.probesTotal.WithLabelValues(probe).Inc()
}

// SetCheckStatus records the latest result of a check.
func (m *Metrics) SetCheckStatus(check string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	m.checkStatus.WithLabelValues(check).Set(value)
}
