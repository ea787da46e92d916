package eventlog

import "github.com/prometheus/client_golang/prometheus"

// Drop reasons.
const (
	dropOverflow       = "overflow"
	dropSlowSubscriber = "slow_subscriber"
)

// Metrics contains event log metrics.
type Metrics struct {
	recorded    *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	subscribers prometheus.Gauge
}

// NewMetrics creates event log metrics registered with registerer. A nil
// registerer leaves them unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pap"
	}

	m := &Metrics{
		recorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "eventlog",
				Name:      "events_total",
				Help:      "Total number of recorded dashboard events",
			},
			[]string{"class"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "eventlog",
				Name:      "dropped_total",
				Help:      "Total number of dropped dashboard events",
			},
			[]string{"reason"},
		),
		subscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "eventlog",
				Name:      "subscribers",
				Help:      "Number of live event stream subscribers",
			},
		),
	}

	if registerer != nil {
		registerer.MustRegister(m.recorded, m.dropped, m.subscribers)
	}

	return m
}
