package waitlist

import (
	"errors"

	"github.com/akeren/raine-waitlist/pkg/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus"
)

type submissionMetrics struct {
	submissions *prometheus.CounterVec
	statsOpen   prometheus.Gauge
}

// newSubmissionMetrics registers the waitlist collectors on reg, reusing collectors that are
// already registered so several services can share one registry. A nil reg yields unregistered collectors.
func newSubmissionMetrics(reg prometheus.Registerer) *submissionMetrics {
	return &submissionMetrics{
		submissions: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_submissions_total",
				Help: "Waitlist submissions by outcome.",
			},
			[]string{"outcome"},
		)),
		statsOpen: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "waitlist_stats_circuit_open",
			Help: "1 while waitlist stats are served as zeros because the store keeps failing.",
		})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) C {
	if reg == nil {
		return collector
	}
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return collector
}

func (m *submissionMetrics) observe(outcome Outcome) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(string(outcome)).Inc()
}

func (m *submissionMetrics) circuitState(state circuitbreaker.CircuitState) {
	if m == nil {
		return
	}
	if state == circuitbreaker.Open {
		m.statsOpen.Set(1)
		return
	}
	m.statsOpen.Set(0)
}
