// Package telemetry provides Prometheus instrumentation for validation runs.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"emcal/domain/validation"
)

// Metrics counts pair outcomes and observes pair latency. It satisfies
// ports.Observer.
type Metrics struct {
	pairsTotal   *prometheus.CounterVec
	pairLatency  prometheus.Histogram
	runsTotal    prometheus.Counter
	runDuration  prometheus.Histogram
}

// New registers the validation metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		pairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emcal",
			Name:      "pairs_total",
			Help:      "Validation pairs by terminal status and skip reason.",
		}, []string{"status", "reason"}),
		pairLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "emcal",
			Name:      "pair_duration_ms",
			Help:      "Per-pair processing latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000},
		}),
		runsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "emcal",
			Name:      "runs_total",
			Help:      "Completed validation runs.",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "emcal",
			Name:      "run_duration_ms",
			Help:      "Whole-run duration in milliseconds.",
			Buckets:   []float64{10, 100, 1000, 10000, 60000, 300000},
		}),
	}
}

// PairDone records one pair completion.
func (m *Metrics) PairDone(status validation.Status, reason validation.SkipReason, durationMs int64) {
	m.pairsTotal.WithLabelValues(string(status), string(reason)).Inc()
	m.pairLatency.Observe(float64(durationMs))
}

// RunDone records one run completion.
func (m *Metrics) RunDone(durationMs int64) {
	m.runsTotal.Inc()
	m.runDuration.Observe(float64(durationMs))
}
