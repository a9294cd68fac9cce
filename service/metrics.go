package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Round outcomes recorded by RoundsTotal.
const (
	outcomeCommitted = "committed"
	outcomeRejected  = "rejected"
	outcomeInternal  = "internal"
)

// Metrics holds the Prometheus metrics of one IntegrityService.
type Metrics struct {
	Registry *prometheus.Registry

	RoundsTotal   *prometheus.CounterVec
	RoundDuration prometheus.Histogram
	LedgerHeight  prometheus.Gauge
}

// NewMetrics creates the metrics on a private registry, so that several
// services can live in one process.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RoundsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Total number of consensus rounds by outcome and failed phase",
		}, []string{"outcome", "phase"}),
		RoundDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Consensus round latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		LedgerHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_height",
			Help:      "Number of blocks in the ledger",
		}),
	}
}
