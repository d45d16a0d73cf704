package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the dashboard
type Metrics struct {
	Derivations        *prometheus.CounterVec
	DerivationDuration *prometheus.HistogramVec
	DerivedRows        *prometheus.HistogramVec
	DatasetRows        prometheus.Gauge
}

// New creates the metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Derivations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gapdash_derivations_total",
			Help: "Total number of chart derivations, by chart",
		}, []string{"chart"}),
		DerivationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gapdash_derivation_duration_seconds",
			Help:    "Time spent deriving chart data",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"chart"}),
		DerivedRows: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gapdash_derived_rows",
			Help:    "Rows in each derived table",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"chart"}),
		DatasetRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "gapdash_dataset_rows",
			Help: "Rows in the loaded dataset",
		}),
	}
}

// ObserveDerivation records one derivation of chart.
func (m *Metrics) ObserveDerivation(chart string, rows int, elapsed time.Duration) {
	m.Derivations.WithLabelValues(chart).Inc()
	m.DerivationDuration.WithLabelValues(chart).Observe(elapsed.Seconds())
	m.DerivedRows.WithLabelValues(chart).Observe(float64(rows))
}

// SetDatasetRows records the size of the loaded dataset.
func (m *Metrics) SetDatasetRows(n int) {
	m.DatasetRows.Set(float64(n))
}
