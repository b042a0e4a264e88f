package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"SectorPulse/internal/model"
)

// Metrics holds all Prometheus metrics for the analysis runs.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: result=ok|error
	RunDuration     prometheus.Histogram
	PartialFailures *prometheus.CounterVec // labels: kind
	FetchErrors     prometheus.Counter
	HotInstruments  prometheus.Gauge
	Instruments     prometheus.Gauge
	LastRunUnix     prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the metrics on a private registry so several instances can
// coexist in tests.
func New() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sectorpulse_runs_total",
			Help: "Analysis runs by result",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sectorpulse_run_duration_seconds",
			Help:    "Wall time of a full run from fetch to publish",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		PartialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sectorpulse_partial_failures_total",
			Help: "Instruments left out of a snapshot, by kind",
		}, []string{"kind"}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sectorpulse_fetch_errors_total",
			Help: "Instruments whose history could not be fetched",
		}),
		HotInstruments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sectorpulse_hot_instruments",
			Help: "Size of the top-N list in the latest snapshot",
		}),
		Instruments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sectorpulse_instruments",
			Help: "Records in the latest snapshot",
		}),
		LastRunUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sectorpulse_last_run_timestamp_seconds",
			Help: "generated_at of the latest snapshot",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PartialFailures,
		m.FetchErrors,
		m.HotInstruments,
		m.Instruments,
		m.LastRunUnix,
	)
	return m
}

// ObserveSnapshot updates the gauges and failure counters from one snapshot.
func (m *Metrics) ObserveSnapshot(snap *model.Snapshot) {
	m.HotInstruments.Set(float64(len(snap.TopN)))
	m.Instruments.Set(float64(len(snap.Records)))
	m.LastRunUnix.Set(float64(snap.GeneratedAt.Unix()))
	for _, f := range snap.Failures {
		m.PartialFailures.WithLabelValues(f.Kind).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
