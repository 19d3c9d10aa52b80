// Package metrics exposes Prometheus counters for call report ingestion.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the application registry served on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// DeliveriesTotal counts webhook deliveries by final status
// (success, partial, failed, rejected, duplicate).
var DeliveriesTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "callsync",
	Name:      "deliveries_total",
	Help:      "Inbound report email deliveries by outcome",
}, []string{"status"})

// FilesTotal counts report files by detected kind and per-file status.
var FilesTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "callsync",
	Name:      "files_total",
	Help:      "Report files processed by kind and outcome",
}, []string{"kind", "status"})

// CallRowsTotal counts call report rows by outcome.
var CallRowsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "callsync",
	Name:      "call_rows_total",
	Help:      "Call report rows by processing outcome",
}, []string{"outcome"})

// MetricRowsTotal counts summary sheet rows by outcome.
var MetricRowsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "callsync",
	Name:      "metric_rows_total",
	Help:      "User summary rows by processing outcome",
}, []string{"outcome"})

// FileDurationSeconds tracks time spent on one report file.
var FileDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "callsync",
	Name:      "file_duration_seconds",
	Help:      "Time taken to parse and persist one report file",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
})

// AddRows adds n to vec under outcome; zero counts are skipped.
func AddRows(vec *prometheus.CounterVec, outcome string, n int) {
	if n > 0 {
		vec.WithLabelValues(outcome).Add(float64(n))
	}
}
