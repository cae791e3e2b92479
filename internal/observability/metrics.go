// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Collection metrics
	CyclesTotal      *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	TicksWritten     prometheus.Counter
	AssetsRegistered prometheus.Counter
	SnapshotSize     prometheus.Gauge

	// Database metrics
	StoreQueryErrors *prometheus.CounterVec
	ArchiveErrors    prometheus.Counter

	// Stream metrics
	WSClients prometheus.Gauge

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "crypto_tracker"
	}

	return &Metrics{
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "cycles_total",
			Help:      "Total number of collection cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "cycle_duration_seconds",
			Help:      "Collection cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		TicksWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "ticks_written_total",
			Help:      "Total number of price ticks committed",
		}),
		AssetsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "assets_registered_total",
			Help:      "Total number of new assets registered",
		}),
		SnapshotSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "snapshot_size",
			Help:      "Number of valid entries in the last fetched snapshot",
		}),
		StoreQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of store query errors by operation",
		}, []string{"operation"}),
		ArchiveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "archive_errors_total",
			Help:      "Total number of failed tick archive mirrors",
		}),
		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "ws_clients",
			Help:      "Number of connected WebSocket clients",
		}),
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last successful collection cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCycle records a finished collection cycle.
func RecordCycle(status string, durationSeconds float64) {
	DefaultMetrics.CyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
}

// RecordCommit records the counts from a committed cycle.
func RecordCommit(newAssets, ticksWritten int) {
	DefaultMetrics.AssetsRegistered.Add(float64(newAssets))
	DefaultMetrics.TicksWritten.Add(float64(ticksWritten))
	DefaultMetrics.LastSuccessfulCycle.SetToCurrentTime()
}

// RecordSnapshotSize updates the snapshot size gauge.
func RecordSnapshotSize(n int) {
	DefaultMetrics.SnapshotSize.Set(float64(n))
}

// RecordStoreError records a failed store query.
func RecordStoreError(operation string) {
	DefaultMetrics.StoreQueryErrors.WithLabelValues(operation).Inc()
}

// RecordArchiveError records a failed archive mirror.
func RecordArchiveError() {
	DefaultMetrics.ArchiveErrors.Inc()
}

// SetWSClients updates the connected WebSocket clients gauge.
func SetWSClients(n int) {
	DefaultMetrics.WSClients.Set(float64(n))
}
