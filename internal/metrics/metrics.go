// Package metrics exposes Prometheus counters for settlement processing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "settlement"

// Metrics groups the collectors of one registry.
type Metrics struct {
	registry *prometheus.Registry

	FilesProcessed  *prometheus.CounterVec
	RecordsBuilt    prometheus.Counter
	RowsSkipped     prometheus.Counter
	DegradedFields  *prometheus.CounterVec
	ProcessDuration prometheus.Histogram
	JobsFinished    *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
}

// New creates a registry with the settlement collectors and the Go runtime
// collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FilesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Settlement files processed, by outcome.",
		}, []string{"outcome"}),
		RecordsBuilt: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_built_total",
			Help:      "Sale records built from settlement rows.",
		}),
		RowsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Rows after the header without an operation id.",
		}),
		DegradedFields: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_fields_total",
			Help:      "Fields that fell back to a default value, by field kind.",
		}, []string{"field"}),
		ProcessDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Time to process one settlement file.",
			Buckets:   prometheus.DefBuckets,
		}),
		JobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Ingestion jobs that reached a final state, by status.",
		}, []string{"status"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveFile records the outcome of processing one file.
func (m *Metrics) ObserveFile(err error, records, skipped, degradedDates, degradedAmounts int, took time.Duration) {
	if m == nil {
		return
	}
	m.ProcessDuration.Observe(took.Seconds())
	if err != nil {
		m.FilesProcessed.WithLabelValues("error").Inc()
		return
	}
	m.FilesProcessed.WithLabelValues("ok").Inc()
	m.RecordsBuilt.Add(float64(records))
	m.RowsSkipped.Add(float64(skipped))
	m.DegradedFields.WithLabelValues("date").Add(float64(degradedDates))
	m.DegradedFields.WithLabelValues("amount").Add(float64(degradedAmounts))
}
