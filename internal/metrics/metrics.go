// Package metrics exposes Prometheus collectors for the info-statistics job.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Metrics holds the job's collectors. All methods are safe to call on a
// nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// QueriesTotal counts dataset queries by dataset and outcome.
	QueriesTotal *prometheus.CounterVec

	// RecordsTotal counts records returned by dataset queries.
	RecordsTotal *prometheus.CounterVec

	// QueryDuration observes dataset query latency.
	QueryDuration *prometheus.HistogramVec

	// PublishTotal counts publish attempts by outcome.
	PublishTotal *prometheus.CounterVec

	// RunsTotal counts finished runs by outcome.
	RunsTotal *prometheus.CounterVec

	// RunDuration observes how long runs take.
	RunDuration prometheus.Histogram

	// OutputRows is the number of rows produced by the last run.
	OutputRows prometheus.Gauge

	// LastSuccess is the Unix time of the last successful run.
	LastSuccess prometheus.Gauge
}

// New creates the collectors and registers them with registry.
// A nil registry gets a fresh one with the Go and process collectors.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: registry,
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infostats_dataset_queries_total",
				Help: "Total number of dataset queries",
			},
			[]string{"dataset", "outcome"},
		),
		RecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infostats_dataset_records_total",
				Help: "Total number of records returned by dataset queries",
			},
			[]string{"dataset"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "infostats_dataset_query_duration_seconds",
				Help:    "Dataset query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"dataset"},
		),
		PublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infostats_publish_total",
				Help: "Total number of publish attempts",
			},
			[]string{"outcome"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infostats_runs_total",
				Help: "Total number of finished runs",
			},
			[]string{"outcome"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "infostats_run_duration_seconds",
				Help:    "Run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		OutputRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "infostats_output_rows",
				Help: "Number of rows produced by the last run",
			},
		),
		LastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "infostats_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run",
			},
		),
	}

	registry.MustRegister(
		m.QueriesTotal,
		m.RecordsTotal,
		m.QueryDuration,
		m.PublishTotal,
		m.RunsTotal,
		m.RunDuration,
		m.OutputRows,
		m.LastSuccess,
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveQuery records one dataset query.
func (m *Metrics) ObserveQuery(dataset, outcome string, records int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(dataset, outcome).Inc()
	m.RecordsTotal.WithLabelValues(dataset).Add(float64(records))
	m.QueryDuration.WithLabelValues(dataset).Observe(elapsed.Seconds())
}

// ObservePublish records one publish attempt.
func (m *Metrics) ObservePublish(outcome string) {
	if m == nil {
		return
	}
	m.PublishTotal.WithLabelValues(outcome).Inc()
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(rows int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.RunsTotal.WithLabelValues(OutcomeError).Inc()
		return
	}
	m.RunsTotal.WithLabelValues(OutcomeOK).Inc()
	m.OutputRows.Set(float64(rows))
	m.LastSuccess.SetToCurrentTime()
}
