// Package metrics provides Prometheus metrics for the news reader.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newsreader"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	// LoadsTotal counts completed feed loads by outcome.
	LoadsTotal *prometheus.CounterVec
	// LoadDuration measures feed load latency.
	LoadDuration prometheus.Histogram
	// Records is the number of records on screen after the last load.
	Records prometheus.Gauge
	// ThumbnailsTotal counts thumbnail lookups by outcome.
	ThumbnailsTotal *prometheus.CounterVec
	// EventsTotal counts published feed events by status.
	EventsTotal *prometheus.CounterVec
}

// New registers every collector on a fresh private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LoadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_loads_total",
			Help:      "Total number of completed feed loads",
		}, []string{"source", "outcome"}),
		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_load_duration_seconds",
			Help:      "Duration of feed loads in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		Records: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_records",
			Help:      "Number of records produced by the last load",
		}),
		ThumbnailsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnail_loads_total",
			Help:      "Total number of thumbnail lookups",
		}, []string{"outcome"}),
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_events_total",
			Help:      "Total number of feed events handed to the publisher",
		}, []string{"status"}),
	}
}

// RecordLoad records one finished feed load.
func (m *Metrics) RecordLoad(source, outcome string, records int, took time.Duration) {
	m.LoadsTotal.WithLabelValues(source, outcome).Inc()
	m.LoadDuration.Observe(took.Seconds())
	m.Records.Set(float64(records))
}

// ThumbnailOutcome records a thumbnail cache hit, miss or error.
func (m *Metrics) ThumbnailOutcome(outcome string) {
	m.ThumbnailsTotal.WithLabelValues(outcome).Inc()
}

// RecordEvent records a publish attempt, status is "ok" or "error".
func (m *Metrics) RecordEvent(status string) {
	m.EventsTotal.WithLabelValues(status).Inc()
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
