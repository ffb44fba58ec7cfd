// Package metrics exposes Prometheus instrumentation for the knowledge
// pipeline: ingestion runs, search queries, and context assembly stages.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "helicon"

// Metrics holds every collector the service registers. A single instance is
// created at startup and shared across services.
type Metrics struct {
	registry *prometheus.Registry

	IngestRuns     *prometheus.CounterVec
	IngestChunks   prometheus.Counter
	IngestDuration prometheus.Histogram

	SearchQueries        *prometheus.CounterVec
	ContextAssemblies    prometheus.Counter
	ContextStageDegraded *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry, including the
// standard Go runtime collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Knowledge source ingestion runs by outcome.",
		}, []string{"outcome"}),
		IngestChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Chunks embedded and stored by ingestion runs.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Wall time of one ingestion run.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		SearchQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Vector search queries by kind (knowledge or memory).",
		}, []string{"kind"}),
		ContextAssemblies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_assemblies_total",
			Help:      "Context bundles assembled.",
		}),
		ContextStageDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_stage_degraded_total",
			Help:      "Context assembly stages that degraded instead of contributing.",
		}, []string{"stage"}),
	}

	registry.MustRegister(
		m.IngestRuns,
		m.IngestChunks,
		m.IngestDuration,
		m.SearchQueries,
		m.ContextAssemblies,
		m.ContextStageDegraded,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// NopMetrics returns a Metrics instance backed by a throwaway registry,
// for tests and for services constructed without instrumentation.
func NopMetrics() *Metrics {
	return New()
}
