// Package metrics holds the Prometheus metrics exported by flightgraph.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all flightgraph metrics on a private Prometheus registry.
// A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	// Ingestion metrics
	RecordsIngested *prometheus.CounterVec
	RecordsSkipped  *prometheus.CounterVec
	Reloads         prometheus.Counter

	// Query metrics
	QueryDuration *prometheus.HistogramVec
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec

	// Graph metrics
	GraphSize *prometheus.GaugeVec
}

// NewRegistry initializes a Registry with all metrics and the Go runtime
// collectors registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		RecordsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightgraph_records_ingested_total",
				Help: "Records applied to the graph store by kind",
			},
			[]string{"kind"},
		),
		RecordsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightgraph_records_skipped_total",
				Help: "Records rejected during parsing or ingestion by kind",
			},
			[]string{"kind"},
		),
		Reloads: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "flightgraph_reloads_total",
				Help: "Graph reloads triggered by data file changes",
			},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flightgraph_query_duration_seconds",
				Help:    "Query latency distribution in seconds by operation",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightgraph_cache_hits_total",
				Help: "Query result cache hits by operation",
			},
			[]string{"operation"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightgraph_cache_misses_total",
				Help: "Query result cache misses by operation",
			},
			[]string{"operation"},
		),
		GraphSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flightgraph_graph_entities",
				Help: "Current number of graph entities by type",
			},
			[]string{"entity"},
		),
	}
}

// Gatherer exposes the underlying registry for tests and custom handlers.
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveIngest records applied and skipped counts for one record kind.
func (m *Registry) ObserveIngest(kind string, applied, skipped int) {
	if m == nil {
		return
	}
	m.RecordsIngested.WithLabelValues(kind).Add(float64(applied))
	m.RecordsSkipped.WithLabelValues(kind).Add(float64(skipped))
}

// ObserveQuery records the duration of one query operation.
func (m *Registry) ObserveQuery(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveCache records a cache lookup for one operation.
func (m *Registry) ObserveCache(operation string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(operation).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(operation).Inc()
}

// SetGraphSize publishes the current entity counts.
func (m *Registry) SetGraphSize(airports, airlines, flights int) {
	if m == nil {
		return
	}
	m.GraphSize.WithLabelValues("airports").Set(float64(airports))
	m.GraphSize.WithLabelValues("airlines").Set(float64(airlines))
	m.GraphSize.WithLabelValues("flights").Set(float64(flights))
}

// IncReloads counts one graph reload.
func (m *Registry) IncReloads() {
	if m == nil {
		return
	}
	m.Reloads.Inc()
}
