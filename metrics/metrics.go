// Package metrics defines the prometheus collectors for the data pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pnodeatlas"

// Metrics aggregates the counters the pipeline and its collaborators record.
type Metrics struct {
	PipelineRuns     prometheus.Counter
	PipelineFailures prometheus.Counter
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	EnrichDuration   prometheus.Histogram
	NodesEnriched    prometheus.Gauge
}

// New registers all collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PipelineRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Number of full pipeline runs (cache misses).",
		}),
		PipelineFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "failures_total",
			Help:      "Number of pipeline runs aborted by roster fetch failure.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "cache_hits_total",
			Help:      "Number of fully cached pipeline reads.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "cache_misses_total",
			Help:      "Number of pipeline reads that triggered a recompute.",
		}),
		EnrichDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "enrich_duration_seconds",
			Help:      "Wall-clock duration of one enrichment pass.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		NodesEnriched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "nodes_enriched",
			Help:      "Node count of the most recent enrichment pass.",
		}),
	}

	reg.MustRegister(
		m.PipelineRuns,
		m.PipelineFailures,
		m.CacheHits,
		m.CacheMisses,
		m.EnrichDuration,
		m.NodesEnriched,
	)
	return m
}
