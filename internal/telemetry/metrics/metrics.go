// Package metrics defines the Prometheus counters/histograms/gauges
// exposed at /metrics, an ambient concern carried regardless of spec.md's
// Non-goals (which scope out a metrics dashboard/UI, not instrumentation
// itself).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	JobsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingestor",
		Name:      "jobs_processed_total",
		Help:      "Jobs processed, by terminal status.",
	}, []string{"status"})

	ChunksProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingestor",
		Name:      "chunks_processed_total",
		Help:      "Chunks processed, by outcome.",
	}, []string{"outcome"})

	ChunkLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ingestor",
		Name:      "chunk_pipeline_seconds",
		Help:      "Per-chunk analyze+embed+persist latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ingestor",
		Name:      "queue_depth",
		Help:      "Jobs currently queued or retrying.",
	})

	CleanupActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingestor",
		Name:      "cleanup_actions_total",
		Help:      "Rows affected by a Cleanup Service scan, by scan name.",
	}, []string{"scan"})
)

// Register adds every collector to reg. Call once at process startup.
func Register(reg *prometheus.Registry) {
	reg.MustRegister(JobsProcessed, ChunksProcessed, ChunkLatency, QueueDepth, CleanupActions)
}
