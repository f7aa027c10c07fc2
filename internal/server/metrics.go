// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// queryRequestsTotal counts completed /api/query requests, partitioned
	// by outcome: "ok" or "error".
	queryRequestsTotal *prometheus.CounterVec

	// queryDurationSeconds records the wall-clock duration of each
	// /api/query request, embedding included.
	queryDurationSeconds prometheus.Histogram

	// ingestRequestsTotal counts completed /api/documents requests,
	// partitioned by outcome: "ok" or "error".
	ingestRequestsTotal *prometheus.CounterVec

	// ingestDurationSeconds records the wall-clock duration of each
	// /api/documents request across all embed/insert batches.
	ingestDurationSeconds prometheus.Histogram

	// ingestChunksTotal counts chunks successfully submitted for indexing.
	ingestChunksTotal prometheus.Counter
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		queryRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ravana",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of /api/query requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		queryDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ravana",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/query requests, embedding included.",
			Buckets:   prometheus.DefBuckets,
		}),

		ingestRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ravana",
			Subsystem: "ingest",
			Name:      "requests_total",
			Help:      "Total number of /api/documents ingest requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		ingestDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ravana",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/documents requests across all embed/insert batches.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),

		ingestChunksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ravana",
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Total number of chunks submitted for indexing.",
		}),
	}
}
