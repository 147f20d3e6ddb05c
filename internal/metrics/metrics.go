package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registered on the default registry through promauto; served by GET /metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelgraph_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelgraph_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// Recommendations counts recommendation requests by mode (user, guest)
	// and outcome (ok or the error kind).
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelgraph_recommendations_total",
			Help: "Recommendation requests by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	GraphQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelgraph_graph_query_duration_seconds",
			Help:    "Latency of graph port calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
		},
		[]string{"operation"},
	)

	GraphQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelgraph_graph_query_errors_total",
			Help: "Graph port calls that failed after retry",
		},
		[]string{"operation"},
	)

	ExplainCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelgraph_explain_cache_total",
			Help: "Explanation cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	// Explanations counts rendered explanations by kind (path, generic).
	Explanations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelgraph_explanations_total",
			Help: "Explanations produced by kind",
		},
		[]string{"kind"},
	)

	EmbeddingsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelgraph_embeddings_loaded",
			Help: "Number of vectors in the loaded embedding artifact",
		},
	)
)
