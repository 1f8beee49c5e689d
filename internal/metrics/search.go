package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shopsearch"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total hybrid searches by outcome",
		},
		[]string{"status"},
	)

	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_stage_duration_seconds",
			Help:      "Duration of each hybrid search stage in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"},
	)

	SearchResultsCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results_count",
			Help:      "Number of hits returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	BackendQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_query_duration_seconds",
			Help:      "Vector backend fused query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"driver", "status"},
	)

	BackendPayloadErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_payload_errors_total",
			Help:      "Points skipped because their payload did not decode",
		},
		[]string{"driver"},
	)
)

var registerSearch sync.Once

// RegisterSearchMetrics registers search and backend collectors on the default registry.
// Safe to call more than once.
func RegisterSearchMetrics() {
	registerSearch.Do(func() {
		prometheus.MustRegister(
			SearchRequestsTotal,
			SearchStageDuration,
			SearchResultsCount,
			BackendQueryDuration,
			BackendPayloadErrorsTotal,
		)
	})
}
