// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the semstore service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// EmbeddingBuckets defines histogram buckets suited for embedding-model
// latencies, ranging from 10ms to 30s.
var EmbeddingBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and handler.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semstore_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "handler"},
	)

	// RequestDuration records HTTP request duration in seconds by method and handler.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semstore_request_duration_seconds",
			Help:    "Request duration",
			Buckets: EmbeddingBuckets,
		},
		[]string{"method", "handler"},
	)

	// DocumentsIngestedTotal counts documents committed to the store.
	DocumentsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "semstore_documents_ingested_total",
			Help: "Documents ingested",
		},
	)

	// EmbeddingDuration records embedding-generation latency in seconds.
	EmbeddingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semstore_embedding_duration_seconds",
			Help:    "Embedding generation latency",
			Buckets: EmbeddingBuckets,
		},
		[]string{"status"},
	)

	// StoreQueryDuration records vector store query latency in seconds.
	StoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semstore_store_query_duration_seconds",
			Help:    "Vector store query latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		DocumentsIngestedTotal,
		EmbeddingDuration,
		StoreQueryDuration,
	)
}
