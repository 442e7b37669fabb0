// Package observability provides Prometheus metrics for the embedding
// service, the vector store and snapshot persistence.
package observability

import "github.com/prometheus/client_golang/prometheus"

// BackendBuckets covers remote embedding calls from 10ms to 30s.
var BackendBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// SearchBuckets covers in-memory similarity search from 50µs to 1s.
var SearchBuckets = []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

var (
	// CacheRequestsTotal counts query-cache lookups by result (hit or miss).
	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eximrag_embedding_cache_requests_total",
			Help: "Embedding query cache lookups",
		},
		[]string{"result"},
	)

	// CacheEntries tracks the number of entries held in the query cache.
	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eximrag_embedding_cache_entries",
			Help: "Embedding query cache entries",
		},
	)

	// BackendRequestsTotal counts embedding backend calls by operation and outcome.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eximrag_embedding_backend_requests_total",
			Help: "Embedding backend requests",
		},
		[]string{"operation", "status"},
	)

	// BackendLatency records embedding backend latency in seconds.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eximrag_embedding_backend_latency_seconds",
			Help:    "Embedding backend latency",
			Buckets: BackendBuckets,
		},
		[]string{"operation"},
	)

	// SearchDuration records vector search duration, split by whether filters were applied.
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eximrag_vector_search_duration_seconds",
			Help:    "Vector search duration",
			Buckets: SearchBuckets,
		},
		[]string{"filtered"},
	)

	// Documents tracks the number of documents held by the vector store.
	Documents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eximrag_vector_documents",
			Help: "Documents in the vector store",
		},
	)

	// AddSkippedTotal counts documents rejected at add time, by reason.
	AddSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eximrag_vector_add_skipped_total",
			Help: "Documents skipped by add",
		},
		[]string{"reason"},
	)

	// SnapshotOperationsTotal counts save/load/upload/download operations by outcome.
	SnapshotOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eximrag_snapshot_operations_total",
			Help: "Snapshot persistence operations",
		},
		[]string{"operation", "status"},
	)

	// HTTPRequestsTotal counts requests served by the operations server.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eximrag_http_requests_total",
			Help: "Operations HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// StatusLabel maps an error to the status label used by the counters above.
func StatusLabel(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

func init() {
	prometheus.MustRegister(
		CacheRequestsTotal,
		CacheEntries,
		BackendRequestsTotal,
		BackendLatency,
		SearchDuration,
		Documents,
		AddSkippedTotal,
		SnapshotOperationsTotal,
		HTTPRequestsTotal,
	)
}
