package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that every collector is visible in the
// default registry once it has been observed.
func TestMetricsRegistered(t *testing.T) {
	CacheRequestsTotal.WithLabelValues("hit").Inc()
	CacheEntries.Set(1)
	BackendRequestsTotal.WithLabelValues("embed", StatusOK).Inc()
	BackendLatency.WithLabelValues("embed").Observe(0.1)
	SearchDuration.WithLabelValues("false").Observe(0.001)
	Documents.Set(3)
	AddSkippedTotal.WithLabelValues("dimension_mismatch").Inc()
	SnapshotOperationsTotal.WithLabelValues("save", StatusOK).Inc()
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "2xx").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	expected := map[string]bool{
		"eximrag_embedding_cache_requests_total":   false,
		"eximrag_embedding_cache_entries":          false,
		"eximrag_embedding_backend_requests_total": false,
		"eximrag_embedding_backend_latency_seconds": false,
		"eximrag_vector_search_duration_seconds":   false,
		"eximrag_vector_documents":                 false,
		"eximrag_vector_add_skipped_total":         false,
		"eximrag_snapshot_operations_total":        false,
		"eximrag_http_requests_total":              false,
	}
	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if StatusLabel(nil) != StatusOK {
		t.Error("nil error should map to ok")
	}
	if StatusLabel(errors.New("boom")) != StatusError {
		t.Error("non-nil error should map to error")
	}
}

func TestCounterIncrements(t *testing.T) {
	before := counterValue(t, SnapshotOperationsTotal, "load", StatusError)
	SnapshotOperationsTotal.WithLabelValues("load", StatusError).Inc()
	after := counterValue(t, SnapshotOperationsTotal, "load", StatusError)
	if after-before != 1 {
		t.Errorf("expected delta 1, got %f", after-before)
	}
}

func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
