package metrics_test

import (
	"context"
	"doc-registry/internal/metrics"
	"doc-registry/internal/registry"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationsCounter(t *testing.T) {
	m := metrics.New()
	m.IncrementOperation("backup", "ok")
	m.IncrementOperation("backup", "ok")
	m.IncrementOperation("backup", "106")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("backup", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("backup", "106")))
}

func TestRecordCountsEvents(t *testing.T) {
	m := metrics.New()
	m.Record(context.Background(), registry.Event{Type: registry.EventDocumentBackedUp})
	m.Record(context.Background(), registry.Event{Type: registry.EventDocumentDeleted})
	m.Record(context.Background(), registry.Event{Type: registry.EventDocumentBackedUp})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("document-backed-up")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("document-deleted")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.IncrementOperation("backup", "ok")
		m.ObserveRequestLatency("/health", time.Millisecond)
		m.Record(context.Background(), registry.Event{})
		m.RegisterGauge("x", "x", func() float64 { return 0 })
	})
}

func TestHandlerExposesGauge(t *testing.T) {
	m := metrics.New()
	m.RegisterGauge("docregistry_documents", "Documents currently stored", func() float64 { return 3 })
	m.ObserveRequestLatency("/health", 2*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "docregistry_documents 3")
	assert.Contains(t, string(body), "docregistry_http_request_duration_seconds_count{route=\"/health\"} 1")
}
