package metrics

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSanitizePathLabel(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/", "/"},
		{"/metrics", "/metrics"},
		{"/health", "/health"},
		{"/channels/ch-1", "/channels/*"},
		{"/channels/ch-1/cursors", "/channels/*"},
		{"/channels", "/channels"},
		{"/channels?query=param", "/channels"},
		{"", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result := sanitizePathLabel(tt.path)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRecordHTTPRequest_Cardinality(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	// Record requests with high cardinality paths
	m.RecordHTTPRequest(context.Background(), "GET", "/channels/ch-1", http.StatusOK, time.Millisecond, 100)
	m.RecordHTTPRequest(context.Background(), "GET", "/channels/ch-2", http.StatusOK, time.Millisecond, 100)
	m.RecordHTTPRequest(context.Background(), "GET", "/cursors/ch-1", http.StatusOK, time.Millisecond, 100)

	// Check that we have collapsed paths
	// We expect /channels/* and /cursors/*

	countChannels := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/channels/*", "OK"))
	assert.Equal(t, 2.0, countChannels)

	countCursors := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/cursors/*", "OK"))
	assert.Equal(t, 1.0, countCursors)
}

func TestRecordSend_DisableChannelLabel(t *testing.T) {
	// Create metrics with channel label disabled
	reg := prometheus.NewRegistry()
	cfg := Config{EnableChannelLabel: false}
	m := newMetricsWithRegistry(reg, cfg)

	m.RecordSend("ch-1", "ok")
	m.RecordSend("ch-2", "ok")

	// Should align to channel="*"
	count := testutil.ToFloat64(m.channelSendsTotal.WithLabelValues("*", "ok"))
	assert.Equal(t, 2.0, count)
}

func TestRecordReceive_DisableChannelLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := Config{EnableChannelLabel: false}
	m := newMetricsWithRegistry(reg, cfg)

	m.RecordReceive("ch-1", "auth_failure")
	m.RecordReceive("ch-2", "auth_failure")

	count := testutil.ToFloat64(m.channelAuthFailuresTotal.WithLabelValues("*"))
	assert.Equal(t, 2.0, count)
}

