package metrics

import (
	"context"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

var (
	// defaultRegistry is the default Prometheus registry
	defaultRegistry = prometheus.DefaultRegisterer
)

// Config holds metrics configuration.
type Config struct {
	EnableChannelLabel bool
}

// Metrics holds all application metrics.
type Metrics struct {
	config   Config
	registry prometheus.Registerer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	ledgerOperationsTotal   *prometheus.CounterVec
	ledgerOperationDuration *prometheus.HistogramVec
	ledgerOperationErrors   *prometheus.CounterVec

	channelSendsTotal           *prometheus.CounterVec
	channelReceivesTotal        *prometheus.CounterVec
	channelAuthFailuresTotal    *prometheus.CounterVec
	channelChunkFragmentsTotal  *prometheus.CounterVec
	cipherOperationDuration     *prometheus.HistogramVec
	nonceDiscoveryProbesTotal   *prometheus.CounterVec
	nonceDiscoveryDuration      *prometheus.HistogramVec

	activeConnections prometheus.Gauge
	goroutines        prometheus.Gauge
	memoryAllocBytes  prometheus.Gauge
	memorySysBytes    prometheus.Gauge

	hardwareAccelerationEnabled *prometheus.GaugeVec
}

// NewMetrics creates a new metrics instance with default configuration.
func NewMetrics() *Metrics {
	return NewMetricsWithConfig(Config{EnableChannelLabel: true})
}

// NewMetricsWithConfig creates a new metrics instance with the provided configuration.
func NewMetricsWithConfig(cfg Config) *Metrics {
	return newMetricsWithRegistry(defaultRegistry, cfg)
}

// NewMetricsWithRegistry creates a new metrics instance with a custom registry.
// This is useful for testing to avoid metric registration conflicts.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetricsWithRegistry(reg, Config{EnableChannelLabel: true})
}

// newMetricsWithRegistry creates a new metrics instance with a custom registry (for testing).
func newMetricsWithRegistry(reg prometheus.Registerer, cfg Config) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		config:   cfg,
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of admin API HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Admin API HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		ledgerOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Total number of ledger store operations",
			},
			[]string{"operation", "backend"},
		),
		ledgerOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Ledger store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		ledgerOperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operation_errors_total",
				Help: "Total number of ledger store operation errors",
			},
			[]string{"operation", "backend", "error_type"},
		),
		channelSendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "channel_sends_total",
				Help: "Total number of messages sent on a channel",
			},
			[]string{"channel", "result"},
		),
		channelReceivesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "channel_receives_total",
				Help: "Total number of messages received on a channel",
			},
			[]string{"channel", "result"},
		),
		channelAuthFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "channel_auth_failures_total",
				Help: "Total number of AEAD authentication failures encountered on receive",
			},
			[]string{"channel"},
		),
		channelChunkFragmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "channel_chunk_fragments_total",
				Help: "Total number of wire chunks produced or reassembled",
			},
			[]string{"channel", "direction"}, // direction: "send" or "receive"
		),
		cipherOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cipher_operation_duration_seconds",
				Help:    "AEAD seal/open duration in seconds",
				Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
			},
			[]string{"operation"}, // "seal" or "open"
		),
		nonceDiscoveryProbesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nonce_discovery_probes_total",
				Help: "Total number of ledger probes issued during cursor recovery",
			},
			[]string{"channel"},
		),
		nonceDiscoveryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nonce_discovery_duration_seconds",
				Help:    "Duration of a full cursor-recovery probe run",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"channel"},
		),
		activeConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_connections",
				Help: "Number of active admin API connections",
			},
		),
		goroutines: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "goroutines_total",
				Help: "Number of goroutines",
			},
		),
		memoryAllocBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_alloc_bytes",
				Help: "Number of bytes allocated and not yet freed",
			},
		),
		memorySysBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_sys_bytes",
				Help: "Total bytes of memory obtained from OS",
			},
		),
		hardwareAccelerationEnabled: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hardware_acceleration_enabled",
				Help: "Hardware acceleration status (1=enabled, 0=disabled)",
			},
			[]string{"type"},
		),
	}
}

// SetHardwareAccelerationStatus sets the hardware acceleration status metric.
func (m *Metrics) SetHardwareAccelerationStatus(accelType string, enabled bool) {
	val := 0.0
	if enabled {
		val = 1.0
	}
	m.hardwareAccelerationEnabled.WithLabelValues(accelType).Set(val)
}

// GetHardwareAccelerationEnabledMetric returns the hardware acceleration enabled metric (for testing).
func (m *Metrics) GetHardwareAccelerationEnabledMetric() *prometheus.GaugeVec {
	return m.hardwareAccelerationEnabled
}

// channelLabel reduces a channel identifier to a stable label, or "*" when
// per-channel cardinality is disabled.
func (m *Metrics) channelLabel(channel string) string {
	if !m.config.EnableChannelLabel {
		return "*"
	}
	return channel
}

// RecordHTTPRequest records an admin API HTTP request metric.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration, bytes int64) {
	label := sanitizePathLabel(path)
	labels := prometheus.Labels{"method": method, "path": label, "status": http.StatusText(status)}

	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.httpRequestsTotal.With(labels).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.httpRequestsTotal.With(labels).Inc()
		}

		if observer, ok := m.httpRequestDuration.With(labels).(prometheus.ExemplarObserver); ok {
			observer.ObserveWithExemplar(duration.Seconds(), exemplar)
		} else {
			m.httpRequestDuration.With(labels).Observe(duration.Seconds())
		}
	} else {
		m.httpRequestsTotal.With(labels).Inc()
		m.httpRequestDuration.With(labels).Observe(duration.Seconds())
	}
}

// sanitizePathLabel reduces high-cardinality paths to stable labels.
// Examples:
// "/metrics" => "/metrics"
// "/channels/<id>/cursors" => "/channels/*"
func sanitizePathLabel(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segs) <= 1 {
		return "/" + segs[0]
	}
	return "/" + segs[0] + "/*"
}

// RecordLedgerOperation records a ledger store operation metric.
func (m *Metrics) RecordLedgerOperation(ctx context.Context, operation, backend string, duration time.Duration) {
	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.ledgerOperationsTotal.WithLabelValues(operation, backend).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.ledgerOperationsTotal.WithLabelValues(operation, backend).Inc()
		}

		if observer, ok := m.ledgerOperationDuration.WithLabelValues(operation, backend).(prometheus.ExemplarObserver); ok {
			observer.ObserveWithExemplar(duration.Seconds(), exemplar)
		} else {
			m.ledgerOperationDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
		}
	} else {
		m.ledgerOperationsTotal.WithLabelValues(operation, backend).Inc()
		m.ledgerOperationDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
	}
}

// RecordLedgerError records a ledger store operation error.
func (m *Metrics) RecordLedgerError(ctx context.Context, operation, backend, errorType string) {
	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.ledgerOperationErrors.WithLabelValues(operation, backend, errorType).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.ledgerOperationErrors.WithLabelValues(operation, backend, errorType).Inc()
		}
	} else {
		m.ledgerOperationErrors.WithLabelValues(operation, backend, errorType).Inc()
	}
}

// RecordSend records an outgoing message publish, result is "ok" or "error".
func (m *Metrics) RecordSend(channel, result string) {
	m.channelSendsTotal.WithLabelValues(m.channelLabel(channel), result).Inc()
}

// RecordReceive records an inbound message read, result is "ok", "auth_failure" or "error".
func (m *Metrics) RecordReceive(channel, result string) {
	m.channelReceivesTotal.WithLabelValues(m.channelLabel(channel), result).Inc()
	if result == "auth_failure" {
		m.channelAuthFailuresTotal.WithLabelValues(m.channelLabel(channel)).Inc()
	}
}

// RecordChunkFragment records one wire chunk produced (direction "send") or
// reassembled (direction "receive").
func (m *Metrics) RecordChunkFragment(channel, direction string) {
	m.channelChunkFragmentsTotal.WithLabelValues(m.channelLabel(channel), direction).Inc()
}

// RecordCipherOperation records an AEAD seal/open duration.
func (m *Metrics) RecordCipherOperation(operation string, duration time.Duration) {
	m.cipherOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordNonceDiscovery records one full cursor-recovery probe run.
func (m *Metrics) RecordNonceDiscovery(channel string, probes int, duration time.Duration) {
	m.nonceDiscoveryProbesTotal.WithLabelValues(m.channelLabel(channel)).Add(float64(probes))
	m.nonceDiscoveryDuration.WithLabelValues(m.channelLabel(channel)).Observe(duration.Seconds())
}

// UpdateSystemMetrics updates system-level metrics (goroutines, memory).
func (m *Metrics) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.memoryAllocBytes.Set(float64(memStats.Alloc))
	m.memorySysBytes.Set(float64(memStats.Sys))
}

// IncrementActiveConnections increments the active connections counter.
func (m *Metrics) IncrementActiveConnections() {
	m.activeConnections.Inc()
}

// DecrementActiveConnections decrements the active connections counter.
func (m *Metrics) DecrementActiveConnections() {
	m.activeConnections.Dec()
}

// StartSystemMetricsCollector starts a goroutine that periodically updates system metrics.
func (m *Metrics) StartSystemMetricsCollector() {
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		for range ticker.C {
			m.UpdateSystemMetrics()
		}
	}()
}

// Handler returns the HTTP handler for the metrics endpoint, serving
// whatever registry this instance registered into (the default one in
// production, an isolated one in tests).
func (m *Metrics) Handler() http.Handler {
	if gatherer, ok := m.registry.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// getExemplar extracts trace ID from context and returns prometheus Labels for exemplar.
func getExemplar(ctx context.Context) prometheus.Labels {
	if ctx == nil {
		return nil
	}
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if spanContext.IsValid() {
		return prometheus.Labels{"trace_id": spanContext.TraceID().String()}
	}
	return nil
}
