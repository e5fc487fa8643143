package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerchat/channelengine/internal/ledgerstore"
	"github.com/ledgerchat/channelengine/internal/metrics"
	"github.com/ledgerchat/channelengine/internal/tracing"
)

// InstrumentedStore wraps a ledgerstore.Store, recording a trace span and
// a ledger_operation_* metric around every Publish/Fetch call.
type InstrumentedStore struct {
	inner   ledgerstore.Store
	backend string
	tracer  *tracing.Tracer
	metrics *metrics.Metrics
}

// WrapStore returns inner instrumented with tracing and metrics, labeled
// with backend (e.g. "redis", "s3") for metric cardinality.
func WrapStore(inner ledgerstore.Store, backend string, tracer *tracing.Tracer, m *metrics.Metrics) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, backend: backend, tracer: tracer, metrics: m}
}

func (s *InstrumentedStore) Publish(ctx context.Context, slot []byte, payload []byte) error {
	ctx, span := s.tracer.StartLedgerSpan(ctx, "publish", s.backend)
	defer span.End()

	start := time.Now()
	err := s.inner.Publish(ctx, slot, payload)
	s.metrics.RecordLedgerOperation(ctx, "publish", s.backend, time.Since(start))
	if err != nil {
		s.metrics.RecordLedgerError(ctx, "publish", s.backend, errorType(err))
	}
	return err
}

func (s *InstrumentedStore) Fetch(ctx context.Context, slot []byte) (*ledgerstore.Record, bool, error) {
	ctx, span := s.tracer.StartLedgerSpan(ctx, "fetch", s.backend)
	defer span.End()

	start := time.Now()
	record, ok, err := s.inner.Fetch(ctx, slot)
	s.metrics.RecordLedgerOperation(ctx, "fetch", s.backend, time.Since(start))
	if err != nil {
		s.metrics.RecordLedgerError(ctx, "fetch", s.backend, errorType(err))
	}
	return record, ok, err
}

func errorType(err error) string {
	if errors.Is(err, ledgerstore.ErrTransportFailure) {
		return "transport_failure"
	}
	return "unknown"
}
