// Package tracing wires OpenTelemetry spans around the engine's two
// externally-observable operations — a ledger round trip and a
// Group.Send/ReceiveNextFor call — with a selectable exporter: OTLP/gRPC
// for a collector, stdout for local development, or Jaeger for its own
// backend.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ledgerchat/channelengine/internal/config"
)

// Tracer is the span source the rest of the engine uses; wraps
// otel.Tracer so callers don't import the otel package directly.
type Tracer struct {
	tracer trace.Tracer
}

// Setup configures a global TracerProvider from cfg and returns a Tracer
// plus a shutdown func. cfg.Exporter == "none" (or unset) returns a
// no-op tracer backed by otel's default no-op provider.
func Setup(ctx context.Context, cfg config.TracingConfig) (*Tracer, func(context.Context) error, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "channelengine"
	}

	if cfg.Exporter == "" || cfg.Exporter == "none" {
		return &Tracer{tracer: otel.Tracer(serviceName)}, func(context.Context) error { return nil }, nil
	}

	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case "otlp":
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "jaeger":
		exporter, err = jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
	default:
		return nil, nil, fmt.Errorf("tracing: unknown exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: create %s exporter: %w", cfg.Exporter, err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return &Tracer{tracer: provider.Tracer(serviceName)}, provider.Shutdown, nil
}

// StartLedgerSpan wraps a ledgerstore.Store operation.
func (t *Tracer) StartLedgerSpan(ctx context.Context, operation, backend string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "ledger."+operation, trace.WithAttributes(
		attribute.String("ledger.backend", backend),
	))
}

// StartChannelSpan wraps a Group.Send/ReceiveNextFor call.
func (t *Tracer) StartChannelSpan(ctx context.Context, operation, channelID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "channel."+operation, trace.WithAttributes(
		attribute.String("channel.id", channelID),
	))
}
