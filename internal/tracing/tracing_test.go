package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerchat/channelengine/internal/config"
)

func TestSetup_NoExporterReturnsNoopTracer(t *testing.T) {
	tracer, shutdown, err := Setup(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	require.NotNil(t, tracer)
	assert.NoError(t, shutdown(context.Background()))

	_, span := tracer.StartLedgerSpan(context.Background(), "publish", "redis")
	span.End()
}

func TestSetup_StdoutExporter(t *testing.T) {
	tracer, shutdown, err := Setup(context.Background(), config.TracingConfig{Exporter: "stdout"})
	require.NoError(t, err)
	defer shutdown(context.Background())

	_, span := tracer.StartChannelSpan(context.Background(), "send", "general")
	span.End()
}

func TestSetup_UnknownExporterErrors(t *testing.T) {
	_, _, err := Setup(context.Background(), config.TracingConfig{Exporter: "bogus"})
	assert.Error(t, err)
}

func TestStartLedgerSpan_AttachesBackendAttribute(t *testing.T) {
	tracer, shutdown, err := Setup(context.Background(), config.TracingConfig{Exporter: "stdout"})
	require.NoError(t, err)
	defer shutdown(context.Background())

	ctx, span := tracer.StartLedgerSpan(context.Background(), "fetch", "s3")
	defer span.End()
	assert.NotNil(t, ctx)
	assert.True(t, span.SpanContext().IsValid())
}
