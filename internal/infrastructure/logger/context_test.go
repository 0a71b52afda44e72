package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fieldMap(entry observer.LoggedEntry) map[string]string {
	out := make(map[string]string, len(entry.Context))
	for _, f := range entry.Context {
		out[f.Key] = f.String
	}
	return out
}

func TestFromContext(t *testing.T) {
	base := zap.NewExample()
	ctx := WithContext(context.Background(), base)
	assert.Same(t, base, FromContext(ctx))

	// missing or mistyped values fall back to a no-op logger
	assert.NotNil(t, FromContext(context.Background()))
	wrong := context.WithValue(context.Background(), loggerKey, "not a logger")
	assert.NotPanics(t, func() { FromContext(wrong).Info("ignored") })
}

func TestEnrichment(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := context.Background()
	log := zap.New(core)

	ctx, log = WithRequestID(ctx, log, "req-1")
	ctx, log = WithProvider(ctx, log, "cj")
	ctx, _ = WithSyncRun(ctx, log, "run-9")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "cj", GetProvider(ctx))
	assert.Equal(t, "run-9", GetSyncRunID(ctx))

	L(ctx).Info("page fetched")

	require.Len(t, recorded.All(), 1)
	fields := fieldMap(recorded.All()[0])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "cj", fields["provider"])
	assert.Equal(t, "run-9", fields["sync_run_id"])
}

func TestGetters_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetProvider(ctx))
	assert.Empty(t, GetSyncRunID(ctx))
}

func TestContextLogger_TraceCorrelation(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	L(ctx).With(zap.String("sku", "A-001")).Warn("variant skipped")
	L(ctx).Debug("detail")

	entries := recorded.All()
	require.Len(t, entries, 2)
	fields := fieldMap(entries[0])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "A-001", fields["sku"])
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, WithTraceContext(context.Background(), base))
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}
	assert.NotPanics(t, func() { cl.Error("nothing attached") })
}
