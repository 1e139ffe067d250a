package ctxlogger

import (
	"context"
	"testing"

	"github.com/smallbiznis/royalty/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContext_AddsCorrelationAndRequest(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	ctx := correlation.ContextWithCorrelationID(context.Background(), "01HZZZ")
	ctx = ContextWithRequestID(ctx, "req-1")

	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "01HZZZ", fields["correlation_id"])
		assert.Equal(t, "req-1", fields["request_id"])
		_, hasTrace := fields["trace_id"]
		assert.False(t, hasTrace)
	}
}
