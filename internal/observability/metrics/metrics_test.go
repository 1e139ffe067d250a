package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("mode", "commit"),
		attribute.String("contract_id", "456"),
		attribute.String("outcome", "ok"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("mode"))
	assert.Contains(t, keys, attribute.Key("outcome"))
}

func TestRecordCalculation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(Config{ServiceName: "royalty-test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordCalculation(ctx, "dry_run", "ok", 2*time.Millisecond)
	m.RecordCalculation(ctx, "dry_run", "ok", 3*time.Millisecond)
	m.RecordStatementCommitted(ctx, "lifetime", 125.5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	var latencySamples uint64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					totals[md.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					latencySamples += dp.Count
				}
			}
		}
	}
	assert.Equal(t, uint64(2), latencySamples)
	assert.Equal(t, int64(2), totals["royalty_calculations_total"])
	assert.Equal(t, int64(1), totals["royalty_statements_committed_total"])

	var nilMetrics *Metrics
	nilMetrics.RecordCalculation(ctx, "commit", "ok", time.Millisecond)
}
