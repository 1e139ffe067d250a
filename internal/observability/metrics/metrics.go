package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const exportInterval = 10 * time.Second

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

func (c Config) meterName() string {
	if name := strings.TrimSpace(c.ServiceName); name != "" {
		return name
	}
	return "royalty"
}

// Metrics holds the calculation and statement instruments.
type Metrics struct {
	calculations        metric.Int64Counter
	calculationLatency  metric.Float64Histogram
	statementsCommitted metric.Int64Counter
	advanceRecouped     metric.Float64Counter
}

// NewProvider installs the global meter provider. With export disabled a
// noop provider keeps instrument calls free.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(context.Background(), cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(context.Background(), resource.WithAttributes(
		attribute.String("service.name", cfg.meterName()),
		attribute.String("deployment.environment", cfg.Environment),
	))
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.StopHook(provider.Shutdown))
	}
	if log != nil {
		log.Info("metrics exporter started",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}
	return provider, nil
}

// New registers the domain instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(cfg.meterName())
	m := &Metrics{}
	var err error

	if m.calculations, err = meter.Int64Counter("royalty_calculations_total",
		metric.WithDescription("Royalty calculations by invocation mode and outcome.")); err != nil {
		return nil, err
	}
	if m.calculationLatency, err = meter.Float64Histogram("royalty_calculation_duration_seconds",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent inside the calculation engine.")); err != nil {
		return nil, err
	}
	if m.statementsCommitted, err = meter.Int64Counter("royalty_statements_committed_total",
		metric.WithDescription("Statements persisted by the commit step.")); err != nil {
		return nil, err
	}
	if m.advanceRecouped, err = meter.Float64Counter("royalty_advance_recouped_amount",
		metric.WithDescription("Advance recouped by committed statements, in currency units.")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordCalculation counts one engine invocation and observes its latency.
func (m *Metrics) RecordCalculation(ctx context.Context, mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(
		attribute.String("mode", strings.TrimSpace(mode)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)...)
	m.calculations.Add(ctx, 1, attrs)
	m.calculationLatency.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordStatementCommitted counts a persisted statement and the advance it
// recouped.
func (m *Metrics) RecordStatementCommitted(ctx context.Context, tierMode string, recouped float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("tier_mode", strings.TrimSpace(tierMode)))...)
	m.statementsCommitted.Add(ctx, 1, attrs)
	if recouped > 0 {
		m.advanceRecouped.Add(ctx, recouped, attrs)
	}
}

func newExporter(ctx context.Context, protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "", "grpc", "grpc/protobuf":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	}
	return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
}

// labelKeys is the complete label vocabulary; ids never become labels.
var labelKeys = map[attribute.Key]bool{
	"mode":      true,
	"outcome":   true,
	"tier_mode": true,
	"format":    true,
	"reason":    true,
}

// FilterAttributes drops any attribute outside the label vocabulary.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	kept := attrs[:0:0]
	for _, a := range attrs {
		if labelKeys[a.Key] {
			kept = append(kept, a)
		}
	}
	return kept
}
