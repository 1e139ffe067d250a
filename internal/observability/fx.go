package observability

import (
	"github.com/smallbiznis/royalty/internal/observability/metrics"
	"github.com/smallbiznis/royalty/pkg/telemetry"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module wires tracing, OTLP metrics, the prometheus batch collectors with
// their optional pusher, and the HTTP request histograms.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Tracing,
		Config.Metrics,
		telemetry.NewTracerProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.BatchWithConfig,
		metrics.NewPusher,
		func() *telemetry.HTTPMetrics { return telemetry.NewHTTPMetrics(nil) },
	),
	// the tracer provider installs itself globally; force its construction
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

func (c Config) Tracing() telemetry.TracingConfig {
	return telemetry.TracingConfig{
		Enabled:          c.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OtelExporterEndpoint,
		ExporterProtocol: c.OtelExporterProtocol,
		SamplingRatio:    c.OtelSamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.OtelEnabled,
		ExporterEndpoint: c.OtelExporterEndpoint,
		ExporterProtocol: c.OtelExporterProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
