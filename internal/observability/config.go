package observability

import (
	"strings"

	"github.com/smallbiznis/royalty/internal/config"
	"github.com/spf13/viper"
)

// Config describes how the royalty service reports itself: the identity
// stamped on spans and metrics, and where the OTLP exporters send them.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

const defaultSamplingRatio = 0.1

// LoadConfig layers the standard OTEL_* variables over the application
// config. The traces-specific protocol variable wins over the generic one.
func LoadConfig(cfg config.Config) Config {
	env := viper.New()
	env.AutomaticEnv()

	env.SetDefault("DEPLOYMENT_ENV", cfg.Environment)
	env.SetDefault("SERVICE_VERSION", cfg.AppVersion)
	env.SetDefault("LOG_LEVEL", cfg.LogLevel)
	env.SetDefault("LOG_FORMAT", "json")
	env.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	env.SetDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	env.SetDefault("OTEL_SAMPLING_RATIO", defaultSamplingRatio)
	env.SetDefault("OTEL_ENABLED", cfg.IsProduction())

	protocol := normalized(env.GetString("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"))
	if protocol == "" {
		protocol = normalized(env.GetString("OTEL_EXPORTER_OTLP_PROTOCOL"))
	}

	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "royalty"
	}

	return Config{
		ServiceName:          name,
		Environment:          strings.TrimSpace(env.GetString("DEPLOYMENT_ENV")),
		Version:              strings.TrimSpace(env.GetString("SERVICE_VERSION")),
		LogLevel:             normalized(env.GetString("LOG_LEVEL")),
		LogFormat:            normalized(env.GetString("LOG_FORMAT")),
		OtelEnabled:          env.GetBool("OTEL_ENABLED"),
		OtelExporterEndpoint: strings.TrimSpace(env.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OtelExporterProtocol: protocol,
		OtelSamplingRatio:    samplingRatio(env.GetFloat64("OTEL_SAMPLING_RATIO")),
	}
}

// Debug reports whether gin and gorm should run in their verbose modes.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch normalized(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func normalized(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// samplingRatio keeps the ratio within what the sampler accepts.
func samplingRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
