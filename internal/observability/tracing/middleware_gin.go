package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/royalty/pkg/log/ctxlogger"
	"github.com/smallbiznis/royalty/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "royalty/http"

// GinMiddleware opens a server span per request, continuing any W3C trace
// context sent by the caller. The span is renamed to the matched route once
// routing has happened.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	propagator := otel.GetTextMapPropagator()

	return func(c *gin.Context) {
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName(c.Request.Method + " " + route)
		span.SetAttributes(SafeAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
			attribute.String("request_id", ctxlogger.RequestIDFromContext(ctx)),
			attribute.String("correlation_id", correlation.ExtractCorrelationID(ctx)),
			attribute.String("contract_id", c.GetString("contract_id")),
		)...)

		if status < http.StatusInternalServerError {
			return
		}
		if last := c.Errors.Last(); last != nil {
			span.RecordError(last.Err)
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// spanKeys lists every attribute a request span may carry.
var spanKeys = map[attribute.Key]bool{
	"http.request.method":       true,
	"http.route":                true,
	"http.response.status_code": true,
	"request_id":                true,
	"correlation_id":            true,
	"contract_id":               true,
}

// SafeAttributes drops unknown keys and empty strings so request payloads
// never end up on spans.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := attrs[:0:0]
	for _, a := range attrs {
		if !spanKeys[a.Key] {
			continue
		}
		if a.Value.Type() == attribute.STRING && a.Value.AsString() == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}
