package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/royalty/pkg/log/ctxlogger"
	"github.com/smallbiznis/royalty/pkg/telemetry/correlation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps the last handler error to (error_type, error_code).
	ErrorClassifier func(err error) (string, string)
}

// quietRoutes are polled by probes and scrapers.
var quietRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// previewRoutes compute without persisting; rejected inputs there are the
// normal editing loop of a contract form and only logged at debug.
var previewRoutes = map[string]bool{
	"/v1/royalties/calculate": true,
}

// contextKeys are values handlers attach to the gin context for the log line.
var contextKeys = []string{"contract_id"}

// GinMiddleware tags every request with a request id and a correlation id,
// then writes one access log line once the handler chain has finished.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID = correlation.Sanitize(requestID); requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Set("request_id", requestID)

		ctx := ctxlogger.ContextWithRequestID(c.Request.Context(), requestID)
		if cid := correlation.Sanitize(c.GetHeader(correlation.Header)); cid != "" {
			ctx = correlation.ContextWithCorrelationID(ctx, cid)
		}
		ctx, cid := correlation.EnsureCorrelationID(ctx)
		c.Header(correlation.Header, cid)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		entry := accessEntry{
			route:  c.FullPath(),
			status: c.Writer.Status(),
		}
		if entry.route == "" {
			entry.route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", entry.route),
			zap.Int("status", entry.status),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("resource_id", id))
		}
		for _, key := range contextKeys {
			if v := c.GetString(key); v != "" {
				fields = append(fields, zap.String(key, v))
			}
		}

		if last := c.Errors.Last(); last != nil {
			if cfg.ErrorClassifier != nil {
				entry.errorType, entry.errorCode = cfg.ErrorClassifier(last.Err)
			}
			fields = append(fields,
				zap.String("error_type", entry.errorType),
				zap.String("error_code", entry.errorCode),
			)
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		if ce := ctxlogger.FromContext(c.Request.Context()).Check(entry.level(), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

type accessEntry struct {
	route     string
	status    int
	errorType string
	errorCode string
}

func (e accessEntry) level() zapcore.Level {
	switch {
	case quietRoutes[e.route]:
		return zapcore.DebugLevel
	case e.status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case previewRoutes[e.route] && e.status >= http.StatusBadRequest && e.errorType == "validation_error":
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
