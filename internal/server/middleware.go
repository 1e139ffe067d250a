package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/royalty/pkg/telemetry"
)

// requestMetrics observes every request under its route template so ids do
// not leak into label values.
func requestMetrics(m *telemetry.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
