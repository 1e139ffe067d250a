package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetrics_ObserveRequest(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewHTTPMetrics(registry)

	m.ObserveRequest("/v1/royalties/calculate", "POST", 200, 15*time.Millisecond)
	m.ObserveRequest("/v1/royalties/calculate", "POST", 200, 5*time.Millisecond)
	m.ObserveRequest("", "GET", 404, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("/v1/royalties/calculate", "POST", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("unknown", "GET", "404")))

	var nilMetrics *HTTPMetrics
	nilMetrics.ObserveRequest("/health", "GET", 200, time.Millisecond)
}
