package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/royalty/internal/config"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

const (
	PushRemoteWrite = "prometheus_remote_write"
	PushGateway     = "prometheus_pushgateway"

	pushTimeout = 5 * time.Second
)

// Pusher ships the batch collectors after a run, for deployments where the
// batch process is not scraped.
type Pusher interface {
	Push(ctx context.Context, gatherer prometheus.Gatherer) error
}

// NewPusher returns nil when pushing is not configured or the configuration
// is unusable; batch runs must not fail because metrics cannot leave.
func NewPusher(cfg config.Config, log *zap.Logger) Pusher {
	exporter := strings.ToLower(strings.TrimSpace(cfg.MetricsPushExporter))
	endpoint := strings.TrimSpace(cfg.MetricsPushEndpoint)
	if exporter == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		log.Warn("metrics push disabled", zap.String("exporter", exporter), zap.Error(err))
		return nil
	}

	switch exporter {
	case PushRemoteWrite:
		return NewRemoteWritePusher(endpoint, cfg.MetricsPushToken)
	case PushGateway:
		return &GatewayPusher{endpoint: endpoint, job: cfg.AppName, environment: cfg.Environment}
	}
	log.Warn("metrics push disabled", zap.String("exporter", exporter))
	return nil
}

// RemoteWritePusher posts a snappy compressed prompb.WriteRequest.
type RemoteWritePusher struct {
	endpoint string
	token    string
	client   *http.Client
	now      func() time.Time
}

func NewRemoteWritePusher(endpoint, token string) *RemoteWritePusher {
	return &RemoteWritePusher{
		endpoint: endpoint,
		token:    strings.TrimSpace(token),
		client:   &http.Client{Timeout: pushTimeout},
		now:      time.Now,
	}
}

func (p *RemoteWritePusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	series := remoteWriteSeries(families, p.now().UnixMilli())
	if len(series) == 0 {
		return nil
	}

	payload, err := proto.Marshal(protoadapt.MessageV2Of(&prompb.WriteRequest{Timeseries: series}))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(snappy.Encode(nil, payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("remote write returned %s", resp.Status)
	}
	return nil
}

// GatewayPusher replaces the job's group on a Pushgateway.
type GatewayPusher struct {
	endpoint    string
	job         string
	environment string
}

func (p *GatewayPusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	job := strings.TrimSpace(p.job)
	if job == "" {
		job = "royalty"
	}
	pusher := push.New(p.endpoint, job).Gatherer(gatherer)
	if env := strings.TrimSpace(p.environment); env != "" {
		pusher = pusher.Grouping("environment", env)
	}
	return pusher.PushContext(ctx)
}

// remoteWriteSeries flattens counters and gauges into one sample each;
// histograms contribute their _sum and _count series.
func remoteWriteSeries(families []*dto.MetricFamily, ts int64) []prompb.TimeSeries {
	var out []prompb.TimeSeries
	add := func(name string, labels []*dto.LabelPair, v float64) {
		ls := make([]prompb.Label, 0, len(labels)+1)
		ls = append(ls, prompb.Label{Name: "__name__", Value: name})
		for _, l := range labels {
			ls = append(ls, prompb.Label{Name: l.GetName(), Value: l.GetValue()})
		}
		sort.Slice(ls, func(i, j int) bool { return ls[i].Name < ls[j].Name })
		out = append(out, prompb.TimeSeries{Labels: ls, Samples: []prompb.Sample{{Value: v, Timestamp: ts}}})
	}

	for _, fam := range families {
		name := fam.GetName()
		for _, m := range fam.GetMetric() {
			switch fam.GetType() {
			case dto.MetricType_COUNTER:
				add(name, m.GetLabel(), m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				add(name, m.GetLabel(), m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				add(name+"_sum", m.GetLabel(), h.GetSampleSum())
				add(name+"_count", m.GetLabel(), float64(h.GetSampleCount()))
			}
		}
	}
	return out
}
