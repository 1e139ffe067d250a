package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/db"
)

const (
	BatchOutcomeCommitted = "committed"
	BatchOutcomeDryRun    = "dry_run"
	BatchOutcomeSkipped   = "skipped"
	BatchOutcomeFailed    = "failed"
)

const (
	BatchReasonInput             = "input"
	BatchReasonConfiguration     = "configuration"
	BatchReasonDeadlineExceeded  = "deadline_exceeded"
	BatchReasonUniqueViolation   = "unique_violation"
	BatchReasonSerialization     = "serialization_failure"
	BatchReasonLockTimeout       = "db_lock_timeout"
	BatchReasonConcurrentCommit  = "concurrent_commit"
	BatchReasonContractSuspended = "contract_suspended"
	BatchReasonUnknown           = "unknown"
)

// BatchMetrics captures statement batch health.
type BatchMetrics struct {
	runs            *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	outcomes        *prometheus.CounterVec
	failures        *prometheus.CounterVec
	contractLatency prometheus.Observer
}

var (
	batchMetricsOnce sync.Once
	batchMetrics     *BatchMetrics
)

// Batch returns the singleton batch metrics registry.
func Batch() *BatchMetrics {
	return BatchWithConfig(Config{})
}

// BatchWithConfig returns the singleton batch metrics registry using config labels.
func BatchWithConfig(cfg Config) *BatchMetrics {
	batchMetricsOnce.Do(func() {
		batchMetrics = NewBatchMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return batchMetrics
}

// ResetBatchMetricsForTest resets the batch metrics singleton for tests.
func ResetBatchMetricsForTest() {
	batchMetricsOnce = sync.Once{}
	batchMetrics = nil
}

// NewBatchMetrics registers batch collectors on registerer.
func NewBatchMetrics(registerer prometheus.Registerer, cfg Config) *BatchMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "royalty"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "royalty_batch_runs_total",
		Help:        "Statement batch runs by invocation mode.",
		ConstLabels: constLabels,
	}, []string{"mode"})
	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "royalty_batch_run_duration_seconds",
		Help:        "Statement batch wall time.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		ConstLabels: constLabels,
	}, []string{"mode"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "royalty_batch_contract_outcomes_total",
		Help:        "Per contract and author outcomes within statement batches.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "royalty_batch_contract_failures_total",
		Help:        "Per contract failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	contractLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "royalty_batch_contract_duration_seconds",
		Help:        "Time spent on one contract inside a batch.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(runs, runDuration, outcomes, failures, contractLatency)

	return &BatchMetrics{
		runs:            runs,
		runDuration:     runDuration,
		outcomes:        outcomes,
		failures:        failures,
		contractLatency: contractLatency,
	}
}

// ObserveRun records one finished batch.
func (m *BatchMetrics) ObserveRun(mode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(mode).Inc()
	m.runDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// IncOutcome counts one contract and author pair.
func (m *BatchMetrics) IncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

// IncFailure counts a failed contract by reason.
func (m *BatchMetrics) IncFailure(reason string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(BatchOutcomeFailed).Inc()
	m.failures.WithLabelValues(reason).Inc()
}

// IncSkipped counts a contract skipped for reason.
func (m *BatchMetrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(BatchOutcomeSkipped).Inc()
	m.failures.WithLabelValues(reason).Inc()
}

// ObserveContract records per contract latency.
func (m *BatchMetrics) ObserveContract(duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.contractLatency.Observe(duration.Seconds())
}

// ClassifyBatchReason maps batch errors to low-cardinality reasons.
func ClassifyBatchReason(err error) string {
	if err == nil {
		return BatchReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return BatchReasonDeadlineExceeded
	}
	switch calcerr.Classify(err) {
	case calcerr.ClassInput:
		return BatchReasonInput
	case calcerr.ClassConfiguration:
		return BatchReasonConfiguration
	}
	switch {
	case db.IsLockTimeout(err):
		return BatchReasonLockTimeout
	case db.IsSerializationFailure(err):
		return BatchReasonSerialization
	case db.IsDuplicateKeyErr(err):
		return BatchReasonUniqueViolation
	}
	return BatchReasonUnknown
}
