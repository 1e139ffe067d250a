package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyBatchReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: BatchReasonDeadlineExceeded},
		{name: "input", err: calcerr.Invalid("period", errors.New("invalid_period")), want: BatchReasonInput},
		{name: "configuration", err: fmt.Errorf("contract c-1: %w", calcerr.Misconfigured("tiers", errors.New("tier_gap"))), want: BatchReasonConfiguration},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: BatchReasonLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: BatchReasonSerialization},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: BatchReasonUniqueViolation},
		{name: "unique_violation_sqlite", err: errors.New("constraint failed: UNIQUE constraint failed: statements.checksum (2067)"), want: BatchReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: BatchReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyBatchReason(tc.err))
		})
	}
}

func TestBatchMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewBatchMetrics(registry, Config{ServiceName: "royalty", Environment: "test"})

	m.IncOutcome(BatchOutcomeCommitted)
	m.IncOutcome(BatchOutcomeCommitted)
	m.IncSkipped(BatchReasonContractSuspended)
	m.IncFailure(BatchReasonConfiguration)
	m.ObserveRun("commit", 2*time.Second)
	m.ObserveContract(-time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.outcomes.WithLabelValues(BatchOutcomeCommitted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues(BatchOutcomeSkipped)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues(BatchOutcomeFailed)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failures.WithLabelValues(BatchReasonContractSuspended)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("commit")))
}
