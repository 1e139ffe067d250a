// Package batch generates statements for many contracts at once.
package batch

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	"github.com/smallbiznis/royalty/internal/clock"
	"github.com/smallbiznis/royalty/internal/config"
	contractdomain "github.com/smallbiznis/royalty/internal/contract/domain"
	obsmetrics "github.com/smallbiznis/royalty/internal/observability/metrics"
	ownershipdomain "github.com/smallbiznis/royalty/internal/ownership/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	statementdomain "github.com/smallbiznis/royalty/internal/statement/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/log/ctxlogger"
	"github.com/smallbiznis/royalty/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 8
	pushTimeout        = 5 * time.Second
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Contracts  contractdomain.Service
	Ownership  ownershipdomain.Store
	Statements statementdomain.Service
	AppConfig  config.Config              `optional:"true"`
	Engine     *config.EngineConfigHolder `optional:"true"`
	Metrics    *obsmetrics.BatchMetrics   `optional:"true"`
	Pusher     obsmetrics.Pusher          `optional:"true"`
	Gatherer   prometheus.Gatherer        `optional:"true"`
}

type Runner struct {
	log         *zap.Logger
	clock       clock.Clock
	contracts   contractdomain.Service
	ownership   ownershipdomain.Store
	statements  statementdomain.Service
	engine      *config.EngineConfigHolder
	metrics     *obsmetrics.BatchMetrics
	pusher      obsmetrics.Pusher
	gatherer    prometheus.Gatherer
	concurrency int
}

func New(p Params) *Runner {
	concurrency := p.AppConfig.BatchConcurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Runner{
		log:         p.Log.Named("batch").With(zap.String("component", "batch")),
		clock:       p.Clock,
		contracts:   p.Contracts,
		ownership:   p.Ownership,
		statements:  p.Statements,
		engine:      p.Engine,
		metrics:     p.Metrics,
		pusher:      p.Pusher,
		gatherer:    gatherer,
		concurrency: concurrency,
	}
}

// Run processes every selected contract with bounded concurrency. Once ctx
// is done no further contracts are dispatched; outcomes gathered so far are
// still returned.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	mode := royaltydomain.InvocationMode(strings.ToLower(strings.TrimSpace(req.Mode)))
	if mode == "" {
		mode = royaltydomain.ModeDryRun
	}
	if !mode.Valid() {
		return nil, calcerr.Invalid("mode", royaltydomain.ErrInvalidInvocationMode)
	}
	period, err := catalogdomain.NewPeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, calcerr.Invalid("period", err)
	}
	if mode == royaltydomain.ModeCommit {
		if closesAt := period.End.Add(r.periodGrace()); r.clock.Now().Before(closesAt) {
			return nil, calcerr.Invalid("period_end", ErrPeriodOpen)
		}
	}

	ctx, correlationID := correlation.EnsureCorrelationID(ctx)
	log := ctxlogger.WithContext(ctx, r.log).With(zap.String("mode", string(mode)))
	started := r.clock.Now()

	contracts, err := r.selectContracts(ctx, req.ContractIDs)
	if err != nil {
		return nil, err
	}
	log.Info("batch.run.start",
		zap.Int("contracts", len(contracts)),
		zap.Int("concurrency", r.concurrency),
		zap.Time("period_start", period.Start),
		zap.Time("period_end", period.End),
	)

	var (
		mu       sync.Mutex
		outcomes []Outcome
	)
	collect := func(batch []Outcome) {
		mu.Lock()
		outcomes = append(outcomes, batch...)
		mu.Unlock()
	}

	// A failing contract becomes a failed outcome and never stops the others,
	// so the group only bounds concurrency.
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	cancelled := false
	for _, contractID := range contracts {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		g.Go(func() error {
			collect(r.processContract(ctx, log, contractID, period, req.AsOf, mode))
			return nil
		})
	}
	g.Wait()
	if ctx.Err() != nil {
		cancelled = true
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		if outcomes[i].ContractID != outcomes[j].ContractID {
			return outcomes[i].ContractID < outcomes[j].ContractID
		}
		return outcomes[i].AuthorID < outcomes[j].AuthorID
	})

	report := &Report{
		CorrelationID: correlationID,
		Mode:          mode,
		Period:        period,
		Outcomes:      outcomes,
		Cancelled:     cancelled,
	}
	for _, o := range outcomes {
		switch o.Status {
		case obsmetrics.BatchOutcomeCommitted:
			report.Committed++
		case obsmetrics.BatchOutcomeDryRun:
			report.DryRun++
		case obsmetrics.BatchOutcomeSkipped:
			report.Skipped++
		case obsmetrics.BatchOutcomeFailed:
			report.Failed++
		}
	}

	elapsed := r.clock.Now().Sub(started)
	r.metrics.ObserveRun(string(mode), elapsed)
	fields := []zap.Field{
		zap.Int("committed", report.Committed),
		zap.Int("dry_run", report.DryRun),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Bool("cancelled", report.Cancelled),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if report.Failed > 0 || report.Cancelled {
		log.Warn("batch.run.finish", fields...)
	} else {
		log.Info("batch.run.finish", fields...)
	}
	r.pushMetrics(ctx, log)
	return report, nil
}

// pushMetrics runs even when the batch was cancelled; the push has its own
// deadline.
func (r *Runner) pushMetrics(ctx context.Context, log *zap.Logger) {
	if r.pusher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := r.pusher.Push(pctx, r.gatherer); err != nil {
		log.Warn("batch.metrics.push_failed", zap.Error(err))
	}
}

func (r *Runner) selectContracts(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) > 0 {
		seen := make(map[string]struct{}, len(ids))
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
		return out, nil
	}

	items, err := r.contracts.List(ctx, contractdomain.ListRequest{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, c := range items {
		if c.Status == royaltydomain.ContractStatusTerminated {
			continue
		}
		out = append(out, c.ID.String())
	}
	return out, nil
}

func (r *Runner) processContract(
	ctx context.Context,
	log *zap.Logger,
	contractID string,
	period catalogdomain.Period,
	asOf time.Time,
	mode royaltydomain.InvocationMode,
) []Outcome {
	started := r.clock.Now()
	defer func() { r.metrics.ObserveContract(r.clock.Now().Sub(started)) }()

	log = log.With(zap.String("contract_id", contractID))

	contract, err := r.contracts.Get(ctx, contractID)
	if err != nil {
		return []Outcome{r.fail(log, Outcome{ContractID: contractID}, err)}
	}
	if contract.Status == royaltydomain.ContractStatusSuspended {
		r.metrics.IncSkipped(obsmetrics.BatchReasonContractSuspended)
		log.Info("batch.contract.skipped", zap.String("reason", obsmetrics.BatchReasonContractSuspended))
		return []Outcome{{
			ContractID: contractID,
			Status:     obsmetrics.BatchOutcomeSkipped,
			Reason:     obsmetrics.BatchReasonContractSuspended,
		}}
	}

	authors := []string{""}
	set, err := r.ownership.LoadSet(ctx, contract.TitleID)
	if err != nil {
		return []Outcome{r.fail(log, Outcome{ContractID: contractID}, err)}
	}
	if set != nil {
		authors = authors[:0]
		for _, share := range set.Shares() {
			authors = append(authors, share.AuthorID)
		}
	}

	outcomes := make([]Outcome, 0, len(authors))
	for _, authorID := range authors {
		if ctx.Err() != nil {
			outcomes = append(outcomes, r.fail(log, Outcome{ContractID: contractID, AuthorID: authorID}, ctx.Err()))
			continue
		}
		outcomes = append(outcomes, r.processAuthor(ctx, log, contractID, authorID, period, asOf, mode))
	}
	return outcomes
}

func (r *Runner) processAuthor(
	ctx context.Context,
	log *zap.Logger,
	contractID, authorID string,
	period catalogdomain.Period,
	asOf time.Time,
	mode royaltydomain.InvocationMode,
) Outcome {
	outcome := Outcome{ContractID: contractID, AuthorID: authorID}
	resp, err := r.statements.Generate(ctx, statementdomain.GenerateRequest{
		ContractID:  contractID,
		AuthorID:    authorID,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		AsOf:        asOf,
		Mode:        string(mode),
	})
	if err != nil {
		return r.fail(log, outcome, err)
	}

	outcome.Result = resp.Result
	outcome.Status = obsmetrics.BatchOutcomeDryRun
	if resp.Statement != nil {
		outcome.Status = obsmetrics.BatchOutcomeCommitted
		outcome.StatementID = resp.Statement.ID.String()
	}
	r.metrics.IncOutcome(outcome.Status)
	log.Debug("batch.contract.done",
		zap.String("author_id", authorID),
		zap.String("status", outcome.Status),
		zap.String("statement_id", outcome.StatementID),
	)
	return outcome
}

func (r *Runner) fail(log *zap.Logger, outcome Outcome, err error) Outcome {
	reason := reasonFor(err)
	r.metrics.IncFailure(reason)
	log.Warn("batch.contract.failed",
		zap.String("author_id", outcome.AuthorID),
		zap.String("reason", reason),
		zap.Error(err),
	)
	outcome.Status = obsmetrics.BatchOutcomeFailed
	outcome.Reason = reason
	outcome.Err = err
	outcome.Error = err.Error()
	return outcome
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, statementdomain.ErrConcurrentCommit):
		return obsmetrics.BatchReasonConcurrentCommit
	case errors.Is(err, statementdomain.ErrStatementExists):
		return obsmetrics.BatchReasonUniqueViolation
	default:
		return obsmetrics.ClassifyBatchReason(err)
	}
}

func (r *Runner) periodGrace() time.Duration {
	if r.engine == nil {
		return 0
	}
	return r.engine.Get().PeriodGrace
}
