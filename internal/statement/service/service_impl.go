package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	"github.com/smallbiznis/royalty/internal/clock"
	"github.com/smallbiznis/royalty/internal/commitlock"
	contractdomain "github.com/smallbiznis/royalty/internal/contract/domain"
	ledgerdomain "github.com/smallbiznis/royalty/internal/ledger/domain"
	lifetimedomain "github.com/smallbiznis/royalty/internal/lifetime/domain"
	obsmetrics "github.com/smallbiznis/royalty/internal/observability/metrics"
	ownershipdomain "github.com/smallbiznis/royalty/internal/ownership/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	salesdomain "github.com/smallbiznis/royalty/internal/sales/domain"
	statementdomain "github.com/smallbiznis/royalty/internal/statement/domain"
	"github.com/smallbiznis/royalty/internal/statement/render"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/db"
	"github.com/smallbiznis/royalty/pkg/db/option"
	"github.com/smallbiznis/royalty/pkg/db/pagination"
	"github.com/smallbiznis/royalty/pkg/money"
	"github.com/smallbiznis/royalty/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// commitLockTTL bounds how long a crashed committer can block a contract.
const commitLockTTL = 30 * time.Second

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Contracts    contractdomain.Service
	ContractRepo contractdomain.Repository
	Sales        salesdomain.Service
	Ownership    ownershipdomain.Store
	Calculator   royaltydomain.Calculator
	Ledger       ledgerdomain.Service
	Locker       commitlock.Locker
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	contracts    contractdomain.Service
	contractRepo contractdomain.Repository
	sales        salesdomain.Service
	ownership    ownershipdomain.Store
	calculator   royaltydomain.Calculator
	ledger       ledgerdomain.Service
	locker       commitlock.Locker
	metrics      *obsmetrics.Metrics
	statements   repository.Repository[statementdomain.Statement]
}

func New(p Params) statementdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("statement.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		contracts:    p.Contracts,
		contractRepo: p.ContractRepo,
		sales:        p.Sales,
		ownership:    p.Ownership,
		calculator:   p.Calculator,
		ledger:       p.Ledger,
		locker:       p.Locker,
		metrics:      p.Metrics,
		statements:   repository.ProvideStore[statementdomain.Statement](p.DB),
	}
}

func (s *Service) Generate(ctx context.Context, req statementdomain.GenerateRequest) (*statementdomain.GenerateResponse, error) {
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
	contractID, err := snowflake.ParseString(strings.TrimSpace(req.ContractID))
	if err != nil || contractID == 0 {
		return nil, calcerr.Invalid("contract_id", statementdomain.ErrInvalidID)
	}
	authorID := strings.TrimSpace(req.AuthorID)

	if mode == royaltydomain.ModeDryRun {
		result, _, err := s.calculate(ctx, contractID, authorID, period, req.AsOf, mode)
		if err != nil {
			return nil, err
		}
		return &statementdomain.GenerateResponse{Result: result}, nil
	}

	key := commitlock.StatementKey(contractID.String())
	token, ok, err := s.locker.TryLock(ctx, key, commitLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, statementdomain.ErrConcurrentCommit
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("release commit lock", zap.String("key", key), zap.Error(err))
		}
	}()

	result, snapshot, err := s.calculate(ctx, contractID, authorID, period, req.AsOf, mode)
	if err != nil {
		return nil, err
	}
	if snapshot.Status == royaltydomain.ContractStatusTerminated {
		return nil, royaltydomain.ErrContractNotCalculable
	}

	stmt, err := s.commit(ctx, contractID, snapshot, result)
	if err != nil {
		return nil, err
	}
	return &statementdomain.GenerateResponse{Statement: stmt, Result: result}, nil
}

// calculate loads every snapshot the calculator needs. When another author's
// statement for the same contract period is already committed, the advance
// is rewound to where it stood before that period so every author sees the
// same recoupment.
func (s *Service) calculate(
	ctx context.Context,
	contractID snowflake.ID,
	authorID string,
	period catalogdomain.Period,
	asOf time.Time,
	mode royaltydomain.InvocationMode,
) (*royaltydomain.Result, royaltydomain.Contract, error) {
	snapshot, err := s.contracts.Snapshot(ctx, contractID.String())
	if err != nil {
		return nil, royaltydomain.Contract{}, err
	}

	prior, err := s.findPeriodStatement(ctx, contractID, period)
	if err != nil {
		return nil, royaltydomain.Contract{}, err
	}
	if prior != nil {
		snapshot.AdvanceRecouped = prior.PreviouslyRecouped
	}

	set, err := s.ownership.LoadSet(ctx, snapshot.TitleID)
	if err != nil {
		return nil, royaltydomain.Contract{}, err
	}
	var ownership *royaltydomain.OwnershipContext
	switch {
	case set != nil:
		ownership = &royaltydomain.OwnershipContext{AuthorID: authorID, Set: *set}
	case authorID != "":
		return nil, royaltydomain.Contract{}, calcerr.Misconfigured("ownership", ownershipdomain.ErrEmptyOwnership)
	}

	records, err := s.sales.ListInPeriod(ctx, snapshot.TitleID, period)
	if err != nil {
		return nil, royaltydomain.Contract{}, err
	}

	var priorTotals map[catalogdomain.Format]lifetimedomain.Totals
	if snapshot.TierMode == lifetimedomain.ModeLifetime {
		priorTotals, err = s.sales.PriorTotals(ctx, snapshot.TitleID, snapshot.EffectiveFrom, period.Start)
		if err != nil {
			return nil, royaltydomain.Contract{}, err
		}
	}

	result, err := s.calculator.Calculate(ctx, royaltydomain.Request{
		Contract:  snapshot,
		Period:    period,
		AsOf:      asOf,
		Mode:      mode,
		Sales:     records.Sales,
		Returns:   records.Returns,
		Prior:     priorTotals,
		Ownership: ownership,
	})
	if err != nil {
		return nil, royaltydomain.Contract{}, err
	}
	return result, snapshot, nil
}

func (s *Service) commit(ctx context.Context, contractID snowflake.ID, snapshot royaltydomain.Contract, result *royaltydomain.Result) (*statementdomain.Statement, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	stmt := &statementdomain.Statement{
		ID:                 s.genID.Generate(),
		ContractID:         contractID,
		TitleID:            result.TitleID,
		AuthorID:           result.AuthorID,
		PeriodStart:        result.Period.Start,
		PeriodEnd:          result.Period.End,
		TierMode:           result.TierMode,
		GrossRoyalty:       result.GrossRoyalty,
		ReturnsDeduction:   result.ReturnsDeduction,
		PreviouslyRecouped: result.Advance.PreviouslyRecouped,
		Recouped:           result.Advance.ThisPeriodRecoupment,
		RemainingAdvance:   result.Advance.RemainingAdvance,
		NetPayable:         result.NetPayable,
		AuthorPayable:      result.AuthorPayable,
		PeriodKey:          periodKey(contractID, result.Period),
		Checksum:           Checksum(contractID, result.AuthorID, result.Period),
		Result:             datatypes.JSON(payload),
		CreatedAt:          s.clock.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.statements.WithTrx(tx).Exists(ctx, &statementdomain.Statement{Checksum: stmt.Checksum})
		if err != nil {
			return err
		}
		if exists {
			return statementdomain.ErrStatementExists
		}

		applied, err := s.statements.WithTrx(tx).Exists(ctx, &statementdomain.Statement{PeriodKey: stmt.PeriodKey, AdvanceApplied: true})
		if err != nil {
			return err
		}
		stmt.AdvanceApplied = !applied

		if err := s.statements.WithTrx(tx).Create(ctx, stmt); err != nil {
			if constraint, ok := db.UniqueViolation(err); ok {
				if strings.Contains(constraint, "advance_applied") || strings.HasSuffix(constraint, "period_key") {
					return statementdomain.ErrConcurrentCommit
				}
				return statementdomain.ErrStatementExists
			}
			return err
		}

		if !stmt.AdvanceApplied || !stmt.Recouped.IsPositive() {
			return nil
		}

		next := snapshot.AdvanceRecouped.Add(stmt.Recouped)
		swapped, err := s.contractRepo.CompareAndSwapRecouped(ctx, tx, contractID, snapshot.AdvanceRecouped, next)
		if err != nil {
			return err
		}
		if !swapped {
			return statementdomain.ErrConcurrentCommit
		}

		_, err = s.ledger.Post(ctx, tx, ledgerdomain.PostRequest{
			ContractID:    contractID,
			SourceType:    ledgerdomain.SourceTypeStatementRecoupment,
			SourceID:      stmt.ID,
			Amount:        stmt.Recouped,
			RecoupedAfter: next,
			OccurredAt:    stmt.PeriodEnd,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStatementCommitted(ctx, string(stmt.TierMode), stmt.Recouped.InexactFloat64())
	s.log.Info("statement committed",
		zap.String("statement_id", stmt.ID.String()),
		zap.String("contract_id", contractID.String()),
		zap.String("author_id", stmt.AuthorID),
		zap.String("net_payable", money.Fixed(stmt.NetPayable)),
		zap.String("author_payable", money.Fixed(stmt.AuthorPayable)),
		zap.String("recouped", money.Fixed(stmt.Recouped)),
		zap.Bool("advance_applied", stmt.AdvanceApplied),
	)
	return stmt, nil
}

func (s *Service) findPeriodStatement(ctx context.Context, contractID snowflake.ID, period catalogdomain.Period) (*statementdomain.Statement, error) {
	return s.statements.FindOne(ctx,
		&statementdomain.Statement{PeriodKey: periodKey(contractID, period), AdvanceApplied: true},
	)
}

func (s *Service) Get(ctx context.Context, id string) (*statementdomain.Statement, error) {
	statementID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || statementID == 0 {
		return nil, calcerr.Invalid("id", statementdomain.ErrInvalidID)
	}
	stmt, err := s.statements.FindOne(ctx, &statementdomain.Statement{ID: statementID})
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return nil, statementdomain.ErrNotFound
	}
	return stmt, nil
}

func (s *Service) List(ctx context.Context, req statementdomain.ListRequest) (*statementdomain.ListResponse, error) {
	filter := &statementdomain.Statement{AuthorID: strings.TrimSpace(req.AuthorID)}
	if raw := strings.TrimSpace(req.ContractID); raw != "" {
		contractID, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, calcerr.Invalid("contract_id", statementdomain.ErrInvalidID)
		}
		filter.ContractID = contractID
	}

	size := req.Size()
	opts := []option.QueryOption{
		option.WithSortBy(option.WithQuerySortBy("id", "asc", map[string]bool{"id": true})),
		option.WithLimit(size + 1),
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, calcerr.Invalid("page_token", statementdomain.ErrInvalidPageToken)
		}
		after, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, calcerr.Invalid("page_token", statementdomain.ErrInvalidPageToken)
		}
		opts = append(opts, option.WithWhere("id > ?", after))
	}

	items, err := s.statements.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	items, info, err := pagination.Page(items, size, func(st *statementdomain.Statement) string {
		return st.ID.String()
	})
	if err != nil {
		return nil, err
	}
	return &statementdomain.ListResponse{Items: items, PageInfo: info}, nil
}

func (s *Service) Document(ctx context.Context, id string) (*statementdomain.DocumentResponse, error) {
	stmt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var result royaltydomain.Result
	if err := json.Unmarshal(stmt.Result, &result); err != nil {
		return nil, fmt.Errorf("decode statement result: %w", err)
	}

	content, err := render.RenderPDF(render.StatementDocument{
		StatementID: stmt.ID.String(),
		IssuedAt:    stmt.CreatedAt,
		Result:      result,
	})
	if err != nil {
		return nil, err
	}
	return &statementdomain.DocumentResponse{
		FileName: render.FileName(stmt.TitleID, stmt.AuthorID, result.Period),
		Content:  content,
	}, nil
}

// Checksum identifies one statement per contract, author and period.
func Checksum(contractID snowflake.ID, authorID string, period catalogdomain.Period) string {
	return digest(contractID.String(), authorID, period.Start.UTC().Format(time.RFC3339), period.End.UTC().Format(time.RFC3339))
}

func periodKey(contractID snowflake.ID, period catalogdomain.Period) string {
	return digest(contractID.String(), period.Start.UTC().Format(time.RFC3339), period.End.UTC().Format(time.RFC3339))
}

func digest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
