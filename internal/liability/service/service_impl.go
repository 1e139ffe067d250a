package service

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/royalty/internal/clock"
	contractdomain "github.com/smallbiznis/royalty/internal/contract/domain"
	liabilitydomain "github.com/smallbiznis/royalty/internal/liability/domain"
	statementdomain "github.com/smallbiznis/royalty/internal/statement/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func NewService(p Params) liabilitydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("liability.service"),
		clock: p.Clock,
	}
}

type statementRow struct {
	AuthorID      string
	AuthorPayable decimal.Decimal
}

// Summary adds amounts in Go so totals stay exact whatever the dialect
// does with numeric aggregates.
func (s *Service) Summary(ctx context.Context, req liabilitydomain.SummaryRequest) (*liabilitydomain.Summary, error) {
	if !req.From.IsZero() && !req.To.IsZero() && req.To.Before(req.From) {
		return nil, calcerr.Invalid("to", liabilitydomain.ErrInvalidRange)
	}

	stmt := s.db.WithContext(ctx).
		Model(&statementdomain.Statement{}).
		Select("author_id", "author_payable")
	if !req.From.IsZero() {
		stmt = stmt.Where("period_end >= ?", req.From.UTC())
	}
	if !req.To.IsZero() {
		stmt = stmt.Where("period_end <= ?", req.To.UTC())
	}
	if authorID := strings.TrimSpace(req.AuthorID); authorID != "" {
		stmt = stmt.Where("author_id = ?", authorID)
	}

	var rows []statementRow
	if err := stmt.Order("id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	byAuthor := make(map[string]*liabilitydomain.AuthorLiability)
	totalPayable := decimal.Zero
	for _, row := range rows {
		entry, ok := byAuthor[row.AuthorID]
		if !ok {
			entry = &liabilitydomain.AuthorLiability{AuthorID: row.AuthorID, Payable: decimal.Zero}
			byAuthor[row.AuthorID] = entry
		}
		entry.Statements++
		entry.Payable = entry.Payable.Add(row.AuthorPayable)
		totalPayable = totalPayable.Add(row.AuthorPayable)
	}

	authors := make([]liabilitydomain.AuthorLiability, 0, len(byAuthor))
	for _, entry := range byAuthor {
		authors = append(authors, *entry)
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i].AuthorID < authors[j].AuthorID })

	var contractRows []contractdomain.RoyaltyContract
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&contractRows).Error; err != nil {
		return nil, err
	}

	contracts := make([]liabilitydomain.ContractLiability, 0, len(contractRows))
	totalRemaining := decimal.Zero
	for _, c := range contractRows {
		remaining := c.RemainingAdvance()
		contracts = append(contracts, liabilitydomain.ContractLiability{
			ContractID:       c.ID.String(),
			TitleID:          c.TitleID,
			Status:           c.Status,
			AdvanceAmount:    c.AdvanceAmount,
			AdvanceRecouped:  c.AdvanceRecouped,
			RemainingAdvance: remaining,
		})
		totalRemaining = totalRemaining.Add(remaining)
	}

	s.log.Debug("liability summary built",
		zap.Int("statements", len(rows)),
		zap.Int("authors", len(authors)),
		zap.Int("contracts", len(contracts)),
	)

	return &liabilitydomain.Summary{
		GeneratedAt:           s.clock.Now(),
		Authors:               authors,
		Contracts:             contracts,
		TotalPayable:          totalPayable,
		TotalRemainingAdvance: totalRemaining,
	}, nil
}
