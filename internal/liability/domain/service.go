// Package domain describes what the publisher owes: committed author
// payables and advances not yet earned out.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
)

type Service interface {
	Summary(ctx context.Context, req SummaryRequest) (*Summary, error)
}

// SummaryRequest narrows the statements counted. Statements are included
// when their period ends inside [From, To]; zero bounds are open.
type SummaryRequest struct {
	From     time.Time `form:"from" time_format:"2006-01-02"`
	To       time.Time `form:"to" time_format:"2006-01-02"`
	AuthorID string    `form:"author_id"`
}

type AuthorLiability struct {
	AuthorID   string          `json:"author_id"`
	Statements int             `json:"statements"`
	Payable    decimal.Decimal `json:"payable"`
}

type ContractLiability struct {
	ContractID       string                       `json:"contract_id"`
	TitleID          string                       `json:"title_id"`
	Status           royaltydomain.ContractStatus `json:"status"`
	AdvanceAmount    decimal.Decimal              `json:"advance_amount"`
	AdvanceRecouped  decimal.Decimal              `json:"advance_recouped"`
	RemainingAdvance decimal.Decimal              `json:"remaining_advance"`
}

type Summary struct {
	GeneratedAt           time.Time           `json:"generated_at"`
	Authors               []AuthorLiability   `json:"authors"`
	Contracts             []ContractLiability `json:"contracts"`
	TotalPayable          decimal.Decimal     `json:"total_payable"`
	TotalRemainingAdvance decimal.Decimal     `json:"total_remaining_advance"`
}

var ErrInvalidRange = errors.New("invalid_range")
