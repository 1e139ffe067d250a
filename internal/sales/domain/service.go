package domain

import (
	"context"
	"errors"
	"time"

	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	lifetimedomain "github.com/smallbiznis/royalty/internal/lifetime/domain"
	returnsdomain "github.com/smallbiznis/royalty/internal/returns/domain"
)

type Service interface {
	Append(ctx context.Context, req AppendRequest) (*AppendResponse, error)
	// ListInPeriod returns the title's lines dated inside period.
	ListInPeriod(ctx context.Context, titleID string, period catalogdomain.Period) (*PeriodRecords, error)
	// PriorTotals nets every line dated in [since, before), per format. A
	// zero since leaves the window open at the start.
	PriorTotals(ctx context.Context, titleID string, since, before time.Time) (map[catalogdomain.Format]lifetimedomain.Totals, error)
}

type LineInput struct {
	SaleID          string    `json:"sale_id,omitempty"`
	Format          string    `json:"format"`
	Quantity        string    `json:"quantity"`
	UnitPrice       string    `json:"unit_price"`
	TransactionDate time.Time `json:"transaction_date"`
}

type AppendRequest struct {
	TitleID string      `json:"title_id"`
	Sales   []LineInput `json:"sales"`
	Returns []LineInput `json:"returns"`
}

type AppendResponse struct {
	TitleID string `json:"title_id"`
	Sales   int    `json:"sales"`
	Returns int    `json:"returns"`
}

type PeriodRecords struct {
	Sales   []returnsdomain.SaleRecord
	Returns []returnsdomain.ReturnRecord
}

var (
	ErrInvalidTitle           = errors.New("invalid_title")
	ErrEmptyAppend            = errors.New("empty_append")
	ErrInvalidTransactionDate = errors.New("invalid_transaction_date")
	ErrInvalidSaleID          = errors.New("invalid_sale_id")
)
