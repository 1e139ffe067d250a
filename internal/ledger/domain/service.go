package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PostRequest struct {
	ContractID    snowflake.ID
	SourceType    LedgerSourceType
	SourceID      snowflake.ID
	Amount        decimal.Decimal
	RecoupedAfter decimal.Decimal
	OccurredAt    time.Time
}

type Service interface {
	// Post writes the entry inside tx. Posting the same source twice is a
	// no-op and reports false.
	Post(ctx context.Context, tx *gorm.DB, req PostRequest) (bool, error)
	ListForContract(ctx context.Context, contractID snowflake.ID) ([]LedgerEntry, error)
}
