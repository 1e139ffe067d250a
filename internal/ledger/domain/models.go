package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// LedgerSourceType names what moved a contract's recouped advance.
type LedgerSourceType string

const (
	SourceTypeStatementRecoupment LedgerSourceType = "statement_recoupment"
	SourceTypeManualPayment       LedgerSourceType = "manual_payment"
)

func (t LedgerSourceType) Valid() bool {
	return t == SourceTypeStatementRecoupment || t == SourceTypeManualPayment
}

// LedgerEntry is an immutable movement of advance_recouped on one contract.
type LedgerEntry struct {
	ID            snowflake.ID     `gorm:"primaryKey" json:"id"`
	ContractID    snowflake.ID     `gorm:"not null;index" json:"contract_id"`
	SourceType    LedgerSourceType `gorm:"type:text;not null;uniqueIndex:ux_advance_ledger_source,priority:1" json:"source_type"`
	SourceID      snowflake.ID     `gorm:"not null;uniqueIndex:ux_advance_ledger_source,priority:2" json:"source_id"`
	Amount        decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"amount"`
	RecoupedAfter decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"recouped_after"`
	OccurredAt    time.Time        `gorm:"not null" json:"occurred_at"`
	CreatedAt     time.Time        `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "advance_ledger_entries" }
