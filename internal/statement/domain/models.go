package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	lifetimedomain "github.com/smallbiznis/royalty/internal/lifetime/domain"
	"gorm.io/datatypes"
)

// Statement is a committed royalty result for one contract, author and
// period. Result holds the full itemized calculation as it was produced.
type Statement struct {
	ID          snowflake.ID        `json:"id" gorm:"primaryKey"`
	ContractID  snowflake.ID        `json:"contract_id" gorm:"not null;index"`
	TitleID     string              `json:"title_id" gorm:"type:text;not null"`
	AuthorID    string              `json:"author_id" gorm:"type:text;not null;index"`
	PeriodStart time.Time           `json:"period_start" gorm:"not null"`
	PeriodEnd   time.Time           `json:"period_end" gorm:"not null"`
	TierMode    lifetimedomain.Mode `json:"tier_mode" gorm:"type:text;not null"`

	GrossRoyalty       decimal.Decimal `json:"gross_royalty" gorm:"type:decimal(18,2);not null"`
	ReturnsDeduction   decimal.Decimal `json:"returns_deduction" gorm:"type:decimal(18,2);not null"`
	PreviouslyRecouped decimal.Decimal `json:"previously_recouped" gorm:"type:decimal(18,2);not null"`
	Recouped           decimal.Decimal `json:"recouped" gorm:"type:decimal(18,2);not null"`
	RemainingAdvance   decimal.Decimal `json:"remaining_advance" gorm:"type:decimal(18,2);not null"`
	NetPayable         decimal.Decimal `json:"net_payable" gorm:"type:decimal(18,2);not null"`
	AuthorPayable      decimal.Decimal `json:"author_payable" gorm:"type:decimal(18,2);not null"`

	// PeriodKey groups every author's statement for one contract period;
	// only the first of them moves the advance.
	PeriodKey      string         `json:"-" gorm:"type:text;not null;index"`
	AdvanceApplied bool           `json:"advance_applied" gorm:"not null;default:false"`
	Checksum       string         `json:"checksum" gorm:"type:text;not null;uniqueIndex:ux_statements_checksum"`
	Result         datatypes.JSON `json:"result"`
	CreatedAt      time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Statement) TableName() string { return "statements" }
