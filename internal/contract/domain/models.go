package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	lifetimedomain "github.com/smallbiznis/royalty/internal/lifetime/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
)

// RoyaltyContract is the persisted contract for one title.
type RoyaltyContract struct {
	ID              snowflake.ID                 `json:"id" gorm:"primaryKey"`
	TitleID         string                       `json:"title_id" gorm:"type:text;not null;index"`
	Status          royaltydomain.ContractStatus `json:"status" gorm:"type:text;not null"`
	AdvanceAmount   decimal.Decimal              `json:"advance_amount" gorm:"type:decimal(18,2);not null"`
	AdvanceRecouped decimal.Decimal              `json:"advance_recouped" gorm:"type:decimal(18,2);not null"`
	TierMode        lifetimedomain.Mode          `json:"tier_mode" gorm:"type:text;not null"`
	EffectiveFrom   *time.Time                   `json:"effective_from,omitempty"`
	CreatedAt       time.Time                    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time                    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Tiers []RoyaltyTier `json:"tiers,omitempty" gorm:"foreignKey:ContractID"`
}

func (RoyaltyContract) TableName() string { return "royalty_contracts" }

// RemainingAdvance is the advance still to be earned out.
func (c RoyaltyContract) RemainingAdvance() decimal.Decimal {
	remaining := c.AdvanceAmount.Sub(c.AdvanceRecouped)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// RoyaltyTier is one row of a format's tier schedule. A null MaxQuantity
// marks the top tier.
type RoyaltyTier struct {
	ID          snowflake.ID         `json:"id" gorm:"primaryKey"`
	ContractID  snowflake.ID         `json:"contract_id" gorm:"not null;uniqueIndex:ux_royalty_tier_position,priority:1"`
	Format      catalogdomain.Format `json:"format" gorm:"type:text;not null;uniqueIndex:ux_royalty_tier_position,priority:2"`
	Position    int                  `json:"position" gorm:"not null;uniqueIndex:ux_royalty_tier_position,priority:3"`
	MinQuantity decimal.Decimal      `json:"min_quantity" gorm:"type:decimal(18,0);not null"`
	MaxQuantity decimal.NullDecimal  `json:"max_quantity" gorm:"type:decimal(18,0)"`
	Rate        decimal.Decimal      `json:"rate" gorm:"type:decimal(9,6);not null"`
	CreatedAt   time.Time            `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (RoyaltyTier) TableName() string { return "royalty_tiers" }
