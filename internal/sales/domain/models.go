package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	returnsdomain "github.com/smallbiznis/royalty/internal/returns/domain"
)

// SaleRow is an append-only sale line for a title.
type SaleRow struct {
	ID              snowflake.ID         `json:"id" gorm:"primaryKey"`
	TitleID         string               `json:"title_id" gorm:"type:text;not null;index:ix_sales_title_date,priority:1"`
	Format          catalogdomain.Format `json:"format" gorm:"type:text;not null"`
	Quantity        decimal.Decimal      `json:"quantity" gorm:"type:decimal(18,4);not null"`
	UnitPrice       decimal.Decimal      `json:"unit_price" gorm:"type:decimal(18,4);not null"`
	TransactionDate time.Time            `json:"transaction_date" gorm:"not null;index:ix_sales_title_date,priority:2"`
	CreatedAt       time.Time            `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SaleRow) TableName() string { return "sales" }

func (r SaleRow) Record() returnsdomain.SaleRecord {
	return returnsdomain.SaleRecord{
		ID:              r.ID.String(),
		Format:          r.Format,
		Quantity:        r.Quantity,
		UnitPrice:       r.UnitPrice,
		TransactionDate: r.TransactionDate.UTC(),
	}
}

// ReturnRow is an append-only return line. It never edits the sale it
// refers to.
type ReturnRow struct {
	ID              snowflake.ID         `json:"id" gorm:"primaryKey"`
	TitleID         string               `json:"title_id" gorm:"type:text;not null;index:ix_sale_returns_title_date,priority:1"`
	SaleID          *snowflake.ID        `json:"sale_id,omitempty"`
	Format          catalogdomain.Format `json:"format" gorm:"type:text;not null"`
	Quantity        decimal.Decimal      `json:"quantity" gorm:"type:decimal(18,4);not null"`
	UnitPrice       decimal.Decimal      `json:"unit_price" gorm:"type:decimal(18,4);not null"`
	TransactionDate time.Time            `json:"transaction_date" gorm:"not null;index:ix_sale_returns_title_date,priority:2"`
	CreatedAt       time.Time            `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ReturnRow) TableName() string { return "sale_returns" }

func (r ReturnRow) Record() returnsdomain.ReturnRecord {
	return returnsdomain.ReturnRecord{
		ID:              r.ID.String(),
		Format:          r.Format,
		Quantity:        r.Quantity,
		UnitPrice:       r.UnitPrice,
		TransactionDate: r.TransactionDate.UTC(),
	}
}
