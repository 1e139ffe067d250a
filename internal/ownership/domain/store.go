package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TitleAuthor is one stored ownership row. Position keeps the order rows
// were written in, which decides who absorbs allocation remainders.
type TitleAuthor struct {
	TitleID    string          `json:"title_id" gorm:"primaryKey;type:text"`
	AuthorID   string          `json:"author_id" gorm:"primaryKey;type:text"`
	Position   int             `json:"position" gorm:"not null"`
	Percentage decimal.Decimal `json:"percentage" gorm:"type:decimal(5,2);not null"`
	IsPrimary  bool            `json:"is_primary" gorm:"not null;default:false"`
	CreatedAt  time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TitleAuthor) TableName() string { return "title_authors" }

type ShareInput struct {
	AuthorID   string `json:"author_id"`
	Percentage string `json:"percentage"`
	IsPrimary  bool   `json:"is_primary"`
}

type Store interface {
	// LoadSet returns nil when the title has no ownership rows.
	LoadSet(ctx context.Context, titleID string) (*Set, error)
	ReplaceSplit(ctx context.Context, titleID string, shares []ShareInput) (*Set, error)
	EqualSplitFor(ctx context.Context, titleID string, authorIDs []string) (*Set, error)
}
