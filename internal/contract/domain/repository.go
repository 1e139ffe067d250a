package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	"gorm.io/gorm"
)

type ListFilter struct {
	TitleID string
	Status  royaltydomain.ContractStatus
	Limit   int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contract *RoyaltyContract) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RoyaltyContract, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]RoyaltyContract, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status royaltydomain.ContractStatus) error
	// CompareAndSwapRecouped moves advance_recouped from expected to next and
	// reports false when the stored value no longer equals expected.
	CompareAndSwapRecouped(ctx context.Context, db *gorm.DB, id snowflake.ID, expected, next decimal.Decimal) (bool, error)
}
