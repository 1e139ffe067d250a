package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	contractdomain "github.com/smallbiznis/royalty/internal/contract/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() contractdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, contract *contractdomain.RoyaltyContract) error {
	return db.WithContext(ctx).Create(contract).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*contractdomain.RoyaltyContract, error) {
	var contract contractdomain.RoyaltyContract
	err := db.WithContext(ctx).
		Preload("Tiers", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("format ASC").Order("position ASC")
		}).
		Where("id = ?", id).
		First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter contractdomain.ListFilter) ([]contractdomain.RoyaltyContract, error) {
	var items []contractdomain.RoyaltyContract
	stmt := db.WithContext(ctx).Model(&contractdomain.RoyaltyContract{})
	if filter.TitleID != "" {
		stmt = stmt.Where("title_id = ?", filter.TitleID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status royaltydomain.ContractStatus) error {
	return db.WithContext(ctx).
		Model(&contractdomain.RoyaltyContract{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repo) CompareAndSwapRecouped(ctx context.Context, db *gorm.DB, id snowflake.ID, expected, next decimal.Decimal) (bool, error) {
	result := db.WithContext(ctx).
		Model(&contractdomain.RoyaltyContract{}).
		Where("id = ? AND advance_recouped = ?", id, expected).
		Update("advance_recouped", next)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
