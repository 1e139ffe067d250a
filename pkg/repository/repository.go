// Package repository is a typed gorm wrapper for the append-mostly royalty
// tables: sales, returns and statements.
package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/royalty/pkg/db/option"
	"gorm.io/gorm"
)

const defaultChunkSize = 200

type Repository[T any] interface {
	// WithTrx binds the repository to tx for the duration of a transaction.
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error)
	// FindOne returns nil, nil when no row matches.
	FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error)
	Exists(ctx context.Context, filter *T) (bool, error)
	Count(ctx context.Context, filter *T) (int64, error)
	Create(ctx context.Context, row *T) error
	BatchCreate(ctx context.Context, rows []*T) error
}

// StoreOption tunes a store.
type StoreOption func(*storeSettings)

type storeSettings struct {
	chunkSize int
}

// WithChunkSize bounds how many rows BatchCreate sends per INSERT.
func WithChunkSize(n int) StoreOption {
	return func(s *storeSettings) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

type store[T any] struct {
	db       *gorm.DB
	settings storeSettings
}

func ProvideStore[T any](db *gorm.DB, opts ...StoreOption) Repository[T] {
	s := &store[T]{db: db, settings: storeSettings{chunkSize: defaultChunkSize}}
	for _, opt := range opts {
		opt(&s.settings)
	}
	return s
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx, settings: s.settings}
}

func (s *store[T]) scoped(ctx context.Context, filter *T, opts []option.QueryOption) *gorm.DB {
	q := s.db.WithContext(ctx).Model(new(T))
	if filter != nil {
		q = q.Where(filter)
	}
	for _, opt := range opts {
		q = opt.Apply(q)
	}
	return q
}

func (s *store[T]) Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error) {
	rows := make([]*T, 0)
	if err := s.scoped(ctx, filter, opts).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *store[T]) FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error) {
	row := new(T)
	err := s.scoped(ctx, filter, opts).First(row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return row, nil
}

func (s *store[T]) Exists(ctx context.Context, filter *T) (bool, error) {
	var hit int
	err := s.scoped(ctx, filter, nil).Select("1").Limit(1).Scan(&hit).Error
	return hit == 1, err
}

func (s *store[T]) Count(ctx context.Context, filter *T) (int64, error) {
	var n int64
	err := s.scoped(ctx, filter, nil).Count(&n).Error
	return n, err
}

func (s *store[T]) Create(ctx context.Context, row *T) error {
	return s.db.WithContext(ctx).Create(row).Error
}

// BatchCreate inserts in chunks so large sale imports stay under driver
// parameter limits.
func (s *store[T]) BatchCreate(ctx context.Context, rows []*T) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, s.settings.chunkSize).Error
}
