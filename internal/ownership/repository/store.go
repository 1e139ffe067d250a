package repository

import (
	"context"
	"strings"

	ownershipdomain "github.com/smallbiznis/royalty/internal/ownership/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) ownershipdomain.Store {
	return &Store{db: p.DB, log: p.Log.Named("ownership.store")}
}

func (s *Store) LoadSet(ctx context.Context, titleID string) (*ownershipdomain.Set, error) {
	titleID = strings.TrimSpace(titleID)
	if titleID == "" {
		return nil, calcerr.Invalid("title_id", ownershipdomain.ErrInvalidTitle)
	}

	var rows []ownershipdomain.TitleAuthor
	err := s.db.WithContext(ctx).
		Where("title_id = ?", titleID).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	shares := make([]ownershipdomain.Share, 0, len(rows))
	for _, row := range rows {
		shares = append(shares, ownershipdomain.Share{
			AuthorID:   row.AuthorID,
			Percentage: row.Percentage,
			IsPrimary:  row.IsPrimary,
		})
	}

	// Rows written around this store are revalidated on every read.
	set, err := ownershipdomain.NewSet(titleID, shares)
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// ReplaceSplit swaps the title's ownership rows for shares. Nothing is
// written unless the new split is valid.
func (s *Store) ReplaceSplit(ctx context.Context, titleID string, inputs []ownershipdomain.ShareInput) (*ownershipdomain.Set, error) {
	shares := make([]ownershipdomain.Share, 0, len(inputs))
	for _, in := range inputs {
		pct, err := money.Parse("percentage", in.Percentage)
		if err != nil {
			return nil, err
		}
		shares = append(shares, ownershipdomain.Share{AuthorID: in.AuthorID, Percentage: pct, IsPrimary: in.IsPrimary})
	}

	set, err := ownershipdomain.NewSet(titleID, shares)
	if err != nil {
		return nil, err
	}
	if err := s.write(ctx, set); err != nil {
		return nil, err
	}
	return &set, nil
}

// EqualSplitFor splits the title evenly with the first author as primary.
func (s *Store) EqualSplitFor(ctx context.Context, titleID string, authorIDs []string) (*ownershipdomain.Set, error) {
	set, err := ownershipdomain.EqualShares(titleID, authorIDs)
	if err != nil {
		return nil, err
	}
	if err := s.write(ctx, set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *Store) write(ctx context.Context, set ownershipdomain.Set) error {
	rows := make([]ownershipdomain.TitleAuthor, 0, set.Len())
	for i, share := range set.Shares() {
		rows = append(rows, ownershipdomain.TitleAuthor{
			TitleID:    set.TitleID(),
			AuthorID:   share.AuthorID,
			Position:   i,
			Percentage: share.Percentage,
			IsPrimary:  share.IsPrimary,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("title_id = ?", set.TitleID()).Delete(&ownershipdomain.TitleAuthor{}).Error; err != nil {
			return err
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return err
	}

	s.log.Info("ownership split replaced",
		zap.String("title_id", set.TitleID()),
		zap.Int("authors", set.Len()),
	)
	return nil
}
