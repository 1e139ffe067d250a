package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/royalty/internal/clock"
	ledgerdomain "github.com/smallbiznis/royalty/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Post(ctx context.Context, tx *gorm.DB, req ledgerdomain.PostRequest) (bool, error) {
	if req.ContractID == 0 {
		return false, ledgerdomain.ErrInvalidContract
	}
	if !req.SourceType.Valid() {
		return false, ledgerdomain.ErrInvalidSourceType
	}
	if req.SourceID == 0 {
		return false, ledgerdomain.ErrInvalidSourceID
	}
	if req.Amount.IsNegative() || req.RecoupedAfter.IsNegative() {
		return false, ledgerdomain.ErrInvalidAmount
	}
	if req.OccurredAt.IsZero() {
		return false, ledgerdomain.ErrInvalidOccurredAt
	}
	if tx == nil {
		tx = s.db
	}

	entry := ledgerdomain.LedgerEntry{
		ID:            s.genID.Generate(),
		ContractID:    req.ContractID,
		SourceType:    req.SourceType,
		SourceID:      req.SourceID,
		Amount:        req.Amount,
		RecoupedAfter: req.RecoupedAfter,
		OccurredAt:    req.OccurredAt.UTC(),
		CreatedAt:     s.now(),
	}

	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_type"}, {Name: "source_id"}},
			DoNothing: true,
		}).
		Create(&entry)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		s.log.Debug("advance ledger entry already posted",
			zap.String("source_type", string(req.SourceType)),
			zap.String("source_id", req.SourceID.String()),
		)
		return false, nil
	}
	return true, nil
}

func (s *Service) ListForContract(ctx context.Context, contractID snowflake.ID) ([]ledgerdomain.LedgerEntry, error) {
	var entries []ledgerdomain.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("occurred_at ASC").
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}
