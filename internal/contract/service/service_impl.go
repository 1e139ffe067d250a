package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	advancedomain "github.com/smallbiznis/royalty/internal/advance/domain"
	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	"github.com/smallbiznis/royalty/internal/clock"
	contractdomain "github.com/smallbiznis/royalty/internal/contract/domain"
	ledgerdomain "github.com/smallbiznis/royalty/internal/ledger/domain"
	lifetimedomain "github.com/smallbiznis/royalty/internal/lifetime/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	tierdomain "github.com/smallbiznis/royalty/internal/tier/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   contractdomain.Repository
	Ledger ledgerdomain.Service
	Clock  clock.Clock
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   contractdomain.Repository
	ledger ledgerdomain.Service
	clock  clock.Clock
}

func New(p Params) contractdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("contract.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		ledger: p.Ledger,
		clock:  p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req contractdomain.CreateRequest) (*contractdomain.RoyaltyContract, error) {
	titleID := strings.TrimSpace(req.TitleID)
	if titleID == "" {
		return nil, calcerr.Invalid("title_id", contractdomain.ErrInvalidTitle)
	}

	mode, err := lifetimedomain.ParseMode(req.TierMode)
	if err != nil {
		return nil, err
	}

	advance, err := parseAmount("advance_amount", req.AdvanceAmount)
	if err != nil {
		return nil, err
	}
	recouped, err := parseAmount("advance_recouped", req.AdvanceRecouped)
	if err != nil {
		return nil, err
	}
	if advance.IsNegative() {
		return nil, calcerr.Invalid("advance_amount", advancedomain.ErrInvalidAdvanceAmount)
	}
	if recouped.IsNegative() {
		return nil, calcerr.Invalid("advance_recouped", advancedomain.ErrInvalidRecoupedAmount)
	}
	if recouped.GreaterThan(advance) {
		return nil, calcerr.Invalid("advance_recouped", contractdomain.ErrRecoupedExceeds)
	}

	if len(req.Tiers) == 0 {
		return nil, calcerr.Misconfigured("tiers", tierdomain.ErrEmptySchedule)
	}

	contract := &contractdomain.RoyaltyContract{
		ID:              s.genID.Generate(),
		TitleID:         titleID,
		Status:          royaltydomain.ContractStatusActive,
		AdvanceAmount:   advance,
		AdvanceRecouped: recouped,
		TierMode:        mode,
	}
	if req.EffectiveFrom != nil && !req.EffectiveFrom.IsZero() {
		from := req.EffectiveFrom.UTC()
		contract.EffectiveFrom = &from
	}

	formats := make([]catalogdomain.Format, 0, len(req.Tiers))
	inputs := make(map[catalogdomain.Format][]contractdomain.TierInput, len(req.Tiers))
	for raw, rows := range req.Tiers {
		format, err := catalogdomain.ParseFormat(raw)
		if err != nil {
			return nil, calcerr.Invalid("tiers", err)
		}
		if _, dup := inputs[format]; dup {
			return nil, calcerr.Invalid("tiers", catalogdomain.ErrInvalidFormat)
		}
		inputs[format] = rows
		formats = append(formats, format)
	}

	for _, format := range catalogdomain.SortFormats(formats) {
		rows, err := parseTierRows(string(format), inputs[format])
		if err != nil {
			return nil, err
		}
		schedule, err := tierdomain.FromRows(rows)
		if err != nil {
			return nil, err
		}
		for i, row := range schedule.Rows() {
			tier := contractdomain.RoyaltyTier{
				ID:          s.genID.Generate(),
				ContractID:  contract.ID,
				Format:      format,
				Position:    i,
				MinQuantity: row.MinQuantity,
				Rate:        row.Rate,
			}
			if row.MaxQuantity != nil {
				tier.MaxQuantity = decimal.NewNullDecimal(*row.MaxQuantity)
			}
			contract.Tiers = append(contract.Tiers, tier)
		}
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if contract.EffectiveFrom == nil {
			earlier, err := s.repo.List(ctx, tx, contractdomain.ListFilter{TitleID: titleID, Limit: 1})
			if err != nil {
				return err
			}
			if len(earlier) > 0 {
				now := s.clock.Now().UTC()
				contract.EffectiveFrom = &now
			}
		}
		return s.repo.Insert(ctx, tx, contract)
	}); err != nil {
		return nil, err
	}

	s.log.Info("contract created",
		zap.String("contract_id", contract.ID.String()),
		zap.String("title_id", contract.TitleID),
		zap.String("tier_mode", string(contract.TierMode)),
	)
	return s.load(ctx, s.db, contract.ID)
}

func (s *Service) Get(ctx context.Context, id string) (*contractdomain.RoyaltyContract, error) {
	contractID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, contractID)
}

func (s *Service) List(ctx context.Context, req contractdomain.ListRequest) ([]contractdomain.RoyaltyContract, error) {
	filter := contractdomain.ListFilter{
		TitleID: strings.TrimSpace(req.TitleID),
		Limit:   req.Limit,
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := royaltydomain.ContractStatus(strings.ToLower(raw))
		if !status.Valid() {
			return nil, calcerr.Invalid("status", contractdomain.ErrInvalidStatus)
		}
		filter.Status = status
	}
	return s.repo.List(ctx, s.db, filter)
}

// UpdateStatus moves a contract between active and suspended, or terminates
// it. Terminated contracts never change again.
func (s *Service) UpdateStatus(ctx context.Context, id string, status string) (*contractdomain.RoyaltyContract, error) {
	contractID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	next := royaltydomain.ContractStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, calcerr.Invalid("status", contractdomain.ErrInvalidStatus)
	}

	var updated *contractdomain.RoyaltyContract
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.load(ctx, tx, contractID)
		if err != nil {
			return err
		}
		if current.Status == royaltydomain.ContractStatusTerminated && next != current.Status {
			return contractdomain.ErrContractTerminated
		}
		if current.Status != next {
			if err := s.repo.UpdateStatus(ctx, tx, contractID, next); err != nil {
				return err
			}
			current.Status = next
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("contract status updated",
		zap.String("contract_id", contractID.String()),
		zap.String("status", string(next)),
	)
	return updated, nil
}

// RecordAdditionalAdvancePayment books a manual payment against the advance.
// It moves advance_recouped and leaves a ledger entry in one transaction.
func (s *Service) RecordAdditionalAdvancePayment(ctx context.Context, req contractdomain.AdvancePaymentRequest) (*contractdomain.RoyaltyContract, error) {
	contractID, err := parseID(req.ContractID)
	if err != nil {
		return nil, err
	}
	amount, err := money.Parse("amount", req.Amount)
	if err != nil {
		return nil, err
	}

	var updated *contractdomain.RoyaltyContract
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.load(ctx, tx, contractID)
		if err != nil {
			return err
		}
		if current.Status == royaltydomain.ContractStatusTerminated {
			return contractdomain.ErrContractTerminated
		}
		if err := advancedomain.ValidateAdditionalPayment(current.AdvanceAmount, current.AdvanceRecouped, amount); err != nil {
			return err
		}

		next := current.AdvanceRecouped.Add(amount)
		swapped, err := s.repo.CompareAndSwapRecouped(ctx, tx, contractID, current.AdvanceRecouped, next)
		if err != nil {
			return err
		}
		if !swapped {
			return contractdomain.ErrConcurrentUpdate
		}

		if _, err := s.ledger.Post(ctx, tx, ledgerdomain.PostRequest{
			ContractID:    contractID,
			SourceType:    ledgerdomain.SourceTypeManualPayment,
			SourceID:      s.genID.Generate(),
			Amount:        amount,
			RecoupedAfter: next,
			OccurredAt:    s.clock.Now(),
		}); err != nil {
			return err
		}

		current.AdvanceRecouped = next
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("advance payment recorded",
		zap.String("contract_id", contractID.String()),
		zap.String("amount", money.Fixed(amount)),
		zap.String("advance_recouped", money.Fixed(updated.AdvanceRecouped)),
	)
	return updated, nil
}

func (s *Service) Snapshot(ctx context.Context, id string) (royaltydomain.Contract, error) {
	contractID, err := parseID(id)
	if err != nil {
		return royaltydomain.Contract{}, err
	}
	contract, err := s.load(ctx, s.db, contractID)
	if err != nil {
		return royaltydomain.Contract{}, err
	}
	return ToSnapshot(contract)
}

// ToSnapshot converts stored rows into the calculator's contract. Tier rows
// go through the schedule constructor, so gaps or overlaps introduced
// outside this service are reported as configuration errors.
func ToSnapshot(c *contractdomain.RoyaltyContract) (royaltydomain.Contract, error) {
	byFormat := make(map[catalogdomain.Format][]contractdomain.RoyaltyTier)
	for _, tier := range c.Tiers {
		byFormat[tier.Format] = append(byFormat[tier.Format], tier)
	}

	schedules := make(map[catalogdomain.Format]tierdomain.Schedule, len(byFormat))
	for format, tiers := range byFormat {
		sort.Slice(tiers, func(i, j int) bool { return tiers[i].Position < tiers[j].Position })
		rows := make([]tierdomain.Row, 0, len(tiers))
		for _, t := range tiers {
			row := tierdomain.Row{MinQuantity: t.MinQuantity, Rate: t.Rate}
			if t.MaxQuantity.Valid {
				upper := t.MaxQuantity.Decimal
				row.MaxQuantity = &upper
			}
			rows = append(rows, row)
		}
		schedule, err := tierdomain.FromRows(rows)
		if err != nil {
			return royaltydomain.Contract{}, err
		}
		schedules[format] = schedule
	}

	var from time.Time
	if c.EffectiveFrom != nil {
		from = *c.EffectiveFrom
	}
	return royaltydomain.Contract{
		ID:              c.ID.String(),
		TitleID:         c.TitleID,
		Status:          c.Status,
		AdvanceAmount:   c.AdvanceAmount,
		AdvanceRecouped: c.AdvanceRecouped,
		TierMode:        c.TierMode,
		EffectiveFrom:   from,
		Tiers:           schedules,
	}, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (*contractdomain.RoyaltyContract, error) {
	contract, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, contractdomain.ErrNotFound
	}
	return contract, nil
}

func parseTierRows(format string, inputs []contractdomain.TierInput) ([]tierdomain.Row, error) {
	field := "tiers." + format
	rows := make([]tierdomain.Row, 0, len(inputs))
	for _, in := range inputs {
		minQty, err := money.Parse(field+".min_quantity", in.MinQuantity)
		if err != nil {
			return nil, err
		}
		rate, err := money.Parse(field+".rate", in.Rate)
		if err != nil {
			return nil, err
		}
		row := tierdomain.Row{MinQuantity: minQty, Rate: rate}
		if in.MaxQuantity != nil {
			maxQty, err := money.Parse(field+".max_quantity", *in.MaxQuantity)
			if err != nil {
				return nil, err
			}
			row.MaxQuantity = &maxQty
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].MinQuantity.LessThan(rows[j].MinQuantity) })
	return rows, nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return money.Parse(field, raw)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, calcerr.Invalid("id", contractdomain.ErrInvalidID)
	}
	return id, nil
}
