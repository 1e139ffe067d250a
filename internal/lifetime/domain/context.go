// Package domain decides which cumulative baseline tier lookup starts from
// and describes where a format stands against its tiers after a period.
package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	tierdomain "github.com/smallbiznis/royalty/internal/tier/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/money"
)

// Mode selects the tier baseline.
type Mode string

const (
	// ModePeriod resets tiers every statement period.
	ModePeriod Mode = "period"
	// ModeLifetime counts every unit sold since the contract started.
	ModeLifetime Mode = "lifetime"
)

var (
	ErrInvalidMode   = errors.New("invalid_tier_mode")
	ErrEmptySchedule = errors.New("empty_tier_schedule")
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModePeriod:
		return ModePeriod, nil
	case ModeLifetime:
		return ModeLifetime, nil
	default:
		return "", calcerr.Invalid("tier_mode", ErrInvalidMode)
	}
}

// Totals is a quantity and revenue pair for one format.
type Totals struct {
	Quantity decimal.Decimal `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// Context is the auditable baseline for one format and period.
type Context struct {
	Mode              Mode             `json:"mode"`
	QuantityBefore    decimal.Decimal  `json:"quantity_before"`
	RevenueBefore     decimal.Decimal  `json:"revenue_before"`
	QuantityAfter     decimal.Decimal  `json:"quantity_after"`
	RevenueAfter      decimal.Decimal  `json:"revenue_after"`
	CurrentTierIndex  int              `json:"current_tier_index"`
	CurrentTierRate   decimal.Decimal  `json:"current_tier_rate"`
	NextTierThreshold *decimal.Decimal `json:"next_tier_threshold"`
	UnitsToNextTier   *decimal.Decimal `json:"units_to_next_tier"`
}

// Build derives the context. In period mode the baseline is always zero; in
// lifetime mode it is the cumulative total before the period. Cumulative
// figures never go below zero.
func Build(mode Mode, prior, period Totals, schedule tierdomain.Schedule) (Context, error) {
	if mode != ModePeriod && mode != ModeLifetime {
		return Context{}, calcerr.Invalid("tier_mode", ErrInvalidMode)
	}
	if schedule.IsZero() {
		return Context{}, calcerr.Misconfigured("tiers", ErrEmptySchedule)
	}

	before := Totals{Quantity: decimal.Zero, Revenue: decimal.Zero}
	if mode == ModeLifetime {
		before = Totals{
			Quantity: money.FloorZero(prior.Quantity),
			Revenue:  money.FloorZero(prior.Revenue),
		}
	}

	ctx := Context{
		Mode:           mode,
		QuantityBefore: before.Quantity,
		RevenueBefore:  before.Revenue,
		QuantityAfter:  money.FloorZero(before.Quantity.Add(period.Quantity)),
		RevenueAfter:   money.FloorZero(before.Revenue.Add(period.Revenue)),
	}

	idx := schedule.IndexAt(ctx.QuantityAfter)
	current := schedule.Tier(idx)
	ctx.CurrentTierIndex = idx
	ctx.CurrentTierRate = current.Rate()

	if _, bounded := current.Max(); bounded {
		threshold := schedule.Tier(idx + 1).Min()
		remaining := threshold.Sub(ctx.QuantityAfter)
		ctx.NextTierThreshold = &threshold
		ctx.UnitsToNextTier = &remaining
	}

	return ctx, nil
}

// Baseline is the cumulative count the tier walk starts from.
func (c Context) Baseline() decimal.Decimal {
	return c.QuantityBefore
}
