// Package domain models royalty rate tiers for one distribution format and
// resolves how a span of units is taxed across them.
package domain

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/money"
)

// Tier is either a BoundedTier or the schedule's single UnboundedTier.
type Tier interface {
	Min() decimal.Decimal
	Rate() decimal.Decimal
	// Max returns the inclusive upper bound; ok is false for the top tier.
	Max() (upper decimal.Decimal, ok bool)
	isTier()
}

type BoundedTier struct {
	MinQuantity decimal.Decimal
	MaxQuantity decimal.Decimal
	RateValue   decimal.Decimal
}

func (t BoundedTier) Min() decimal.Decimal         { return t.MinQuantity }
func (t BoundedTier) Rate() decimal.Decimal        { return t.RateValue }
func (t BoundedTier) Max() (decimal.Decimal, bool) { return t.MaxQuantity, true }
func (BoundedTier) isTier()                        {}

type UnboundedTier struct {
	MinQuantity decimal.Decimal
	RateValue   decimal.Decimal
}

func (t UnboundedTier) Min() decimal.Decimal         { return t.MinQuantity }
func (t UnboundedTier) Rate() decimal.Decimal        { return t.RateValue }
func (t UnboundedTier) Max() (decimal.Decimal, bool) { return decimal.Zero, false }
func (UnboundedTier) isTier()                        {}

// Row is the flat representation used by storage and JSON, where a nil
// MaxQuantity marks the top tier.
type Row struct {
	MinQuantity decimal.Decimal  `json:"min_quantity"`
	MaxQuantity *decimal.Decimal `json:"max_quantity,omitempty"`
	Rate        decimal.Decimal  `json:"rate"`
}

// Schedule is an ordered, contiguous tier list ending in exactly one
// unbounded tier. Build it with NewSchedule or FromRows.
type Schedule struct {
	bounded []BoundedTier
	top     UnboundedTier
	built   bool
}

// NewSchedule validates bounded tiers followed by the top tier.
func NewSchedule(bounded []BoundedTier, top UnboundedTier) (Schedule, error) {
	tiers := make([]Tier, 0, len(bounded)+1)
	for _, b := range bounded {
		tiers = append(tiers, b)
	}
	tiers = append(tiers, top)

	for i, t := range tiers {
		if err := validateTier(t); err != nil {
			return Schedule{}, err
		}
		if i == 0 {
			if !t.Min().Equal(decimal.Zero) && !t.Min().Equal(money.One) {
				return Schedule{}, calcerr.Misconfigured("tiers", ErrFirstTierStart)
			}
			continue
		}
		prevMax, _ := tiers[i-1].Max()
		expected := prevMax.Add(money.One)
		switch t.Min().Cmp(expected) {
		case 1:
			return Schedule{}, calcerr.Misconfigured("tiers", ErrTierGap)
		case -1:
			return Schedule{}, calcerr.Misconfigured("tiers", ErrTierOverlap)
		}
	}

	out := Schedule{bounded: make([]BoundedTier, len(bounded)), top: top, built: true}
	copy(out.bounded, bounded)
	return out, nil
}

// FromRows sorts nothing: rows must already be ascending by MinQuantity.
func FromRows(rows []Row) (Schedule, error) {
	if len(rows) == 0 {
		return Schedule{}, calcerr.Misconfigured("tiers", ErrEmptySchedule)
	}
	bounded := make([]BoundedTier, 0, len(rows)-1)
	for i, row := range rows {
		last := i == len(rows)-1
		if row.MaxQuantity == nil {
			if !last {
				return Schedule{}, calcerr.Misconfigured("tiers", ErrUnboundedNotLast)
			}
			return NewSchedule(bounded, UnboundedTier{MinQuantity: row.MinQuantity, RateValue: row.Rate})
		}
		if last {
			return Schedule{}, calcerr.Misconfigured("tiers", ErrMissingUnbounded)
		}
		bounded = append(bounded, BoundedTier{
			MinQuantity: row.MinQuantity,
			MaxQuantity: *row.MaxQuantity,
			RateValue:   row.Rate,
		})
	}
	return Schedule{}, calcerr.Misconfigured("tiers", ErrMissingUnbounded)
}

// MustSchedule panics on invalid rows. Intended for tests and fixtures.
func MustSchedule(rows ...Row) Schedule {
	s, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return s
}

func validateTier(t Tier) error {
	if t.Min().IsNegative() || !t.Min().Equal(t.Min().Truncate(0)) {
		return calcerr.Invalid("min_quantity", ErrInvalidMinQuantity)
	}
	if upper, ok := t.Max(); ok {
		if upper.LessThan(t.Min()) || !upper.Equal(upper.Truncate(0)) {
			return calcerr.Invalid("max_quantity", ErrInvalidMaxQuantity)
		}
	}
	if t.Rate().IsNegative() || t.Rate().GreaterThan(money.One) {
		return calcerr.Invalid("rate", ErrInvalidRate)
	}
	return nil
}

func (s Schedule) Len() int { return len(s.bounded) + 1 }

// IsZero reports whether s was never constructed.
func (s Schedule) IsZero() bool { return !s.built }

// Tier returns the tier at index i in ascending order.
func (s Schedule) Tier(i int) Tier {
	if i < len(s.bounded) {
		return s.bounded[i]
	}
	return s.top
}

func (s Schedule) Tiers() []Tier {
	out := make([]Tier, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		out = append(out, s.Tier(i))
	}
	return out
}

func (s Schedule) Rows() []Row {
	out := make([]Row, 0, s.Len())
	for _, t := range s.Tiers() {
		row := Row{MinQuantity: t.Min(), Rate: t.Rate()}
		if upper, ok := t.Max(); ok {
			row.MaxQuantity = &upper
		}
		out = append(out, row)
	}
	return out
}

// IndexAt returns the tier whose range holds the cumulative count n. Counts
// below the first tier resolve to the first tier.
func (s Schedule) IndexAt(n decimal.Decimal) int {
	for i, b := range s.bounded {
		if n.LessThanOrEqual(b.MaxQuantity) {
			return i
		}
	}
	return len(s.bounded)
}

// TopRate is the highest rate in the schedule.
func (s Schedule) TopRate() decimal.Decimal {
	top := decimal.Zero
	for _, t := range s.Tiers() {
		if t.Rate().GreaterThan(top) {
			top = t.Rate()
		}
	}
	return top
}
