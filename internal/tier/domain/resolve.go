package domain

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/royalty/pkg/money"
)

// Slice is the part of a period taxed at one tier.
type Slice struct {
	TierIndex   int              `json:"tier_index"`
	MinQuantity decimal.Decimal  `json:"min_quantity"`
	MaxQuantity *decimal.Decimal `json:"max_quantity,omitempty"`
	Rate        decimal.Decimal  `json:"rate"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Revenue     decimal.Decimal  `json:"revenue"`
	Royalty     decimal.Decimal  `json:"royalty"`
}

// Resolution is the per-tier breakdown for one format and period.
type Resolution struct {
	Slices   []Slice         `json:"tiers"`
	Quantity decimal.Decimal `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
	Royalty  decimal.Decimal `json:"royalty"`
}

// Resolve distributes quantity units, counted on top of baselineBefore,
// across the schedule. Unit n is taxed at the tier whose range holds n, so
// the span walked is (baselineBefore, baselineBefore+quantity].
//
// Revenue is spread across slices pro rata to units. Slice revenue is
// rounded by policy and the last slice absorbs the remainder. The royalty is
// rounded once over the exact sum of slice revenue times tier rate; earlier
// slices show their rounded share and the last slice absorbs the rest, so a
// boundary between equal rates never changes the total.
//
// A negative quantity walks (baselineBefore+quantity, baselineBefore] and
// yields negative slices. Units that would fall below a cumulative count of
// zero are attributed to the first tier. Negative results are never floored
// here.
func Resolve(s Schedule, baselineBefore, quantity, revenue decimal.Decimal, policy money.Policy) Resolution {
	res := Resolution{
		Slices:   []Slice{},
		Quantity: quantity,
		Revenue:  revenue,
		Royalty:  decimal.Zero,
	}
	if quantity.IsZero() || s.IsZero() {
		return res
	}

	before := money.FloorZero(baselineBefore)
	sign := decimal.NewFromInt(int64(quantity.Sign()))

	lo, hi := before, before.Add(quantity)
	if quantity.IsNegative() {
		lo, hi = hi, before
	}

	units := make([]decimal.Decimal, s.Len())
	for i := range units {
		units[i] = decimal.Zero
	}
	if lo.IsNegative() {
		units[0] = decimal.Min(hi, decimal.Zero).Sub(lo)
		lo = decimal.Zero
	}

	for i := 0; i < s.Len(); i++ {
		t := s.Tier(i)
		start := decimal.Max(lo, t.Min().Sub(money.One))
		end := hi
		upper, bounded := t.Max()
		if bounded {
			end = decimal.Min(hi, upper)
		}
		if end.GreaterThan(start) {
			units[i] = units[i].Add(end.Sub(start))
		}
		if !bounded || hi.LessThanOrEqual(upper) {
			break
		}
	}

	last := -1
	for i, u := range units {
		if !u.IsZero() {
			last = i
		}
	}

	allocated, exact, shown := decimal.Zero, decimal.Zero, decimal.Zero
	for i, u := range units {
		if u.IsZero() {
			continue
		}
		t := s.Tier(i)
		slice := Slice{
			TierIndex:   i,
			MinQuantity: t.Min(),
			Rate:        t.Rate(),
			Quantity:    u.Mul(sign),
		}
		if upper, ok := t.Max(); ok {
			slice.MaxQuantity = &upper
		}

		if i == last {
			slice.Revenue = revenue.Sub(allocated)
		} else {
			slice.Revenue = policy.Round(revenue.Mul(slice.Quantity).Div(quantity))
			allocated = allocated.Add(slice.Revenue)
		}
		exact = exact.Add(slice.Revenue.Mul(slice.Rate))
		if i == last {
			res.Royalty = policy.Round(exact)
			slice.Royalty = res.Royalty.Sub(shown)
		} else {
			slice.Royalty = policy.Round(slice.Revenue.Mul(slice.Rate))
			shown = shown.Add(slice.Royalty)
		}

		res.Slices = append(res.Slices, slice)
	}

	return res
}
