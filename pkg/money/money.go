// Package money holds the decimal helpers every royalty figure goes through.
// Binary floating point never appears on a money or percentage path.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/royalty/pkg/calcerr"
)

var (
	Zero    = decimal.Zero
	One     = decimal.NewFromInt(1)
	Hundred = decimal.NewFromInt(100)
)

// CurrencyScale is the number of decimal places kept for currency amounts.
const CurrencyScale int32 = 2

type RoundingMode string

const (
	RoundHalfUp   RoundingMode = "half_up"
	RoundHalfEven RoundingMode = "half_even"
)

var ErrInvalidRoundingMode = errors.New("invalid_rounding_mode")

// Policy decides where and how amounts are rounded.
type Policy struct {
	Scale int32
	Mode  RoundingMode
}

var DefaultPolicy = Policy{Scale: CurrencyScale, Mode: RoundHalfUp}

func ParseRoundingMode(raw string) (RoundingMode, error) {
	switch RoundingMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RoundHalfUp:
		return RoundHalfUp, nil
	case RoundHalfEven:
		return RoundHalfEven, nil
	default:
		return "", ErrInvalidRoundingMode
	}
}

// Round applies the policy to d. Half-up rounds away from zero on ties.
func (p Policy) Round(d decimal.Decimal) decimal.Decimal {
	if p.Mode == RoundHalfEven {
		return d.RoundBank(p.Scale)
	}
	return d.Round(p.Scale)
}

// Parse reads a decimal string for the named field.
func Parse(field, raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, &calcerr.ParseError{Field: field, Value: raw, Err: calcerr.ErrMalformedDecimal}
	}
	return d, nil
}

// ParseAll parses every value for the named field, failing on the first bad one.
func ParseAll(field string, raws []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, 0, len(raws))
	for _, raw := range raws {
		d, err := Parse(field, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// MustParse is for constants and tests.
func MustParse(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Percent returns amount * pct / 100 without rounding.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(Hundred)
}

// Fixed renders d with the currency scale, e.g. "100.00".
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(CurrencyScale)
}

// HasAtMostPlaces reports whether d carries no more than places fractional digits.
func HasAtMostPlaces(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}
