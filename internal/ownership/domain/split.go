package domain

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/royalty/pkg/money"
)

// SumResult is the outcome of an ownership sum check.
type SumResult struct {
	Valid bool
	Total decimal.Decimal
}

// ValidateOwnershipSum adds the percentages exactly and reports whether they
// reach 100. Per-row range checks belong to the caller.
func ValidateOwnershipSum(percentages []decimal.Decimal) SumResult {
	total := decimal.Zero
	for _, pct := range percentages {
		total = total.Add(pct)
	}
	return SumResult{Valid: total.Equal(money.Hundred), Total: total}
}

// ValidateOwnershipStrings parses raw percentages before summing them.
func ValidateOwnershipStrings(raw []string) (SumResult, error) {
	values, err := money.ParseAll("ownership_percentage", raw)
	if err != nil {
		return SumResult{}, err
	}
	return ValidateOwnershipSum(values), nil
}

// EqualSplit divides 100 between authorCount authors. Every share is
// truncated to two places and the last author absorbs the remainder, so the
// shares always add up to exactly 100.00.
func EqualSplit(authorCount uint32) []decimal.Decimal {
	if authorCount == 0 {
		return []decimal.Decimal{}
	}

	const totalBasisPoints int64 = 10000
	n := int64(authorCount)
	each := totalBasisPoints / n

	out := make([]decimal.Decimal, n)
	for i := int64(0); i < n-1; i++ {
		out[i] = decimal.New(each, -2)
	}
	out[n-1] = decimal.New(totalBasisPoints-each*(n-1), -2)
	return out
}
