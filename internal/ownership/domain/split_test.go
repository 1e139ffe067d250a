package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(values []decimal.Decimal) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = money.Fixed(v)
	}
	return out
}

func TestEqualSplit(t *testing.T) {
	cases := []struct {
		count uint32
		want  []string
	}{
		{count: 0, want: []string{}},
		{count: 1, want: []string{"100.00"}},
		{count: 2, want: []string{"50.00", "50.00"}},
		{count: 3, want: []string{"33.33", "33.33", "33.34"}},
		{count: 7, want: []string{"14.28", "14.28", "14.28", "14.28", "14.28", "14.28", "14.32"}},
	}

	for _, tc := range cases {
		got := EqualSplit(tc.count)
		assert.Equal(t, tc.want, fixed(got), "count=%d", tc.count)
	}
}

func TestEqualSplitAlwaysSumsToHundred(t *testing.T) {
	for n := uint32(1); n <= 250; n++ {
		split := EqualSplit(n)
		require.Len(t, split, int(n))

		sum := ValidateOwnershipSum(split)
		require.True(t, sum.Valid, "n=%d total=%s", n, sum.Total)
		for i, share := range split[:n-1] {
			assert.True(t, share.Equal(split[0]), "n=%d index=%d", n, i)
		}
		assert.True(t, split[n-1].GreaterThanOrEqual(split[0]), "last author absorbs the remainder")
	}
}

func TestValidateOwnershipSum(t *testing.T) {
	res, err := ValidateOwnershipStrings([]string{"60.00", "40.00"})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "100", res.Total.String())

	res, err = ValidateOwnershipStrings([]string{"60.00", "60.00"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "120", res.Total.String())

	res, err = ValidateOwnershipStrings([]string{"33.33", "33.33", "33.33"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "99.99", res.Total.String())
}

func TestValidateOwnershipStringsRejectsMalformed(t *testing.T) {
	_, err := ValidateOwnershipStrings([]string{"50", "fifty"})
	require.Error(t, err)

	var parseErr *calcerr.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.True(t, calcerr.IsInput(err))
	assert.False(t, calcerr.IsConfiguration(err))
}
