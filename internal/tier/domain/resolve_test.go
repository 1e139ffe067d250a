package domain

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/royalty/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTier() Schedule {
	return MustSchedule(row("0", "4999", "0.10"), row("5000", "", "0.12"))
}

func threeTier() Schedule {
	return MustSchedule(row("0", "999", "0.10"), row("1000", "4999", "0.125"), row("5000", "", "0.15"))
}

func d(s string) decimal.Decimal { return money.MustParse(s) }

type sliceWant struct {
	tier     int
	quantity string
	revenue  string
	royalty  string
}

func assertSlices(t *testing.T, res Resolution, want []sliceWant) {
	t.Helper()
	require.Len(t, res.Slices, len(want))
	for i, w := range want {
		got := res.Slices[i]
		assert.Equal(t, w.tier, got.TierIndex, "slice %d tier", i)
		assert.Equal(t, w.quantity, got.Quantity.String(), "slice %d quantity", i)
		assert.Equal(t, w.revenue, money.Fixed(got.Revenue), "slice %d revenue", i)
		assert.Equal(t, w.royalty, money.Fixed(got.Royalty), "slice %d royalty", i)
	}
}

func TestResolve_LifetimeBoundaryIsProRated(t *testing.T) {
	// 4,500 units sold before the period, 500 during it at $20.
	res := Resolve(twoTier(), d("4500"), d("500"), d("10000.00"), money.DefaultPolicy)

	assertSlices(t, res, []sliceWant{
		{tier: 0, quantity: "499", revenue: "9980.00", royalty: "998.00"},
		{tier: 1, quantity: "1", revenue: "20.00", royalty: "2.40"},
	})
	assert.Equal(t, "1000.40", money.Fixed(res.Royalty))
}

func TestResolve_PeriodModeStartsAtZero(t *testing.T) {
	res := Resolve(twoTier(), decimal.Zero, d("500"), d("10000.00"), money.DefaultPolicy)

	assertSlices(t, res, []sliceWant{
		{tier: 0, quantity: "500", revenue: "10000.00", royalty: "1000.00"},
	})
}

func TestResolve_SpansThreeTiers(t *testing.T) {
	res := Resolve(threeTier(), decimal.Zero, d("6000"), d("60000.00"), money.DefaultPolicy)

	assertSlices(t, res, []sliceWant{
		{tier: 0, quantity: "999", revenue: "9990.00", royalty: "999.00"},
		{tier: 1, quantity: "4000", revenue: "40000.00", royalty: "5000.00"},
		{tier: 2, quantity: "1001", revenue: "10010.00", royalty: "1501.50"},
	})
	assert.Equal(t, "7500.50", money.Fixed(res.Royalty))
	require.NotNil(t, res.Slices[1].MaxQuantity)
	assert.Nil(t, res.Slices[2].MaxQuantity)
}

func TestResolve_LastSliceAbsorbsRevenueRemainder(t *testing.T) {
	s := MustSchedule(row("0", "1", "0.1"), row("2", "", "0.2"))
	res := Resolve(s, decimal.Zero, d("3"), d("100.00"), money.DefaultPolicy)

	assertSlices(t, res, []sliceWant{
		{tier: 0, quantity: "1", revenue: "33.33", royalty: "3.33"},
		{tier: 1, quantity: "2", revenue: "66.67", royalty: "13.34"},
	})
	// 3.333 + 13.334 rounds once.
	assert.Equal(t, "16.67", money.Fixed(res.Royalty))
}

func TestResolve_EqualRateBoundaryKeepsTotal(t *testing.T) {
	s := MustSchedule(row("0", "1", "0.10"), row("2", "", "0.10"))
	res := Resolve(s, decimal.Zero, d("2"), d("19.90"), money.DefaultPolicy)

	assertSlices(t, res, []sliceWant{
		{tier: 0, quantity: "1", revenue: "9.95", royalty: "1.00"},
		{tier: 1, quantity: "1", revenue: "9.95", royalty: "0.99"},
	})
	assert.Equal(t, "1.99", money.Fixed(res.Royalty))

	flat := Resolve(MustSchedule(row("0", "", "0.10")), decimal.Zero, d("2"), d("19.90"), money.DefaultPolicy)
	assert.True(t, res.Royalty.Equal(flat.Royalty))
}

func TestResolve_ZeroQuantity(t *testing.T) {
	res := Resolve(twoTier(), d("4500"), decimal.Zero, d("35.00"), money.DefaultPolicy)

	assert.Empty(t, res.Slices)
	assert.True(t, res.Royalty.IsZero())
}

func TestResolve_NegativePeriodQuantity(t *testing.T) {
	res := Resolve(twoTier(), decimal.Zero, d("-20"), d("-200.00"), money.DefaultPolicy)

	assertSlices(t, res, []sliceWant{
		{tier: 0, quantity: "-20", revenue: "-200.00", royalty: "-20.00"},
	})
	assert.Equal(t, "-20.00", money.Fixed(res.Royalty))
}

func TestResolve_NegativeLifetimeWalksBackAcrossBoundary(t *testing.T) {
	res := Resolve(twoTier(), d("5010"), d("-20"), d("-400.00"), money.DefaultPolicy)

	assertSlices(t, res, []sliceWant{
		{tier: 0, quantity: "-9", revenue: "-180.00", royalty: "-18.00"},
		{tier: 1, quantity: "-11", revenue: "-220.00", royalty: "-26.40"},
	})
	assert.Equal(t, "-44.40", money.Fixed(res.Royalty))
}

func TestResolve_ReturnsBeyondLifetimeLandInFirstTier(t *testing.T) {
	res := Resolve(twoTier(), d("10"), d("-30"), d("-300.00"), money.DefaultPolicy)

	assertSlices(t, res, []sliceWant{
		{tier: 0, quantity: "-30", revenue: "-300.00", royalty: "-30.00"},
	})
}

func TestResolve_Properties(t *testing.T) {
	schedules := []Schedule{twoTier(), threeTier()}
	befores := []string{"0", "1", "998", "999", "1000", "4500", "4999", "5000", "12000"}
	quantities := []string{"1", "2", "500", "1001", "4000", "7777", "-1", "-500", "-13000"}
	unitPrice := d("12.99")

	for si, s := range schedules {
		for _, b := range befores {
			for _, q := range quantities {
				name := fmt.Sprintf("s%d/before=%s/q=%s", si, b, q)
				quantity := d(q)
				revenue := quantity.Mul(unitPrice)
				res := Resolve(s, d(b), quantity, revenue, money.DefaultPolicy)

				qtySum, revSum, royaltySum := decimal.Zero, decimal.Zero, decimal.Zero
				for _, slice := range res.Slices {
					qtySum = qtySum.Add(slice.Quantity)
					revSum = revSum.Add(slice.Revenue)
					royaltySum = royaltySum.Add(slice.Royalty)
					assert.Equal(t, quantity.Sign(), slice.Quantity.Sign(), name)
				}
				assert.True(t, qtySum.Equal(quantity), "%s quantity %s", name, qtySum)
				assert.True(t, revSum.Equal(revenue), "%s revenue %s", name, revSum)
				assert.True(t, royaltySum.Equal(res.Royalty), name)

				if quantity.IsPositive() {
					tolerance := d("0.005").Mul(decimal.NewFromInt(int64(len(res.Slices))))
					ceiling := revenue.Mul(s.TopRate()).Add(tolerance)
					assert.True(t, res.Royalty.LessThanOrEqual(ceiling), "%s royalty %s > %s", name, res.Royalty, ceiling)
				}

				again := Resolve(s, d(b), quantity, revenue, money.DefaultPolicy)
				assert.Equal(t, res, again, "%s must be deterministic", name)
			}
		}
	}
}
