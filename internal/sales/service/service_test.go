package service

import (
	"context"
	"testing"
	"time"

	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	returnsdomain "github.com/smallbiznis/royalty/internal/returns/domain"
	salesdomain "github.com/smallbiznis/royalty/internal/sales/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/db/dbtest"
	"github.com/smallbiznis/royalty/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) salesdomain.Service {
	conn := dbtest.Open(t, &salesdomain.SaleRow{}, &salesdomain.ReturnRow{})
	return New(Params{DB: conn, Log: zap.NewNop(), GenID: dbtest.Node(t)})
}

func day(month time.Month, d int) time.Time {
	return time.Date(2026, month, d, 12, 0, 0, 0, time.UTC)
}

func line(format, qty, price string, at time.Time) salesdomain.LineInput {
	return salesdomain.LineInput{Format: format, Quantity: qty, UnitPrice: price, TransactionDate: at}
}

func q1() catalogdomain.Period {
	p, _ := catalogdomain.NewPeriod(
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	)
	return p
}

func TestAppendAndListInPeriod(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Append(ctx, salesdomain.AppendRequest{
		TitleID: "title-1",
		Sales: []salesdomain.LineInput{
			line("hardcover", "10", "20.00", day(time.February, 1)),
			line("ebook", "4", "9.99", day(time.January, 15)),
			line("hardcover", "3", "20.00", day(time.April, 2)),
		},
		Returns: []salesdomain.LineInput{
			line("hardcover", "2", "20.00", day(time.March, 3)),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Sales)
	assert.Equal(t, 1, resp.Returns)

	_, err = svc.Append(ctx, salesdomain.AppendRequest{
		TitleID: "title-2",
		Sales:   []salesdomain.LineInput{line("ebook", "100", "5", day(time.February, 1))},
	})
	require.NoError(t, err)

	records, err := svc.ListInPeriod(ctx, "title-1", q1())
	require.NoError(t, err)
	require.Len(t, records.Sales, 2)
	require.Len(t, records.Returns, 1)
	assert.Equal(t, catalogdomain.FormatEbook, records.Sales[0].Format)
	assert.Equal(t, catalogdomain.FormatHardcover, records.Sales[1].Format)
	assert.True(t, records.Returns[0].Quantity.Equal(money.MustParse("2")))

	netted, err := returnsdomain.NetSales(records.Sales, records.Returns)
	require.NoError(t, err)
	assert.Equal(t, "160.00", money.Fixed(netted[catalogdomain.FormatHardcover].NetRevenue))
}

func TestAppend_ValidatesBeforeWriting(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  salesdomain.AppendRequest
	}{
		{name: "missing title", req: salesdomain.AppendRequest{Sales: []salesdomain.LineInput{line("ebook", "1", "1", day(time.January, 2))}}},
		{name: "empty", req: salesdomain.AppendRequest{TitleID: "title-1"}},
		{name: "bad format", req: salesdomain.AppendRequest{TitleID: "title-1", Sales: []salesdomain.LineInput{line("vinyl", "1", "1", day(time.January, 2))}}},
		{name: "malformed quantity", req: salesdomain.AppendRequest{TitleID: "title-1", Sales: []salesdomain.LineInput{line("ebook", "one", "1", day(time.January, 2))}}},
		{name: "negative return", req: salesdomain.AppendRequest{TitleID: "title-1", Returns: []salesdomain.LineInput{line("ebook", "-1", "1", day(time.January, 2))}}},
		{name: "missing date", req: salesdomain.AppendRequest{TitleID: "title-1", Sales: []salesdomain.LineInput{line("ebook", "1", "1", time.Time{})}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Append(ctx, tc.req)
			require.Error(t, err)
			assert.Equal(t, calcerr.ClassInput, calcerr.Classify(err))
		})
	}

	// A bad line anywhere in the batch keeps the good ones out too.
	_, err := svc.Append(ctx, salesdomain.AppendRequest{
		TitleID: "title-1",
		Sales: []salesdomain.LineInput{
			line("ebook", "1", "1", day(time.January, 2)),
			line("ebook", "1", "-1", day(time.January, 3)),
		},
	})
	require.Error(t, err)

	records, err := svc.ListInPeriod(ctx, "title-1", q1())
	require.NoError(t, err)
	assert.Empty(t, records.Sales)
}

func TestPriorTotals_NetsReturnsPerFormat(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, salesdomain.AppendRequest{
		TitleID: "title-1",
		Sales: []salesdomain.LineInput{
			line("hardcover", "4000", "20.00", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
			line("hardcover", "600", "20.00", time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)),
			line("hardcover", "500", "20.00", day(time.February, 1)),
		},
		Returns: []salesdomain.LineInput{
			line("hardcover", "100", "20.00", time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)),
		},
	})
	require.NoError(t, err)

	prior, err := svc.PriorTotals(ctx, "title-1", time.Time{}, q1().Start)
	require.NoError(t, err)
	require.Contains(t, prior, catalogdomain.FormatHardcover)
	assert.True(t, prior[catalogdomain.FormatHardcover].Quantity.Equal(money.MustParse("4500")))
	assert.Equal(t, "90000.00", money.Fixed(prior[catalogdomain.FormatHardcover].Revenue))

	empty, err := svc.PriorTotals(ctx, "title-9", time.Time{}, q1().Start)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPriorTotals_StartsAtContractStart(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, salesdomain.AppendRequest{
		TitleID: "title-1",
		Sales: []salesdomain.LineInput{
			line("hardcover", "6000", "20.00", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
			line("hardcover", "250", "20.00", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)),
		},
	})
	require.NoError(t, err)

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prior, err := svc.PriorTotals(ctx, "title-1", since, q1().Start)
	require.NoError(t, err)
	assert.True(t, prior[catalogdomain.FormatHardcover].Quantity.Equal(money.MustParse("250")))
}

func TestListInPeriod_BoundaryBelongsToLaterPeriod(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	boundary := q1().End
	_, err := svc.Append(ctx, salesdomain.AppendRequest{
		TitleID: "title-1",
		Sales:   []salesdomain.LineInput{line("ebook", "1", "9.99", boundary)},
	})
	require.NoError(t, err)

	first, err := svc.ListInPeriod(ctx, "title-1", q1())
	require.NoError(t, err)
	assert.Empty(t, first.Sales)

	q2, err := catalogdomain.NewPeriod(boundary, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	second, err := svc.ListInPeriod(ctx, "title-1", q2)
	require.NoError(t, err)
	assert.Len(t, second.Sales, 1)
}
