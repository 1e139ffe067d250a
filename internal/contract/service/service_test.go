package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	"github.com/smallbiznis/royalty/internal/clock"
	contractdomain "github.com/smallbiznis/royalty/internal/contract/domain"
	"github.com/smallbiznis/royalty/internal/contract/repository"
	ledgerdomain "github.com/smallbiznis/royalty/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/royalty/internal/ledger/service"
	lifetimedomain "github.com/smallbiznis/royalty/internal/lifetime/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	tierdomain "github.com/smallbiznis/royalty/internal/tier/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/db/dbtest"
	"github.com/smallbiznis/royalty/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc    *Service
	db     *gorm.DB
	ledger ledgerdomain.Service
	node   *snowflake.Node
}

func newFixture(t *testing.T) fixture {
	conn := dbtest.Open(t,
		&contractdomain.RoyaltyContract{},
		&contractdomain.RoyaltyTier{},
		&ledgerdomain.LedgerEntry{},
	)
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	ledger := ledgerservice.NewService(ledgerservice.Params{DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk})
	svc := New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   repository.Provide(),
		Ledger: ledger,
		Clock:  clk,
	}).(*Service)
	return fixture{svc: svc, db: conn, ledger: ledger, node: node}
}

func strPtr(s string) *string { return &s }

func hardcoverRequest() contractdomain.CreateRequest {
	return contractdomain.CreateRequest{
		TitleID:       "title-1",
		TierMode:      "lifetime",
		AdvanceAmount: "5000.00",
		Tiers: map[string][]contractdomain.TierInput{
			"hardcover": {
				{MinQuantity: "5000", Rate: "0.12"},
				{MinQuantity: "0", MaxQuantity: strPtr("4999"), Rate: "0.10"},
			},
			"Ebook": {
				{MinQuantity: "0", Rate: "0.25"},
			},
		},
	}
}

func TestCreate_StoresSortedTiersAndSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, hardcoverRequest())
	require.NoError(t, err)
	assert.Equal(t, royaltydomain.ContractStatusActive, created.Status)
	assert.Equal(t, lifetimedomain.ModeLifetime, created.TierMode)
	require.Len(t, created.Tiers, 3)

	snapshot, err := f.svc.Snapshot(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "title-1", snapshot.TitleID)
	assert.True(t, snapshot.AdvanceAmount.Equal(money.MustParse("5000")))
	assert.True(t, snapshot.AdvanceRecouped.IsZero())

	hardcover, ok := snapshot.Tiers[catalogdomain.FormatHardcover]
	require.True(t, ok)
	require.Equal(t, 2, hardcover.Len())
	upper, bounded := hardcover.Tier(0).Max()
	assert.True(t, bounded)
	assert.True(t, upper.Equal(money.MustParse("4999")))
	assert.True(t, hardcover.Tier(1).Rate().Equal(money.MustParse("0.12")))

	ebook, ok := snapshot.Tiers[catalogdomain.FormatEbook]
	require.True(t, ok)
	assert.Equal(t, 1, ebook.Len())
	assert.True(t, snapshot.EffectiveFrom.IsZero(), "first contract on a title counts its whole history")
}

func TestCreate_LaterContractOnTitleStartsAtCreation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, hardcoverRequest())
	require.NoError(t, err)

	renewed, err := f.svc.Create(ctx, hardcoverRequest())
	require.NoError(t, err)
	require.NotNil(t, renewed.EffectiveFrom)
	assert.True(t, renewed.EffectiveFrom.Equal(f.svc.clock.Now()))

	explicit := hardcoverRequest()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	explicit.EffectiveFrom = &from
	created, err := f.svc.Create(ctx, explicit)
	require.NoError(t, err)

	snapshot, err := f.svc.Snapshot(ctx, created.ID.String())
	require.NoError(t, err)
	assert.True(t, snapshot.EffectiveFrom.Equal(from))
}

func TestCreate_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*contractdomain.CreateRequest)
		class  calcerr.Class
		target error
	}{
		{
			name:   "missing title",
			mutate: func(r *contractdomain.CreateRequest) { r.TitleID = " " },
			class:  calcerr.ClassInput,
			target: contractdomain.ErrInvalidTitle,
		},
		{
			name:   "unknown tier mode",
			mutate: func(r *contractdomain.CreateRequest) { r.TierMode = "rolling" },
			class:  calcerr.ClassInput,
			target: lifetimedomain.ErrInvalidMode,
		},
		{
			name:   "malformed advance",
			mutate: func(r *contractdomain.CreateRequest) { r.AdvanceAmount = "5k" },
			class:  calcerr.ClassInput,
			target: calcerr.ErrMalformedDecimal,
		},
		{
			name:   "recouped above advance",
			mutate: func(r *contractdomain.CreateRequest) { r.AdvanceRecouped = "6000" },
			class:  calcerr.ClassInput,
			target: contractdomain.ErrRecoupedExceeds,
		},
		{
			name: "tier gap",
			mutate: func(r *contractdomain.CreateRequest) {
				r.Tiers["hardcover"][0].MinQuantity = "5100"
			},
			class:  calcerr.ClassConfiguration,
			target: tierdomain.ErrTierGap,
		},
		{
			name:   "no tiers",
			mutate: func(r *contractdomain.CreateRequest) { r.Tiers = nil },
			class:  calcerr.ClassConfiguration,
			target: tierdomain.ErrEmptySchedule,
		},
		{
			name: "unknown format",
			mutate: func(r *contractdomain.CreateRequest) {
				r.Tiers["vinyl"] = []contractdomain.TierInput{{MinQuantity: "0", Rate: "0.1"}}
			},
			class:  calcerr.ClassInput,
			target: catalogdomain.ErrInvalidFormat,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := hardcoverRequest()
			tc.mutate(&req)
			_, err := f.svc.Create(ctx, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.target)
			assert.Equal(t, tc.class, calcerr.Classify(err))
		})
	}
}

func TestUpdateStatus_TerminatedIsFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, hardcoverRequest())
	require.NoError(t, err)
	id := created.ID.String()

	updated, err := f.svc.UpdateStatus(ctx, id, "suspended")
	require.NoError(t, err)
	assert.Equal(t, royaltydomain.ContractStatusSuspended, updated.Status)

	_, err = f.svc.UpdateStatus(ctx, id, "terminated")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, id, "active")
	assert.ErrorIs(t, err, contractdomain.ErrContractTerminated)

	_, err = f.svc.UpdateStatus(ctx, id, "paused")
	assert.ErrorIs(t, err, contractdomain.ErrInvalidStatus)

	suspended, err := f.svc.List(ctx, contractdomain.ListRequest{Status: "terminated"})
	require.NoError(t, err)
	require.Len(t, suspended, 1)
	assert.Equal(t, created.ID, suspended[0].ID)
}

func TestRecordAdditionalAdvancePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := hardcoverRequest()
	req.AdvanceRecouped = "4000.00"
	created, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	id := created.ID.String()

	updated, err := f.svc.RecordAdditionalAdvancePayment(ctx, contractdomain.AdvancePaymentRequest{
		ContractID: id,
		Amount:     "600.00",
	})
	require.NoError(t, err)
	assert.Equal(t, "4600.00", money.Fixed(updated.AdvanceRecouped))

	entries, err := f.ledger.ListForContract(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledgerdomain.SourceTypeManualPayment, entries[0].SourceType)
	assert.Equal(t, "600.00", money.Fixed(entries[0].Amount))
	assert.Equal(t, "4600.00", money.Fixed(entries[0].RecoupedAfter))

	_, err = f.svc.RecordAdditionalAdvancePayment(ctx, contractdomain.AdvancePaymentRequest{
		ContractID: id,
		Amount:     "400.01",
	})
	require.Error(t, err)
	assert.True(t, calcerr.IsInput(err))

	_, err = f.svc.RecordAdditionalAdvancePayment(ctx, contractdomain.AdvancePaymentRequest{
		ContractID: id,
		Amount:     "400.00",
	})
	require.NoError(t, err)

	_, err = f.svc.RecordAdditionalAdvancePayment(ctx, contractdomain.AdvancePaymentRequest{
		ContractID: id,
		Amount:     "1.00",
	})
	require.Error(t, err)
	assert.True(t, calcerr.IsInput(err))
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), f.node.Generate().String())
	assert.ErrorIs(t, err, contractdomain.ErrNotFound)

	_, err = f.svc.Get(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, contractdomain.ErrInvalidID)
}

func TestToSnapshot_ReportsBrokenRows(t *testing.T) {
	contract := &contractdomain.RoyaltyContract{
		ID:       1,
		TitleID:  "title-1",
		Status:   royaltydomain.ContractStatusActive,
		TierMode: lifetimedomain.ModePeriod,
		Tiers: []contractdomain.RoyaltyTier{
			{Format: catalogdomain.FormatEbook, Position: 0, MinQuantity: money.MustParse("0"), Rate: money.MustParse("0.25")},
			{Format: catalogdomain.FormatEbook, Position: 1, MinQuantity: money.MustParse("100"), Rate: money.MustParse("0.30")},
		},
	}

	_, err := ToSnapshot(contract)
	require.Error(t, err)
	assert.True(t, calcerr.IsConfiguration(err))
	assert.ErrorIs(t, err, tierdomain.ErrUnboundedNotLast)
}
