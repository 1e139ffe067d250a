package repository

import (
	"context"
	"testing"

	ownershipdomain "github.com/smallbiznis/royalty/internal/ownership/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/db/dbtest"
	"github.com/smallbiznis/royalty/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) ownershipdomain.Store {
	conn := dbtest.Open(t, &ownershipdomain.TitleAuthor{})
	return New(Params{DB: conn, Log: zap.NewNop()})
}

func TestLoadSet_NoRows(t *testing.T) {
	store := newTestStore(t)

	set, err := store.LoadSet(context.Background(), "title-1")
	require.NoError(t, err)
	assert.Nil(t, set)
}

func TestReplaceSplit_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ReplaceSplit(ctx, "title-1", []ownershipdomain.ShareInput{
		{AuthorID: "a-1", Percentage: "60.00", IsPrimary: true},
		{AuthorID: "a-2", Percentage: "40.00"},
	})
	require.NoError(t, err)

	set, err := store.LoadSet(ctx, "title-1")
	require.NoError(t, err)
	require.NotNil(t, set)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, "a-1", set.Primary().AuthorID)
	share, ok := set.Share("a-2")
	require.True(t, ok)
	assert.True(t, share.Percentage.Equal(money.MustParse("40")))

	// Replacing shrinks the set; the old rows are gone.
	_, err = store.ReplaceSplit(ctx, "title-1", []ownershipdomain.ShareInput{
		{AuthorID: "a-3", Percentage: "100", IsPrimary: true},
	})
	require.NoError(t, err)

	set, err = store.LoadSet(ctx, "title-1")
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, "a-3", set.Primary().AuthorID)
}

func TestReplaceSplit_InvalidKeepsExistingRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.EqualSplitFor(ctx, "title-1", []string{"a-1", "a-2"})
	require.NoError(t, err)

	_, err = store.ReplaceSplit(ctx, "title-1", []ownershipdomain.ShareInput{
		{AuthorID: "a-1", Percentage: "60", IsPrimary: true},
		{AuthorID: "a-2", Percentage: "39.99"},
	})
	require.Error(t, err)
	assert.True(t, calcerr.IsConfiguration(err))
	assert.ErrorIs(t, err, ownershipdomain.ErrOwnershipSumMismatch)

	_, err = store.ReplaceSplit(ctx, "title-1", []ownershipdomain.ShareInput{
		{AuthorID: "a-1", Percentage: "sixty", IsPrimary: true},
	})
	require.Error(t, err)
	assert.True(t, calcerr.IsInput(err))

	set, err := store.LoadSet(ctx, "title-1")
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
}

func TestEqualSplitFor_LastAuthorAbsorbsRemainder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.EqualSplitFor(ctx, "title-1", []string{"a-1", "a-2", "a-3"})
	require.NoError(t, err)

	set, err := store.LoadSet(ctx, "title-1")
	require.NoError(t, err)
	shares := set.Shares()
	require.Len(t, shares, 3)
	assert.Equal(t, "33.33", shares[0].Percentage.StringFixed(2))
	assert.Equal(t, "33.33", shares[1].Percentage.StringFixed(2))
	assert.Equal(t, "a-3", shares[2].AuthorID)
	assert.Equal(t, "33.34", shares[2].Percentage.StringFixed(2))
	assert.True(t, shares[0].IsPrimary)
}
