package commitlock

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/royalty/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	locker := NewLocalLocker(clk)
	key := StatementKey("42")
	assert.Equal(t, "statement:42", key)

	token, ok, err := locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// A stale token does not release the current holder.
	require.NoError(t, locker.Release(ctx, key, "someone-else"))
	_, ok, _ = locker.TryLock(ctx, key, time.Minute)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, key, token))
	second, ok, err := locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	clk.Advance(2 * time.Minute)
	third, ok, err := locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEqual(t, second, third)
}

func TestLockerArgs(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker(nil)

	_, _, err := locker.TryLock(ctx, "", time.Minute)
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, _, err = locker.TryLock(ctx, "k", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	var unconfigured *RedisLocker
	_, _, err = unconfigured.TryLock(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, unconfigured.Release(ctx, "k", "t"))
}
