package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client), mr
}

func TestLockerExcludesSecondHolder(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	first, err := locker.Acquire(ctx, PeriodLockKey(7), time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, PeriodLockKey(7), time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	other, err := locker.Acquire(ctx, PeriodLockKey(8), time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	again, err := locker.Acquire(ctx, PeriodLockKey(7), time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLockReleaseKeepsForeignToken(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, AutosaveLockKey(3), time.Minute)
	require.NoError(t, err)

	require.NoError(t, mr.Set(AutosaveLockKey(3), "someone-else"))
	require.NoError(t, lock.Release(ctx))

	got, err := mr.Get(AutosaveLockKey(3))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestAcquireWaitGivesUpAfterDeadline(t *testing.T) {
	locker, _ := newTestLocker(t)
	locker.poll = 5 * time.Millisecond
	ctx := context.Background()

	held, err := locker.Acquire(ctx, AutosaveLockKey(1), time.Minute)
	require.NoError(t, err)
	defer func() { _ = held.Release(ctx) }()

	_, err = locker.AcquireWait(ctx, AutosaveLockKey(1), time.Minute, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockHeld)
}

func TestAcquireWaitSucceedsOnceReleased(t *testing.T) {
	locker, _ := newTestLocker(t)
	locker.poll = 5 * time.Millisecond
	ctx := context.Background()

	held, err := locker.Acquire(ctx, AutosaveLockKey(2), time.Minute)
	require.NoError(t, err)
	go func() {
		time.Sleep(15 * time.Millisecond)
		_ = held.Release(ctx)
	}()

	lock, err := locker.AcquireWait(ctx, AutosaveLockKey(2), time.Minute, time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx))
}
