package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_ExclusiveUntilUnlock(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "worker:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "worker:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	_, ok, _ = l.TryLock(ctx, "worker:2", time.Minute)
	assert.True(t, ok, "other keys are independent")

	unlock()
	_, ok, _ = l.TryLock(ctx, "worker:1", time.Minute)
	assert.True(t, ok)
}

func TestLocalLocker_ExpiredLeaseIsReclaimed(t *testing.T) {
	l := NewLocalLocker()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	staleUnlock, ok, _ := l.TryLock(ctx, "k", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = l.TryLock(ctx, "k", time.Minute)
	require.True(t, ok, "expired lease should be taken over")

	// The stale holder must not release the new lease.
	staleUnlock()
	_, ok, _ = l.TryLock(ctx, "k", time.Minute)
	assert.False(t, ok)
}
