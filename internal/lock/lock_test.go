package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("second holder is refused until release", func(t *testing.T) {
		l := NewLocalLocker()

		release, ok, err := l.TryLock(ctx, "dist-1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, err = l.TryLock(ctx, "dist-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		release()
		release2, ok, err := l.TryLock(ctx, "dist-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		release2()
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := NewLocalLocker()
		_, ok1, _ := l.TryLock(ctx, "dist-1", time.Minute)
		_, ok2, _ := l.TryLock(ctx, "dist-2", time.Minute)
		assert.True(t, ok1)
		assert.True(t, ok2)
	})

	t.Run("expired hold is free and stale release does not free the new holder", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		l := NewLocalLocker()
		l.clock = func() time.Time { return now }

		staleRelease, ok, _ := l.TryLock(ctx, "dist-1", time.Second)
		require.True(t, ok)

		now = now.Add(2 * time.Second)
		_, ok, _ = l.TryLock(ctx, "dist-1", time.Minute)
		require.True(t, ok)

		staleRelease()
		_, ok, _ = l.TryLock(ctx, "dist-1", time.Minute)
		assert.False(t, ok)
	})
}

func TestNewRedisLocker_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisLocker(ctx, "127.0.0.1:1", "")
	assert.Error(t, err)
}
