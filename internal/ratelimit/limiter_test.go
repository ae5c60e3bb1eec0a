package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterBlocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ml := NewMemoryLimiter(Config{MaxAttempts: 3, Window: time.Minute})
	ml.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := ml.Allow(ctx, "maria@maternar.com")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
		require.NoError(t, ml.Record(ctx, "maria@maternar.com"))
	}

	ok, err := ml.Allow(ctx, "maria@maternar.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = ml.Allow(ctx, "joao@maternar.com")
	assert.True(t, ok, "limits are per subject")

	now = now.Add(time.Minute)
	ok, _ = ml.Allow(ctx, "maria@maternar.com")
	assert.True(t, ok, "window expired")
}

func TestMemoryLimiterReset(t *testing.T) {
	ctx := context.Background()
	ml := NewMemoryLimiter(Config{MaxAttempts: 1, Window: time.Hour})

	require.NoError(t, ml.Record(ctx, "a"))
	ok, _ := ml.Allow(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, ml.Reset(ctx, "a"))
	ok, _ = ml.Allow(ctx, "a")
	assert.True(t, ok)
}
