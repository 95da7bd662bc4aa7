package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func newTestLimiter(t *testing.T, limit int64, window time.Duration) (*auth.LoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return auth.NewLoginLimiter(client, limit, window), mr
}

func TestLimiterAllowsWithinBudget(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(context.Background(), "alice@example.com", "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d should be allowed", i+1)
	}

	ok, err := limiter.Allow(context.Background(), "alice@example.com", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok, "attempt over budget should be rejected")
}

func TestLimiterKeysByEmailAndAddress(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)

	ok, err := limiter.Allow(context.Background(), "alice@example.com", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Different address, fresh budget.
	ok, err = limiter.Allow(context.Background(), "alice@example.com", "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok)

	// Different email, fresh budget.
	ok, err = limiter.Allow(context.Background(), "bob@example.com", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiterWindowExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)

	ok, err := limiter.Allow(context.Background(), "alice@example.com", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(context.Background(), "alice@example.com", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = limiter.Allow(context.Background(), "alice@example.com", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiterResetClearsBudget(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)

	_, err := limiter.Allow(context.Background(), "alice@example.com", "10.0.0.1")
	require.NoError(t, err)

	limiter.Reset(context.Background(), "alice@example.com", "10.0.0.1")

	ok, err := limiter.Allow(context.Background(), "alice@example.com", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var limiter *auth.LoginLimiter
	ok, err := limiter.Allow(context.Background(), "anyone", "anywhere")
	require.NoError(t, err)
	assert.True(t, ok)
}
