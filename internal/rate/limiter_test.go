package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 10, 0, time.UTC)
	l := NewMemoryLimiter("", 3, time.Minute)
	l.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "token:test-client:127.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i)
		assert.EqualValues(t, 3-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "token:test-client:127.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 50*time.Second, res.RetryAfter)

	other, err := l.Allow(ctx, "token:other:127.0.0.1")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	now = now.Add(time.Minute)
	res, err = l.Allow(ctx, "token:test-client:127.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "new window resets the counter")
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, "rl:", 2, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "login:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.EqualValues(t, 3, res.CurrentHits)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0), "window key must expire")
}
