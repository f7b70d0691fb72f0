package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends devuelve un Client por backend; fastForward avanza el reloj del backend.
func backends(t *testing.T) map[string]struct {
	c           Client
	fastForward func(time.Duration)
} {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return map[string]struct {
		c           Client
		fastForward func(time.Duration)
	}{
		"memory": {c: NewMemory("t", 0), fastForward: func(d time.Duration) { time.Sleep(d) }},
		"redis":  {c: NewRedisWithClient(rdb, "t"), fastForward: mr.FastForward},
	}
}

func TestClient_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.c.Get(ctx, "missing")
			assert.True(t, IsNotFound(err))

			require.NoError(t, b.c.Set(ctx, "k", "v", time.Minute))
			v, err := b.c.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "v", v)

			ok, err := b.c.Exists(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, b.c.Delete(ctx, "k"))
			_, err = b.c.Get(ctx, "k")
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestClient_GetDelIsSingleUse(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.c.Set(ctx, "code", "payload", time.Minute))

			v, err := b.c.GetDel(ctx, "code")
			require.NoError(t, err)
			assert.Equal(t, "payload", v)

			_, err = b.c.GetDel(ctx, "code")
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestClient_SetNX(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := b.c.SetNX(ctx, "once", "1", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = b.c.SetNX(ctx, "once", "2", time.Minute)
			require.NoError(t, err)
			assert.False(t, ok)

			v, _ := b.c.Get(ctx, "once")
			assert.Equal(t, "1", v)
		})
	}
}

func TestClient_Expiry(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.c.Set(ctx, "short", "v", 50*time.Millisecond))
			b.fastForward(120 * time.Millisecond)
			_, err := b.c.Get(ctx, "short")
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestMemory_GetDelConcurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("", 0)
	require.NoError(t, c.Set(ctx, "code", "x", time.Minute))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetDel(ctx, "code"); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: "memcached"})
	assert.Error(t, err)
}
