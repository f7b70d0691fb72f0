package rate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es la versión in-process de RedisLimiter.
type MemoryLimiter struct {
	c      *gocache.Cache
	Prefix string
	Max    int64
	Window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(prefix string, max int, window time.Duration) *MemoryLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &MemoryLimiter{
		c:      gocache.New(window, 2*window),
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.Window)
	k := windowKey(l.Prefix, key, winStart)
	ttl := winStart.Add(l.Window).Sub(now)

	var hits int64 = 1
	if err := l.c.Add(k, int64(1), ttl); err != nil {
		// ya existe en esta ventana
		n, err := l.c.IncrementInt64(k, 1)
		if err != nil {
			return Result{}, err
		}
		hits = n
	}
	return result(hits, l.Max, ttl, l.Window), nil
}
