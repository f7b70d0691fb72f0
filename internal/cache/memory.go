package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryClient implementa Client sobre go-cache.
// go-cache es thread-safe por operación; mu serializa las operaciones compuestas
// (GetDel) para que un código no pueda consumirse dos veces.
type memoryClient struct {
	mu     sync.Mutex
	c      *gocache.Cache
	prefix string
}

// NewMemory crea un cache en memoria. defaultTTL <= 0 deja los items sin
// expiración salvo que Set indique un ttl.
func NewMemory(prefix string, defaultTTL time.Duration) Client {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &memoryClient{
		c:      gocache.New(defaultTTL, time.Minute),
		prefix: prefix,
	}
}

func ttlOrForever(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (m *memoryClient) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(prefixed(m.prefix, key))
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *memoryClient) GetDel(_ context.Context, key string) (string, error) {
	k := prefixed(m.prefix, key)
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(k)
	if !ok {
		return "", ErrNotFound
	}
	m.c.Delete(k)
	s, _ := v.(string)
	return s, nil
}

func (m *memoryClient) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Set(prefixed(m.prefix, key), value, ttlOrForever(ttl))
	return nil
}

func (m *memoryClient) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Add falla si la key existe y no expiró
	if err := m.c.Add(prefixed(m.prefix, key), value, ttlOrForever(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *memoryClient) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Delete(prefixed(m.prefix, key))
	return nil
}

func (m *memoryClient) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.c.Get(prefixed(m.prefix, key))
	return ok, nil
}

func (m *memoryClient) Ping(context.Context) error { return nil }

func (m *memoryClient) Close() error {
	m.c.Flush()
	return nil
}
