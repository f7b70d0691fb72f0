package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient implementa Client usando Redis.
type redisClient struct {
	client *redis.Client
	prefix string
}

// NewRedis crea un cliente y verifica la conexión con un PING (timeout 5s).
func NewRedis(ctx context.Context, cfg Config) (Client, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}
	return NewRedisWithClient(rdb, cfg.Prefix), nil
}

// NewRedisWithClient envuelve un cliente existente (tests con miniredis, o
// para compartir el pool con el rate limiter).
func NewRedisWithClient(rdb *redis.Client, prefix string) Client {
	return &redisClient{client: rdb, prefix: prefix}
}

// RedisOf devuelve el *redis.Client subyacente si c es el backend redis. El
// rate limiter lo usa para compartir el pool.
func RedisOf(c Client) (*redis.Client, bool) {
	rc, ok := c.(*redisClient)
	if !ok {
		return nil, false
	}
	return rc.client, true
}

func (c *redisClient) key(k string) string { return prefixed(c.prefix, k) }

func notFound(err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return err
}

func (c *redisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		return "", notFound(err)
	}
	return v, nil
}

func (c *redisClient) GetDel(ctx context.Context, key string) (string, error) {
	v, err := c.client.GetDel(ctx, c.key(key)).Result()
	if err != nil {
		return "", notFound(err)
	}
	return v, nil
}

func (c *redisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *redisClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	return c.client.SetNX(ctx, c.key(key), value, ttl).Result()
}

func (c *redisClient) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

func (c *redisClient) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *redisClient) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }
func (c *redisClient) Close() error                   { return c.client.Close() }
