// Package cache provee un key/value con TTL con dos backends:
//
//   - memory: in-process sobre patrickmn/go-cache (dev, tests, single node)
//   - redis: go-redis v9 (varias réplicas del IdP comparten códigos y revocaciones)
//
// Lo usan grantstore (codes, refresh tokens, revocaciones) y, en modo memory,
// el rate limiter.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) (string, error)

	// GetDel obtiene y borra atómicamente. Base de los registros de un solo uso.
	GetDel(ctx context.Context, key string) (string, error)

	// Set guarda un valor. ttl <= 0 significa sin expiración.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX guarda sólo si la key no existe. Devuelve true si la escribió.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Config para construir un Client.
type Config struct {
	Kind       string // "memory" | "redis"
	Addr       string // host:port de redis
	Password   string
	DB         int
	Prefix     string
	DefaultTTL time.Duration // sólo memory: expiración por defecto del go-cache
}

// ErrNotFound indica key inexistente o expirada.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound reporta si err es (o envuelve) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// New crea un cliente según cfg.Kind.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(ctx, cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	default:
		return nil, fmt.Errorf("cache: unknown kind %q", cfg.Kind)
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
