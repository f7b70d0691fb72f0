package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/sync/singleflight"
)

var ErrNoActiveKey = errors.New("no_active_signing_key")

// KeyStore persiste las claves de firma. ActiveSigningKey devuelve
// ErrNoActiveKey si no hay ninguna.
type KeyStore interface {
	ActiveSigningKey(ctx context.Context) (*SigningKey, error)
	ListPublicSigningKeys(ctx context.Context) ([]SigningKey, error)
	InsertSigningKey(ctx context.Context, k *SigningKey) error
}

// KeyManager cachea la clave activa y el JWKS sobre un KeyStore.
// Se inyecta al Codec y al controller de /certs; no hay instancia global.
type KeyManager struct {
	store KeyStore
	sf    singleflight.Group

	mu         sync.RWMutex
	active     *SigningKey
	cacheUntil time.Time
	cacheTTL   time.Duration

	jwks      []byte
	jwksUntil time.Time
	jwksTTL   time.Duration
}

func NewKeyManager(store KeyStore) *KeyManager {
	return &KeyManager{
		store:    store,
		cacheTTL: 30 * time.Second,
		jwksTTL:  15 * time.Second,
	}
}

// EnsureBootstrap genera y guarda una clave si no hay activa. Llamadas
// concurrentes comparten la misma generación.
func (m *KeyManager) EnsureBootstrap(ctx context.Context) error {
	_, err, _ := m.sf.Do("bootstrap", func() (any, error) {
		_, err := m.store.ActiveSigningKey(ctx)
		if err == nil {
			return nil, nil
		}
		if !errors.Is(err, ErrNoActiveKey) {
			return nil, err
		}
		k, err := GenerateSigningKey()
		if err != nil {
			return nil, err
		}
		if err := m.store.InsertSigningKey(ctx, k); err != nil {
			return nil, err
		}
		m.invalidate()
		return nil, nil
	})
	return err
}

func (m *KeyManager) invalidate() {
	m.mu.Lock()
	m.active = nil
	m.cacheUntil = time.Time{}
	m.jwks = nil
	m.jwksUntil = time.Time{}
	m.mu.Unlock()
}

// ActiveSigningKey devuelve la clave activa (cacheada cacheTTL).
func (m *KeyManager) ActiveSigningKey(ctx context.Context) (*SigningKey, error) {
	m.mu.RLock()
	if m.active != nil && time.Now().Before(m.cacheUntil) {
		k := m.active
		m.mu.RUnlock()
		return k, nil
	}
	m.mu.RUnlock()

	k, err := m.store.ActiveSigningKey(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.active = k
	m.cacheUntil = time.Now().Add(m.cacheTTL)
	m.mu.Unlock()
	return k, nil
}

// PublicKeys lista activas + retiring sin material privado.
func (m *KeyManager) PublicKeys(ctx context.Context) ([]SigningKey, error) {
	return m.store.ListPublicSigningKeys(ctx)
}

// PublicJWKS devuelve el JWK Set público (lo que se sirve en /certs).
func (m *KeyManager) PublicJWKS(ctx context.Context) (jwk.Set, error) {
	keys, err := m.store.ListPublicSigningKeys(ctx)
	if err != nil {
		return nil, err
	}
	return BuildJWKS(keys)
}

// JWKSJSON serializa PublicJWKS con un cache corto.
func (m *KeyManager) JWKSJSON(ctx context.Context) ([]byte, error) {
	m.mu.RLock()
	if len(m.jwks) > 0 && time.Now().Before(m.jwksUntil) {
		b := m.jwks
		m.mu.RUnlock()
		return b, nil
	}
	m.mu.RUnlock()

	set, err := m.PublicJWKS(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(set)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.jwks = b
	m.jwksUntil = time.Now().Add(m.jwksTTL)
	m.mu.Unlock()
	return b, nil
}
