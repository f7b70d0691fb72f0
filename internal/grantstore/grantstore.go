// Package grantstore guarda los registros efímeros del motor de grants:
// authorization codes, refresh tokens y revocaciones.
//
// Todos viven en un cache.Client. La key es el SHA-256 (base64url) del valor
// opaco; el valor nunca se guarda en claro. Consume es atómico (GetDel), así
// que un code o refresh token sólo puede canjearse una vez aunque haya varias
// réplicas compartiendo redis.
package grantstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/mockidp/internal/cache"
	tokens "github.com/dropDatabas3/mockidp/internal/security/token"
)

// ErrNotFound: inexistente, expirado o ya consumido.
var ErrNotFound = errors.New("grantstore: not found")

const (
	codePrefix    = "code:"
	refreshPrefix = "rt:"
	jtiPrefix     = "revoked:jti:"
	rawPrefix     = "revoked:tok:"
)

func put(ctx context.Context, c cache.Client, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, string(b), ttl)
}

func take(ctx context.Context, c cache.Client, key string, out any, del bool) error {
	var (
		raw string
		err error
	)
	if del {
		raw, err = c.GetDel(ctx, key)
	} else {
		raw, err = c.Get(ctx, key)
	}
	if err != nil {
		if cache.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("grantstore: decode %s: %w", key, err)
	}
	return nil
}

func hashKey(prefix, opaque string) string { return prefix + tokens.SHA256Base64URL(opaque) }

// AuthCode es lo que queda ligado a un authorization code.
type AuthCode struct {
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri,omitempty"`
	Scope               string    `json:"scope,omitempty"`
	Subject             string    `json:"sub"`
	Nonce               string    `json:"nonce,omitempty"`
	AuthTime            time.Time `json:"auth_time"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	ExpiresAt           time.Time `json:"exp"`
}

type Codes struct {
	c   cache.Client
	ttl time.Duration
}

func NewCodes(c cache.Client, ttl time.Duration) *Codes { return &Codes{c: c, ttl: ttl} }

// Issue genera un code opaco nuevo y guarda rec bajo su hash.
func (s *Codes) Issue(ctx context.Context, rec AuthCode, now time.Time) (string, error) {
	code, err := tokens.GenerateOpaqueToken(tokens.DefaultBytes)
	if err != nil {
		return "", err
	}
	if err := s.Save(ctx, code, rec, now); err != nil {
		return "", err
	}
	return code, nil
}

func (s *Codes) Save(ctx context.Context, code string, rec AuthCode, now time.Time) error {
	rec.ExpiresAt = now.Add(s.ttl)
	return put(ctx, s.c, hashKey(codePrefix, code), rec, s.ttl)
}

// Consume devuelve el registro y lo borra. Un segundo Consume da ErrNotFound.
func (s *Codes) Consume(ctx context.Context, code string) (*AuthCode, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	var rec AuthCode
	if err := take(ctx, s.c, hashKey(codePrefix, code), &rec, true); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RefreshRecord es lo que queda ligado a un refresh token.
type RefreshRecord struct {
	ClientID  string    `json:"client_id"`
	Subject   string    `json:"sub"`
	Scope     string    `json:"scope,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

type Refresh struct {
	c   cache.Client
	ttl time.Duration
}

func NewRefresh(c cache.Client, ttl time.Duration) *Refresh { return &Refresh{c: c, ttl: ttl} }

func (s *Refresh) TTL() time.Duration { return s.ttl }

// Issue genera un refresh token opaco ligado a rec.
func (s *Refresh) Issue(ctx context.Context, rec RefreshRecord, now time.Time) (string, error) {
	tok, err := tokens.GenerateOpaqueToken(tokens.DefaultBytes)
	if err != nil {
		return "", err
	}
	rec.IssuedAt = now
	rec.ExpiresAt = now.Add(s.ttl)
	if err := put(ctx, s.c, hashKey(refreshPrefix, tok), rec, s.ttl); err != nil {
		return "", err
	}
	return tok, nil
}

// Consume canjea (rota) el refresh token.
func (s *Refresh) Consume(ctx context.Context, tok string) (*RefreshRecord, error) {
	if tok == "" {
		return nil, ErrNotFound
	}
	var rec RefreshRecord
	if err := take(ctx, s.c, hashKey(refreshPrefix, tok), &rec, true); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Peek lee sin consumir (introspección).
func (s *Refresh) Peek(ctx context.Context, tok string) (*RefreshRecord, error) {
	if tok == "" {
		return nil, ErrNotFound
	}
	var rec RefreshRecord
	if err := take(ctx, s.c, hashKey(refreshPrefix, tok), &rec, false); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete revoca el refresh token. Inexistente no es error.
func (s *Refresh) Delete(ctx context.Context, tok string) error {
	if tok == "" {
		return nil
	}
	return s.c.Delete(ctx, hashKey(refreshPrefix, tok))
}

// Revocations implementa jwt.RevocationChecker.
type Revocations struct {
	c      cache.Client
	maxTTL time.Duration
}

// NewRevocations: maxTTL acota cuánto se recuerda un token crudo revocado
// cuando no se conoce su exp.
func NewRevocations(c cache.Client, maxTTL time.Duration) *Revocations {
	return &Revocations{c: c, maxTTL: maxTTL}
}

// RevokeJTI recuerda el jti hasta exp. Si exp ya pasó no hace nada: el token
// ya no verifica.
func (r *Revocations) RevokeJTI(ctx context.Context, jti string, exp, now time.Time) error {
	if jti == "" {
		return nil
	}
	ttl := exp.Sub(now)
	if exp.IsZero() {
		ttl = r.maxTTL
	}
	if ttl <= 0 {
		return nil
	}
	return r.c.Set(ctx, jtiPrefix+jti, "1", ttl)
}

// RevokeToken recuerda el hash de un token crudo (opacos, JWT sin jti).
func (r *Revocations) RevokeToken(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return r.c.Set(ctx, hashKey(rawPrefix, raw), "1", r.maxTTL)
}

func (r *Revocations) IsRevoked(ctx context.Context, jti, raw string) (bool, error) {
	if jti != "" {
		ok, err := r.c.Exists(ctx, jtiPrefix+jti)
		if err != nil || ok {
			return ok, err
		}
	}
	if raw == "" {
		return false, nil
	}
	return r.c.Exists(ctx, hashKey(rawPrefix, raw))
}
