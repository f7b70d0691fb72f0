package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// KeySource es lo que el Codec necesita de KeyManager.
type KeySource interface {
	ActiveSigningKey(ctx context.Context) (*SigningKey, error)
	PublicKeys(ctx context.Context) ([]SigningKey, error)
}

// RevocationChecker responde si un token fue revocado (por jti o por el token crudo).
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti, raw string) (bool, error)
}

// Codec firma y verifica JWT RS256.
type Codec struct {
	keys    KeySource
	revoked RevocationChecker
	now     func() time.Time
}

type CodecOption func(*Codec)

// WithClock reemplaza time.Now (tests de borde de expiración).
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// WithRevocations hace que Verify rechace tokens revocados.
func WithRevocations(r RevocationChecker) CodecOption {
	return func(c *Codec) { c.revoked = r }
}

func NewCodec(keys KeySource, opts ...CodecOption) *Codec {
	c := &Codec{keys: keys, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Sign firma claims con la clave activa. Header: {alg: RS256, typ: JWT, kid}.
// Si ctx se cancela antes de firmar no se devuelve nada.
func (c *Codec) Sign(ctx context.Context, claims map[string]any) (string, error) {
	key, err := c.keys.ActiveSigningKey(ctx)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, jwtv5.MapClaims(claims))
	tk.Header["kid"] = key.KID
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(key.Private)
	if err != nil {
		return "", &SigningError{Err: err}
	}
	return signed, nil
}

// Verify valida firma, exp y nbf (si están) y revocación. Devuelve las claims
// decodificadas tal cual vinieron en el payload.
func (c *Codec) Verify(ctx context.Context, raw string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, verr(ErrMalformedToken, errors.New("empty token"))
	}

	keys, err := c.keys.PublicKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwt: list public keys: %w", err)
	}

	parser := jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{AlgRS256}),
		jwtv5.WithoutClaimsValidation(),
	)
	tk, err := parser.Parse(raw, func(t *jwtv5.Token) (any, error) {
		return selectKey(keys, t)
	})
	if err != nil {
		return nil, classify(err)
	}
	mc, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, verr(ErrMalformedToken, errors.New("unexpected claims type"))
	}

	now := c.now()
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, verr(ErrMalformedToken, err)
	}
	if exp != nil && !now.Before(exp.Time) {
		return nil, verr(ErrTokenExpired, fmt.Errorf("expired at %s", exp.Time.UTC().Format(time.RFC3339)))
	}
	nbf, err := mc.GetNotBefore()
	if err != nil {
		return nil, verr(ErrMalformedToken, err)
	}
	if nbf != nil && now.Before(nbf.Time) {
		return nil, verr(ErrTokenNotYetValid, fmt.Errorf("valid from %s", nbf.Time.UTC().Format(time.RFC3339)))
	}

	if c.revoked != nil {
		jti, _ := mc["jti"].(string)
		revoked, err := c.revoked.IsRevoked(ctx, jti, raw)
		if err != nil {
			return nil, fmt.Errorf("jwt: revocation lookup: %w", err)
		}
		if revoked {
			return nil, verr(ErrTokenRevoked, nil)
		}
	}
	return map[string]any(mc), nil
}

// selectKey elige la clave por kid. Sin kid (o kid desconocido) y con una sola
// clave publicada, usa esa.
func selectKey(keys []SigningKey, t *jwtv5.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid != "" {
		for _, k := range keys {
			if k.KID == kid && k.Public != nil {
				return k.Public, nil
			}
		}
	}
	if len(keys) == 1 && keys[0].Public != nil {
		return keys[0].Public, nil
	}
	return nil, fmt.Errorf("no key for kid %q", kid)
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwtv5.ErrTokenMalformed):
		return verr(ErrMalformedToken, err)
	case errors.Is(err, jwtv5.ErrTokenSignatureInvalid),
		errors.Is(err, jwtv5.ErrTokenUnverifiable):
		return verr(ErrSignatureInvalid, err)
	default:
		return verr(ErrMalformedToken, err)
	}
}
