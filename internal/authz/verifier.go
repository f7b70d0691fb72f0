package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"

	jwtx "github.com/dropDatabas3/mockidp/internal/jwt"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
)

var (
	ErrInvalidIssuer   = errors.New("invalid_issuer")
	ErrInvalidAudience = errors.New("invalid_audience")

	errUnknownKID = errors.New("kid not in jwks")
)

// Verifier valida un bearer token y devuelve sus claims. Los rechazos son
// *jwt.VerificationError; cualquier otro error es de infraestructura.
type Verifier interface {
	Verify(ctx context.Context, raw string) (map[string]any, error)
}

// checkIssuerAudience aplica iss/aud si están configurados.
func checkIssuerAudience(c map[string]any, issuer, audience string) error {
	if issuer != "" {
		iss, _ := c["iss"].(string)
		if strings.TrimRight(iss, "/") != strings.TrimRight(issuer, "/") {
			return &jwtx.VerificationError{Kind: jwtx.ErrMalformedToken, Err: fmt.Errorf("%w: %q", ErrInvalidIssuer, iss)}
		}
	}
	if audience != "" {
		aud, err := jwtv5.MapClaims(c).GetAudience()
		if err != nil || !slices.Contains([]string(aud), audience) {
			return &jwtx.VerificationError{Kind: jwtx.ErrMalformedToken, Err: ErrInvalidAudience}
		}
	}
	return nil
}

// LocalVerifier corre en el mismo proceso que el IdP y reusa su codec, así
// que también rechaza tokens revocados.
type LocalVerifier struct {
	Codec    Verifier
	Issuer   string
	Audience string
}

func (v LocalVerifier) Verify(ctx context.Context, raw string) (map[string]any, error) {
	c, err := v.Codec.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	if err := checkIssuerAudience(c, v.Issuer, v.Audience); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoteConfig configura un RemoteVerifier.
type RemoteConfig struct {
	JWKSURL    string
	Issuer     string
	Audience   string
	HTTPClient *http.Client
	// Leeway tolera desfasaje de reloj en exp/nbf.
	Leeway time.Duration
	// MinRefreshInterval acota los refresh forzados por kid desconocido
	// (default 30s).
	MinRefreshInterval time.Duration
}

const defaultMinRefreshInterval = 30 * time.Second

// RemoteVerifier valida RS256 contra un JWKS remoto. jwk.Cache mantiene el set
// y lo refresca en background; un kid desconocido fuerza un refresh, como
// mucho uno cada MinRefreshInterval.
type RemoteVerifier struct {
	cfg   RemoteConfig
	cache *jwk.Cache
	now   func() time.Time

	mu          sync.Mutex
	registered  bool
	lastRefresh time.Time
}

// NewRemoteVerifier no contacta al JWKS: el registro se hace en el primer
// Verify, así el resource server puede arrancar antes que el IdP.
func NewRemoteVerifier(ctx context.Context, cfg RemoteConfig) (*RemoteVerifier, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("authz: jwks url is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	cache, err := jwk.NewCache(ctx, httprc.NewClient(httprc.WithHTTPClient(hc)))
	if err != nil {
		return nil, fmt.Errorf("authz: jwks cache: %w", err)
	}
	if cfg.MinRefreshInterval <= 0 {
		cfg.MinRefreshInterval = defaultMinRefreshInterval
	}
	return &RemoteVerifier{cfg: cfg, cache: cache, now: time.Now}, nil
}

// ensureRegistered se reintenta en cada llamada hasta que funcione una vez.
func (v *RemoteVerifier) ensureRegistered(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.registered {
		return nil
	}
	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := v.cache.Register(rctx, v.cfg.JWKSURL); err != nil {
		return fmt.Errorf("authz: register jwks %s: %w", v.cfg.JWKSURL, err)
	}
	v.registered = true
	logger.From(ctx).Info("jwks registered", logger.Component("authz.remote"), logger.String("jwks_url", v.cfg.JWKSURL))
	return nil
}

// refreshAllowed reserva el próximo refresh forzado si pasó el intervalo.
func (v *RemoteVerifier) refreshAllowed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.now()
	if !v.lastRefresh.IsZero() && now.Sub(v.lastRefresh) < v.cfg.MinRefreshInterval {
		return false
	}
	v.lastRefresh = now
	return true
}

// keyFor busca por kid; sin kid (o kid desconocido) y con una sola clave
// publicada usa esa, igual que el Codec del IdP.
func (v *RemoteVerifier) keyFor(ctx context.Context, kid string) (any, error) {
	set, err := v.cache.Lookup(ctx, v.cfg.JWKSURL)
	if err != nil {
		return nil, err
	}
	var key jwk.Key
	ok := false
	if kid != "" {
		if key, ok = set.LookupKeyID(kid); !ok && v.refreshAllowed() {
			// rotación: un refresh antes de rendirse
			if set, err = v.cache.Refresh(ctx, v.cfg.JWKSURL); err != nil {
				return nil, err
			}
			key, ok = set.LookupKeyID(kid)
		}
	}
	if !ok && set.Len() == 1 {
		key, ok = set.Key(0)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownKID, kid)
	}
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("export jwk: %w", err)
	}
	return raw, nil
}

func (v *RemoteVerifier) Verify(ctx context.Context, raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &jwtx.VerificationError{Kind: jwtx.ErrMalformedToken, Err: errors.New("empty token")}
	}
	if err := v.ensureRegistered(ctx); err != nil {
		return nil, err
	}

	var infra error
	parser := jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{jwtx.AlgRS256}),
		jwtv5.WithLeeway(v.cfg.Leeway),
	)
	mc := jwtv5.MapClaims{}
	_, err := parser.ParseWithClaims(raw, mc, func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, err := v.keyFor(ctx, kid)
		if err != nil && !errors.Is(err, errUnknownKID) {
			infra = err
		}
		return key, err
	})
	if infra != nil {
		return nil, fmt.Errorf("authz: jwks lookup: %w", infra)
	}
	if err != nil {
		return nil, classify(err)
	}
	if err := checkIssuerAudience(mc, v.cfg.Issuer, v.cfg.Audience); err != nil {
		return nil, err
	}
	return map[string]any(mc), nil
}

func classify(err error) error {
	kind := jwtx.ErrMalformedToken
	switch {
	case errors.Is(err, jwtv5.ErrTokenExpired):
		kind = jwtx.ErrTokenExpired
	case errors.Is(err, jwtv5.ErrTokenNotValidYet):
		kind = jwtx.ErrTokenNotYetValid
	case errors.Is(err, jwtv5.ErrTokenSignatureInvalid), errors.Is(err, jwtv5.ErrTokenUnverifiable):
		kind = jwtx.ErrSignatureInvalid
	}
	return &jwtx.VerificationError{Kind: kind, Err: err}
}
