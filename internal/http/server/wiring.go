// Package server arma el handler HTTP del IdP con todas sus dependencias.
// Es el único lugar donde se construyen codec, claves y stores; el resto los
// recibe por constructor.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dropDatabas3/mockidp/internal/cache"
	"github.com/dropDatabas3/mockidp/internal/claims"
	"github.com/dropDatabas3/mockidp/internal/config"
	"github.com/dropDatabas3/mockidp/internal/grantstore"
	httpx "github.com/dropDatabas3/mockidp/internal/http"
	healthctrl "github.com/dropDatabas3/mockidp/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/mockidp/internal/http/controllers/oauth"
	oidcctrl "github.com/dropDatabas3/mockidp/internal/http/controllers/oidc"
	"github.com/dropDatabas3/mockidp/internal/http/router"
	oauthsvc "github.com/dropDatabas3/mockidp/internal/http/services/oauth"
	oidcsvc "github.com/dropDatabas3/mockidp/internal/http/services/oidc"
	jwtx "github.com/dropDatabas3/mockidp/internal/jwt"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
	"github.com/dropDatabas3/mockidp/internal/rate"
	"github.com/dropDatabas3/mockidp/internal/store"
	"github.com/dropDatabas3/mockidp/internal/store/pg"
)

// App es el IdP armado.
type App struct {
	Handler http.Handler
	Metrics *httpx.Metrics
	Keys    *jwtx.KeyManager
	Codec   *jwtx.Codec

	closers []func() error
}

// Close libera cache y pool de Postgres.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

type options struct {
	now      func() time.Time
	keyStore jwtx.KeyStore
	cache    cache.Client
	hash     store.HashFunc
}

type Option func(*options)

// WithClock fija el reloj de emisión y verificación (tests).
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithKeyStore reemplaza el key store en memoria.
func WithKeyStore(ks jwtx.KeyStore) Option { return func(o *options) { o.keyStore = ks } }

// WithCache inyecta un cache ya construido (miniredis en tests).
func WithCache(c cache.Client) Option { return func(o *options) { o.cache = c } }

// WithSecretHasher cambia cómo se hashean los secretos de config (tests: argon2 barato).
func WithSecretHasher(h store.HashFunc) Option { return func(o *options) { o.hash = h } }

// Build arma el IdP. Un error acá es fatal para el proceso: sin clave de
// firma no se puede emitir nada.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	log := logger.From(ctx).With(logger.Layer("wiring"))
	app := &App{}
	fail := func(err error) (*App, error) {
		_ = app.Close()
		return nil, err
	}

	// 1. Cache (codes, refresh, revocaciones)
	cc := o.cache
	if cc == nil {
		var err error
		cc, err = cache.New(ctx, cache.Config{
			Kind:     cfg.Cache.Kind,
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return fail(fmt.Errorf("cache: %w", err))
		}
		app.closers = append(app.closers, cc.Close)
	}

	// 2. Clientes y usuarios
	seeds := clientSeeds(cfg.Clients)
	mem, err := store.NewMemoryStore(seeds, userSeeds(cfg.Users), o.hash)
	if err != nil {
		return fail(err)
	}
	var clients store.ClientStore = mem
	checks := map[string]healthctrl.Check{"cache": cc.Ping}

	if cfg.Storage.Driver == "postgres" {
		pgs, err := pg.Open(ctx, cfg.Storage.DSN, pg.PoolConfig{
			MaxConns:        int32(cfg.Storage.Postgres.MaxOpenConns),
			MinConns:        int32(cfg.Storage.Postgres.MinConns),
			MaxConnLifetime: cfg.ConnMaxLifetime(),
		})
		if err != nil {
			return fail(err)
		}
		app.closers = append(app.closers, func() error { pgs.Close(); return nil })
		if err := pgs.Migrate(ctx); err != nil {
			return fail(err)
		}
		// los clientes de config se siembran en la tabla (secreto ya hasheado)
		for _, s := range seeds {
			reg, err := mem.GetClient(ctx, s.ID)
			if err != nil {
				return fail(err)
			}
			if err := pgs.UpsertClient(ctx, *reg); err != nil {
				return fail(fmt.Errorf("seed client %q: %w", s.ID, err))
			}
		}
		clients = pgs
		checks["postgres"] = pgs.Ping
		log.Info("client registry on postgres", logger.Count(len(seeds)))
	}

	// 3. Claves de firma
	ks := o.keyStore
	if ks == nil {
		ks = jwtx.NewMemoryKeyStore()
	}
	keys := jwtx.NewKeyManager(ks)
	if err := keys.EnsureBootstrap(ctx); err != nil {
		return fail(fmt.Errorf("signing key bootstrap: %w", err))
	}
	if k, err := keys.ActiveSigningKey(ctx); err == nil {
		log.Info("signing key ready", logger.KID(k.KID))
	}

	// 4. Registros de grants + codec
	revocations := grantstore.NewRevocations(cc, cfg.RefreshTTL())
	codec := jwtx.NewCodec(keys, jwtx.WithRevocations(revocations), jwtx.WithClock(o.now))

	// 5. Rate limit (/token, /login)
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if rdb, ok := cache.RedisOf(cc); ok {
			limiter = rate.NewRedisLimiter(rdb, cfg.Cache.Redis.Prefix+":rl:", cfg.Rate.MaxRequests, cfg.RateWindow())
		} else {
			limiter = rate.NewMemoryLimiter("rl:", cfg.Rate.MaxRequests, cfg.RateWindow())
		}
	}

	metrics := httpx.NewMetrics()
	loginClient := store.FirstClientID(seeds)

	oauthServices := oauthsvc.NewServices(oauthsvc.Deps{
		Clients:     clients,
		Users:       mem,
		Codec:       codec,
		Claims:      claims.Builder{Issuer: cfg.JWT.Issuer, TTL: cfg.AccessTTL(), Shape: cfg.ClaimShape()},
		Codes:       grantstore.NewCodes(cc, cfg.CodeTTL()),
		Refresh:     grantstore.NewRefresh(cc, cfg.RefreshTTL()),
		Revocations: revocations,

		DefaultScope:     cfg.Authorize.DefaultScope,
		AuthorizeSubject: cfg.Authorize.Subject,
		LoginClientID:    loginClient,

		Metrics: metrics,
		Now:     o.now,
	})
	oidcServices := oidcsvc.NewServices(oidcsvc.Deps{
		Issuer:  cfg.JWT.Issuer,
		Keys:    keys,
		Codec:   codec,
		Users:   mem,
		Clients: clients,
	})

	app.Handler = router.New(router.Deps{
		OAuth:   oauthctrl.NewControllers(oauthServices),
		OIDC:    oidcctrl.NewControllers(oidcServices),
		Health:  healthctrl.NewController(cfg.App.Version, checks),
		Metrics: metrics,
		Limiter: limiter,
	})
	app.Metrics = metrics
	app.Keys = keys
	app.Codec = codec
	return app, nil
}

func clientSeeds(in []config.ClientConfig) []store.ClientSeed {
	out := make([]store.ClientSeed, 0, len(in))
	for _, c := range in {
		out = append(out, store.ClientSeed{
			ID:           c.ID,
			Secret:       c.Secret,
			Public:       c.Public,
			GrantTypes:   c.GrantTypes,
			RedirectURIs: c.RedirectURIs,
			Scopes:       c.Scopes,
			Roles:        c.Roles,
		})
	}
	return out
}

func userSeeds(in []config.UserConfig) []store.UserSeed {
	out := make([]store.UserSeed, 0, len(in))
	for _, u := range in {
		out = append(out, store.UserSeed(u))
	}
	return out
}
