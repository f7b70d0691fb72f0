package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/mockidp/internal/http/middlewares"
)

// registerOAuthRoutes: /token y /login llevan rate limit; todos no-store.
func registerOAuthRoutes(r chi.Router, d Deps) {
	c := d.OAuth
	limited := mw.WithRateLimit(d.Limiter, mw.ClientRateKey)
	loginLimited := mw.WithRateLimit(d.Limiter, mw.IPOnlyRateKey)

	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore(), mw.WithBodyLimit(formBodyLimit))

		r.With(measure(d.Metrics, "token"), limited).Post("/token", c.Token.Token)
		r.With(measure(d.Metrics, "login"), loginLimited).Post("/login", c.Login.Login)
		r.With(measure(d.Metrics, "introspect")).Post("/introspect", c.Introspect.Introspect)
		r.With(measure(d.Metrics, "revoke")).Post("/revoke", c.Revoke.Revoke)
		r.With(measure(d.Metrics, "authorize")).Get("/authorize", c.Authorize.Authorize)
	})
}
