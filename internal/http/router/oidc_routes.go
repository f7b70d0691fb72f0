package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/mockidp/internal/http/middlewares"
)

func registerOIDCRoutes(r chi.Router, d Deps) {
	c := d.OIDC

	r.With(measure(d.Metrics, "discovery"), mw.WithCacheControl("public, max-age=300")).
		Get("/.well-known/openid-configuration", c.Discovery.Discovery)

	jwks := r.With(measure(d.Metrics, "jwks"), mw.WithCacheControl("public, max-age=300"))
	jwks.Get("/certs", c.JWKS.JWKS)
	jwks.Get("/.well-known/jwks.json", c.JWKS.JWKS)

	ui := r.With(measure(d.Metrics, "userinfo"), mw.WithNoStore(), mw.WithBodyLimit(formBodyLimit))
	ui.Get("/userinfo", c.UserInfo.UserInfo)
	ui.Post("/userinfo", c.UserInfo.UserInfo)
}
