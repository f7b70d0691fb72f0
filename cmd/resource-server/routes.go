package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/mockidp/internal/authz"
	httperrors "github.com/dropDatabas3/mockidp/internal/http/errors"
	mw "github.com/dropDatabas3/mockidp/internal/http/middlewares"
)

// newRouter arma la API protegida de ejemplo:
//
//	/api/public/*  abierto
//	/api/me        cualquier token válido
//	/api/user/*    ROLE_USER o ROLE_ADMIN
//	/api/upload/*  ROLE_UPLOAD_ONLY
//	/api/admin/*   ROLE_ADMIN
func newRouter(v authz.Verifier, m authz.Mapper) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithLogging(),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})

	r.Get("/api/public/*", echo("public"))

	r.Group(func(r chi.Router) {
		r.Use(authz.Authenticate(v, m))
		r.Get("/api/me", me)
		r.With(authz.RequireAnyRole("USER", "ADMIN")).Get("/api/user/*", echo("user"))
		r.With(authz.RequireRole("UPLOAD_ONLY")).Post("/api/upload/*", echo("upload"))
		r.With(authz.RequireRole("ADMIN")).Get("/api/admin/*", echo("admin"))
	})
	return r
}

func echo(area string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteJSON(w, http.StatusOK, map[string]any{
			"area": area,
			"path": r.URL.Path,
		})
	}
}

func me(w http.ResponseWriter, r *http.Request) {
	c := authz.Claims(r.Context())
	httperrors.WriteJSON(w, http.StatusOK, map[string]any{
		"sub":         c["sub"],
		"claims":      c,
		"authorities": authz.FromContext(r.Context()).Sorted(),
	})
}
