package authz

import (
	"context"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/mockidp/internal/http/errors"
	jwtx "github.com/dropDatabas3/mockidp/internal/jwt"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
)

type ctxKey int

const (
	ctxClaims ctxKey = iota
	ctxAuthorities
)

// Claims devuelve los claims que dejó Authenticate.
func Claims(ctx context.Context) map[string]any {
	c, _ := ctx.Value(ctxClaims).(map[string]any)
	return c
}

// FromContext devuelve las authorities del request (vacío si no hay).
func FromContext(ctx context.Context) Authorities {
	if a, ok := ctx.Value(ctxAuthorities).(Authorities); ok {
		return a
	}
	return Authorities{}
}

// WithAuthorities guarda claims y authorities en ctx.
func WithAuthorities(ctx context.Context, claims map[string]any, a Authorities) context.Context {
	ctx = context.WithValue(ctx, ctxClaims, claims)
	return context.WithValue(ctx, ctxAuthorities, a)
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// Authenticate verifica el bearer y deja claims + authorities en el contexto.
// Un token rechazado es 401 invalid_token sin detalle; si falla la
// infraestructura del verifier es 500.
func Authenticate(v Verifier, m Mapper) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.From(r.Context()).With(logger.Layer("authz"), logger.Op("Authenticate"))

			tok := bearer(r)
			if tok == "" {
				httperrors.WriteError(w, httperrors.ErrInvalidToken)
				return
			}
			c, err := v.Verify(r.Context(), tok)
			if err != nil {
				if jwtx.IsVerificationError(err) {
					log.Debug("bearer rejected", logger.Err(err))
					httperrors.WriteError(w, httperrors.ErrInvalidToken.WithCause(err))
					return
				}
				log.Error("token verification unavailable", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrServerError.WithCause(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuthorities(r.Context(), c, m.Map(c))))
		})
	}
}

// Require deja pasar sólo si allowed aprueba las authorities del request.
func Require(allowed func(Authorities) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(FromContext(r.Context())) {
				httperrors.WriteError(w, httperrors.ErrInsufficientScope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireRole(role string) func(http.Handler) http.Handler {
	return Require(func(a Authorities) bool { return a.HasRole(role) })
}

func RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	return Require(func(a Authorities) bool { return a.HasAnyRole(roles...) })
}

func RequireAuthority(authority string) func(http.Handler) http.Handler {
	return Require(func(a Authorities) bool { return a.Has(authority) })
}
