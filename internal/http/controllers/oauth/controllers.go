// Package oauth contiene los controllers OAuth2: parsean el request, llaman
// al service y traducen errores al envelope OAuth.
package oauth

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"

	httperrors "github.com/dropDatabas3/mockidp/internal/http/errors"
	svc "github.com/dropDatabas3/mockidp/internal/http/services/oauth"
)

// Controllers agrupa todos los controllers del dominio OAuth.
type Controllers struct {
	Token      *TokenController
	Authorize  *AuthorizeController
	Introspect *IntrospectController
	Revoke     *RevokeController
	Login      *LoginController
}

// NewControllers crea el agregador de controllers OAuth.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Token:      NewTokenController(s.Token),
		Authorize:  NewAuthorizeController(s.Authorize),
		Introspect: NewIntrospectController(s.Introspect),
		Revoke:     NewRevokeController(s.Revoke),
		Login:      NewLoginController(s.Login),
	}
}

// toAppError mapea los errores de los services al envelope OAuth.
func toAppError(err error) *httperrors.AppError {
	var ae *httperrors.AppError
	switch {
	case errors.Is(err, svc.ErrInvalidClient):
		ae = httperrors.ErrInvalidClient
	case errors.Is(err, svc.ErrInvalidCredentials):
		ae = httperrors.ErrInvalidCredentials
	case errors.Is(err, svc.ErrInvalidGrant):
		ae = httperrors.ErrInvalidGrant
	case errors.Is(err, svc.ErrUnsupportedGrantType):
		ae = httperrors.ErrUnsupportedGrantType
	case errors.Is(err, svc.ErrUnsupportedResponseType):
		ae = httperrors.ErrUnsupportedResponseType
	case errors.Is(err, svc.ErrUnauthorizedClient):
		ae = httperrors.ErrUnauthorizedClient
	case errors.Is(err, svc.ErrInvalidScope):
		ae = httperrors.ErrInvalidScope
	case errors.Is(err, svc.ErrInvalidRequest):
		ae = httperrors.ErrInvalidRequest
	default:
		ae = httperrors.ErrServerError
	}
	return ae.WithCause(err)
}

// clientCredentials resuelve client_id/client_secret. Si hay Basic, gana
// sobre el body (RFC 6749 §2.3.1: los valores van form-urlencoded). Un Basic
// mal formado deja las credenciales vacías y termina en invalid_client.
func clientCredentials(r *http.Request) svc.ClientCredentials {
	if id, secret, present := basicAuth(r); present {
		return svc.ClientCredentials{ID: id, Secret: secret}
	}
	return svc.ClientCredentials{
		ID:     strings.TrimSpace(r.PostForm.Get("client_id")),
		Secret: r.PostForm.Get("client_secret"),
	}
}

// basicAuth devuelve present=true apenas hay esquema Basic, parsee o no.
func basicAuth(r *http.Request) (id, secret string, present bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const scheme = "Basic"
	if len(h) < len(scheme) || !strings.EqualFold(h[:len(scheme)], scheme) ||
		(len(h) > len(scheme) && h[len(scheme)] != ' ') {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(h[len(scheme):]))
	if err != nil {
		return "", "", true
	}
	id, secret, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", "", true
	}
	if v, err := url.QueryUnescape(id); err == nil {
		id = v
	}
	if v, err := url.QueryUnescape(secret); err == nil {
		secret = v
	}
	return id, secret, true
}

// bearerToken extrae el token de "Authorization: Bearer ...".
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
