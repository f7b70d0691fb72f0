// Package oidc contiene los controllers OIDC.
package oidc

import (
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/mockidp/internal/http/errors"
	svc "github.com/dropDatabas3/mockidp/internal/http/services/oidc"
)

// Controllers agrupa todos los controllers del dominio OIDC.
type Controllers struct {
	JWKS      *JWKSController
	Discovery *DiscoveryController
	UserInfo  *UserInfoController
}

// NewControllers crea el agregador de controllers OIDC.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		JWKS:      &JWKSController{service: s.JWKS},
		Discovery: &DiscoveryController{service: s.Discovery},
		UserInfo:  &UserInfoController{service: s.UserInfo},
	}
}

// DiscoveryController handles GET /.well-known/openid-configuration.
type DiscoveryController struct {
	service svc.DiscoveryService
}

func (c *DiscoveryController) Discovery(w http.ResponseWriter, _ *http.Request) {
	httperrors.WriteJSON(w, http.StatusOK, c.service.Metadata())
}

// JWKSController handles GET /certs y /.well-known/jwks.json.
type JWKSController struct {
	service svc.JWKSService
}

func (c *JWKSController) JWKS(w http.ResponseWriter, r *http.Request) {
	data, err := c.service.GetJWKS(r.Context())
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// UserInfoController handles GET|POST /userinfo.
type UserInfoController struct {
	service svc.UserInfoService
}

// UserInfo acepta el token como Bearer o, en POST, como access_token del form
// (OIDC Core §5.3.1).
func (c *UserInfoController) UserInfo(w http.ResponseWriter, r *http.Request) {
	tok := ""
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		tok = strings.TrimSpace(h[7:])
	} else if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			tok = strings.TrimSpace(r.PostForm.Get("access_token"))
		}
	}

	info, err := c.service.GetUserInfo(r.Context(), tok)
	if err != nil {
		if errors.Is(err, svc.ErrInvalidToken) {
			httperrors.WriteError(w, httperrors.ErrInvalidToken.WithCause(err))
			return
		}
		httperrors.WriteError(w, httperrors.ErrServerError.WithCause(err))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httperrors.WriteJSON(w, http.StatusOK, info)
}
