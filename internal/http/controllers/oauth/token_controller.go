package oauth

import (
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/mockidp/internal/http/errors"
	svc "github.com/dropDatabas3/mockidp/internal/http/services/oauth"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
)

// TokenController handles POST /token.
type TokenController struct {
	service svc.TokenService
}

func NewTokenController(s svc.TokenService) *TokenController {
	return &TokenController{service: s}
}

// Token implementa password, client_credentials, authorization_code y
// refresh_token. El body ya viene acotado por WithBodyLimit.
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("oauth.token"))

	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithMessage("Invalid form data"))
		return
	}

	f := r.PostForm
	req := svc.TokenRequest{
		GrantType:    strings.TrimSpace(f.Get("grant_type")),
		Client:       clientCredentials(r),
		Scope:        strings.TrimSpace(f.Get("scope")),
		Username:     strings.TrimSpace(f.Get("username")),
		Password:     f.Get("password"),
		Code:         strings.TrimSpace(f.Get("code")),
		RedirectURI:  strings.TrimSpace(f.Get("redirect_uri")),
		CodeVerifier: strings.TrimSpace(f.Get("code_verifier")),
		RefreshToken: strings.TrimSpace(f.Get("refresh_token")),
	}

	resp, err := c.service.Exchange(r.Context(), req)
	if err != nil {
		httperrors.WriteError(w, toAppError(err))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	httperrors.WriteJSON(w, http.StatusOK, resp)
}
