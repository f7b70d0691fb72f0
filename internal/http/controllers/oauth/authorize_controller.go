package oauth

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	dto "github.com/dropDatabas3/mockidp/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/mockidp/internal/http/errors"
	svc "github.com/dropDatabas3/mockidp/internal/http/services/oauth"
)

// AuthorizeController handles GET /authorize.
type AuthorizeController struct {
	service svc.AuthorizeService
}

func NewAuthorizeController(s svc.AuthorizeService) *AuthorizeController {
	return &AuthorizeController{service: s}
}

// Authorize devuelve JSON por defecto; con response_mode=query|fragment
// redirige (302) al redirect_uri validado.
func (c *AuthorizeController) Authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := svc.AuthorizeRequest{
		ClientID:            strings.TrimSpace(q.Get("client_id")),
		ResponseType:        strings.TrimSpace(q.Get("response_type")),
		RedirectURI:         strings.TrimSpace(q.Get("redirect_uri")),
		ResponseMode:        strings.TrimSpace(q.Get("response_mode")),
		State:               q.Get("state"),
		Scope:               strings.TrimSpace(q.Get("scope")),
		Nonce:               q.Get("nonce"),
		CodeChallenge:       strings.TrimSpace(q.Get("code_challenge")),
		CodeChallengeMethod: strings.TrimSpace(q.Get("code_challenge_method")),
	}

	res, err := c.service.Authorize(r.Context(), req)
	if err != nil {
		httperrors.WriteError(w, toAppError(err))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	if res.ResponseMode == "" {
		httperrors.WriteJSON(w, http.StatusOK, res.Response)
		return
	}

	loc, err := redirectLocation(res.RedirectURI, res.ResponseMode, res.Response)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithMessage("Invalid redirect_uri").WithCause(err))
		return
	}
	http.Redirect(w, r, loc, http.StatusFound)
}

func redirectLocation(redirect, mode string, resp dto.AuthorizeResponse) (string, error) {
	u, err := url.Parse(redirect)
	if err != nil {
		return "", err
	}
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("code", resp.Code)
	set("state", resp.State)
	set("access_token", resp.AccessToken)
	set("id_token", resp.IDToken)
	set("token_type", resp.TokenType)
	set("scope", resp.Scope)
	if resp.ExpiresIn > 0 {
		v.Set("expires_in", strconv.FormatInt(resp.ExpiresIn, 10))
	}

	if mode == "fragment" {
		u.Fragment = ""
		u.RawFragment = ""
		return u.String() + "#" + v.Encode(), nil
	}
	q := u.Query()
	for k, vals := range v {
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
