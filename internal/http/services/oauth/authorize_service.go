package oauth

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dropDatabas3/mockidp/internal/grantstore"
	dto "github.com/dropDatabas3/mockidp/internal/http/dto/oauth"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
	"github.com/dropDatabas3/mockidp/internal/store"
)

// AuthorizeService implementa GET /authorize no interactivo: emite para el
// usuario configurado sin pantalla de login ni consentimiento.
type AuthorizeService interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error)
}

type AuthorizeRequest struct {
	ClientID            string
	ResponseType        string
	RedirectURI         string
	ResponseMode        string // "" (JSON) | query | fragment
	State               string
	Scope               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizeResult: si ResponseMode no es vacío el controller redirige a
// RedirectURI con Response codificada ahí; si no, devuelve Response como JSON.
type AuthorizeResult struct {
	RedirectURI  string
	ResponseMode string
	Response     dto.AuthorizeResponse
}

type authorizeService struct {
	eng *grantEngine
}

type responseType struct {
	code    bool
	token   bool
	idToken bool
}

// parseResponseType acepta code, token, id_token e "id_token token".
func parseResponseType(v string) (responseType, bool) {
	parts := strings.Fields(v)
	slices.Sort(parts)
	switch strings.Join(parts, " ") {
	case "code":
		return responseType{code: true}, true
	case "token":
		return responseType{token: true}, true
	case "id_token":
		return responseType{idToken: true}, true
	case "id_token token":
		return responseType{token: true, idToken: true}, true
	}
	return responseType{}, false
}

func (s *authorizeService) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	d := s.eng.deps
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.authorize"),
		logger.Op("Authorize"),
		logger.ClientID(req.ClientID),
		logger.ResponseType(req.ResponseType),
	)

	client, err := s.eng.auth.lookup(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	rt, ok := parseResponseType(req.ResponseType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedResponseType, req.ResponseType)
	}

	redirect, err := resolveRedirect(req.RedirectURI, client)
	if err != nil {
		return nil, err
	}
	switch req.ResponseMode {
	case "":
	case "query", "fragment":
		if redirect == "" {
			return nil, fmt.Errorf("%w: response_mode requires redirect_uri", ErrInvalidRequest)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported response_mode %q", ErrInvalidRequest, req.ResponseMode)
	}

	grant := GrantImplicit
	if rt.code {
		grant = GrantAuthorizationCode
	}
	if !client.AllowsGrant(grant) {
		return nil, fmt.Errorf("%w: %s not registered for client", ErrUnauthorizedClient, grant)
	}

	if req.CodeChallenge != "" && req.CodeChallengeMethod != "S256" {
		return nil, fmt.Errorf("%w: only code_challenge_method=S256 is supported", ErrInvalidRequest)
	}

	scope, err := s.eng.resolveScope(req.Scope, client)
	if err != nil {
		return nil, err
	}

	u, err := d.Users.GetUserBySubject(ctx, d.AuthorizeSubject)
	if err != nil {
		return nil, fmt.Errorf("authorize subject %q: %w", d.AuthorizeSubject, err)
	}

	now := d.Now()
	out := &AuthorizeResult{RedirectURI: redirect, ResponseMode: req.ResponseMode}
	out.Response.State = req.State

	if rt.code {
		code, err := d.Codes.Issue(ctx, grantstore.AuthCode{
			ClientID:            client.ID,
			RedirectURI:         redirect,
			Scope:               scope,
			Subject:             u.Subject,
			Nonce:               req.Nonce,
			AuthTime:            now,
			CodeChallenge:       req.CodeChallenge,
			CodeChallengeMethod: req.CodeChallengeMethod,
		}, now)
		if err != nil {
			return nil, fmt.Errorf("issue code: %w", err)
		}
		out.Response.Code = code
		out.Response.RedirectURI = redirect
		d.Metrics.TokenIssued("authorize_code")
		log.Info("authorization code issued", logger.Subject(u.Subject))
		return out, nil
	}

	// implícito: todo o nada, igual que en /token
	if rt.token {
		at, err := d.Codec.Sign(ctx, d.Claims.AccessToken(u.Principal, client.ID, scope, now))
		if err != nil {
			return nil, fmt.Errorf("sign access token: %w", err)
		}
		out.Response.AccessToken = at
		out.Response.TokenType = "Bearer"
		out.Response.ExpiresIn = d.Claims.ExpiresIn()
		out.Response.Scope = scope
	}
	if rt.idToken || (rt.token && wantsIDToken(scope)) {
		idt, err := d.Codec.Sign(ctx, d.Claims.IDToken(u.Principal, client.ID, now, now, req.Nonce))
		if err != nil {
			return nil, fmt.Errorf("sign id token: %w", err)
		}
		out.Response.IDToken = idt
	}
	d.Metrics.TokenIssued("authorize_implicit")
	log.Info("implicit tokens issued", logger.Subject(u.Subject))
	return out, nil
}

// resolveRedirect valida redirect_uri contra el registro. Sin redirect_uri y
// con uno solo registrado, se usa ese.
func resolveRedirect(requested string, client *store.ClientRegistration) (string, error) {
	if requested == "" {
		if len(client.RedirectURIs) == 1 {
			return client.RedirectURIs[0], nil
		}
		return "", nil
	}
	if !client.AllowsRedirect(requested) {
		return "", fmt.Errorf("%w: redirect_uri not registered", ErrInvalidRequest)
	}
	return requested, nil
}
