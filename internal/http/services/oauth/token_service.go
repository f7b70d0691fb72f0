package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/mockidp/internal/claims"
	"github.com/dropDatabas3/mockidp/internal/grantstore"
	dto "github.com/dropDatabas3/mockidp/internal/http/dto/oauth"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
	"github.com/dropDatabas3/mockidp/internal/security/password"
	tokens "github.com/dropDatabas3/mockidp/internal/security/token"
	"github.com/dropDatabas3/mockidp/internal/store"
)

const (
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
	GrantImplicit          = "implicit"
)

// TokenService es el motor de grants de POST /token.
type TokenService interface {
	Exchange(ctx context.Context, req TokenRequest) (*dto.TokenResponse, error)
}

// TokenRequest son los parámetros de /token ya parseados.
type TokenRequest struct {
	GrantType string
	Client    ClientCredentials
	Scope     string

	// password
	Username string
	Password string

	// authorization_code
	Code         string
	RedirectURI  string
	CodeVerifier string

	// refresh_token
	RefreshToken string
}

// grantEngine implementa TokenService. El cliente se autentica antes de mirar
// grant_type: invalid_client gana siempre.
type grantEngine struct {
	deps Deps
	auth *ClientAuthenticator
}

func newGrantEngine(d Deps) *grantEngine {
	return &grantEngine{deps: d, auth: NewClientAuthenticator(d.Clients)}
}

// issued es lo necesario para armar el token set.
type issued struct {
	principal claims.Principal
	client    *store.ClientRegistration
	scope     string
	nonce     string
	authTime  time.Time
}

func (e *grantEngine) Exchange(ctx context.Context, req TokenRequest) (*dto.TokenResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.token"),
		logger.Op("Exchange"),
		logger.GrantType(req.GrantType),
		logger.ClientID(req.Client.ID),
	)

	resp, err := e.exchange(ctx, req, log)
	if err != nil {
		code := errorCode(err)
		e.deps.Metrics.GrantFailed(req.GrantType, code)
		if code == "server_error" {
			log.Error("token exchange failed", logger.Err(err))
		} else {
			log.Info("token request rejected", logger.String("error", code), logger.Err(err))
		}
		return nil, err
	}
	e.deps.Metrics.TokenIssued(req.GrantType)
	log.Info("token set issued", logger.Scope(resp.Scope))
	return resp, nil
}

func (e *grantEngine) exchange(ctx context.Context, req TokenRequest, log *zap.Logger) (*dto.TokenResponse, error) {
	client, err := e.auth.Authenticate(ctx, req.Client)
	if err != nil {
		return nil, err
	}

	var grant func(context.Context, *store.ClientRegistration, TokenRequest) (*issued, error)
	switch req.GrantType {
	case GrantPassword:
		grant = e.passwordGrant
	case GrantClientCredentials:
		grant = e.clientCredentialsGrant
	case GrantAuthorizationCode:
		grant = e.authorizationCodeGrant
	case GrantRefreshToken:
		grant = e.refreshTokenGrant
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGrantType, req.GrantType)
	}
	if !client.AllowsGrant(req.GrantType) {
		return nil, fmt.Errorf("%w: %s not registered for client", ErrUnauthorizedClient, req.GrantType)
	}

	is, err := grant(ctx, client, req)
	if err != nil {
		return nil, err
	}
	log.Debug("grant validated", logger.Subject(is.principal.Subject))
	return e.issue(ctx, is)
}

func (e *grantEngine) passwordGrant(ctx context.Context, client *store.ClientRegistration, req TokenRequest) (*issued, error) {
	scope, err := e.resolveScope(req.Scope, client)
	if err != nil {
		return nil, err
	}
	u, err := e.checkPassword(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	return &issued{principal: u.Principal, client: client, scope: scope}, nil
}

func (e *grantEngine) checkPassword(ctx context.Context, username, secret string) (*store.User, error) {
	if username == "" || secret == "" {
		return nil, fmt.Errorf("%w: missing username or password", ErrInvalidCredentials)
	}
	u, err := e.deps.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
		}
		return nil, err
	}
	if !password.Verify(secret, u.PasswordHash) {
		return nil, fmt.Errorf("%w: bad password", ErrInvalidCredentials)
	}
	return u, nil
}

func (e *grantEngine) clientCredentialsGrant(_ context.Context, client *store.ClientRegistration, req TokenRequest) (*issued, error) {
	scope, err := e.resolveScope(req.Scope, client)
	if err != nil {
		return nil, err
	}
	return &issued{principal: claims.ServiceAccountFor(client.ID, client.Roles), client: client, scope: scope}, nil
}

func (e *grantEngine) authorizationCodeGrant(ctx context.Context, client *store.ClientRegistration, req TokenRequest) (*issued, error) {
	if req.Code == "" {
		return nil, fmt.Errorf("%w: missing code", ErrInvalidGrant)
	}
	rec, err := e.deps.Codes.Consume(ctx, req.Code)
	if err != nil {
		if errors.Is(err, grantstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown, expired or used code", ErrInvalidGrant)
		}
		return nil, err
	}
	if rec.ClientID != client.ID {
		return nil, fmt.Errorf("%w: code issued to another client", ErrInvalidGrant)
	}
	if rec.RedirectURI != "" && rec.RedirectURI != req.RedirectURI {
		return nil, fmt.Errorf("%w: redirect_uri mismatch", ErrInvalidGrant)
	}
	if rec.CodeChallenge != "" {
		if req.CodeVerifier == "" || !tokens.VerifyS256(req.CodeVerifier, rec.CodeChallenge) {
			return nil, fmt.Errorf("%w: pkce verification failed", ErrInvalidGrant)
		}
	}
	p, err := e.resolvePrincipal(ctx, rec.Subject, client)
	if err != nil {
		return nil, err
	}
	return &issued{principal: p, client: client, scope: rec.Scope, nonce: rec.Nonce, authTime: rec.AuthTime}, nil
}

func (e *grantEngine) refreshTokenGrant(ctx context.Context, client *store.ClientRegistration, req TokenRequest) (*issued, error) {
	if req.RefreshToken == "" {
		return nil, fmt.Errorf("%w: missing refresh_token", ErrInvalidGrant)
	}
	notFound := func(err error) error {
		if errors.Is(err, grantstore.ErrNotFound) {
			return fmt.Errorf("%w: unknown, expired or rotated refresh token", ErrInvalidGrant)
		}
		return err
	}
	// se valida sobre Peek: un request rechazado no quema el token del cliente
	rec, err := e.deps.Refresh.Peek(ctx, req.RefreshToken)
	if err != nil {
		return nil, notFound(err)
	}
	if rec.ClientID != client.ID {
		return nil, fmt.Errorf("%w: refresh token issued to another client", ErrInvalidGrant)
	}

	// un refresh puede pedir un subconjunto del scope original, nunca más
	scope := rec.Scope
	if req.Scope != "" {
		if !subset(strings.Fields(req.Scope), strings.Fields(rec.Scope)) {
			return nil, fmt.Errorf("%w: scope exceeds original grant", ErrInvalidScope)
		}
		scope = strings.Join(strings.Fields(req.Scope), " ")
	}

	// rotación: Consume es atómico, el que pierde la carrera recibe invalid_grant
	if rec, err = e.deps.Refresh.Consume(ctx, req.RefreshToken); err != nil {
		return nil, notFound(err)
	}
	p, err := e.resolvePrincipal(ctx, rec.Subject, client)
	if err != nil {
		return nil, err
	}
	return &issued{principal: p, client: client, scope: scope}, nil
}

// resolvePrincipal vuelve a leer al usuario (roles frescos). Un subject igual
// al client_id es el service account del cliente.
func (e *grantEngine) resolvePrincipal(ctx context.Context, subject string, client *store.ClientRegistration) (claims.Principal, error) {
	u, err := e.deps.Users.GetUserBySubject(ctx, subject)
	if err == nil {
		return u.Principal, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return claims.Principal{}, err
	}
	if subject == client.ID {
		return claims.ServiceAccountFor(client.ID, client.Roles), nil
	}
	return claims.Principal{}, fmt.Errorf("%w: subject no longer exists", ErrInvalidGrant)
}

// resolveScope aplica el scope por defecto y valida contra el registro del
// cliente. Un cliente con scopes restringidos recibe los suyos por defecto.
func (e *grantEngine) resolveScope(requested string, client *store.ClientRegistration) (string, error) {
	fields := strings.Fields(requested)
	if len(fields) == 0 {
		if len(client.Scopes) > 0 {
			return strings.Join(client.Scopes, " "), nil
		}
		return e.deps.DefaultScope, nil
	}
	if !client.AllowsScopes(fields) {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, requested)
	}
	return strings.Join(fields, " "), nil
}

// issue firma access + ID (si corresponde) y emite un refresh token nuevo.
// Es todo o nada: si una firma falla no se devuelve nada.
func (e *grantEngine) issue(ctx context.Context, is *issued) (*dto.TokenResponse, error) {
	now := e.deps.Now()
	clientID := is.client.ID

	access, err := e.deps.Codec.Sign(ctx, e.deps.Claims.AccessToken(is.principal, clientID, is.scope, now))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	resp := &dto.TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   e.deps.Claims.ExpiresIn(),
		Scope:       is.scope,
	}

	if wantsIDToken(is.scope) {
		idt, err := e.deps.Codec.Sign(ctx, e.deps.Claims.IDToken(is.principal, clientID, now, is.authTime, is.nonce))
		if err != nil {
			return nil, fmt.Errorf("sign id token: %w", err)
		}
		resp.IDToken = idt
	}

	rt, err := e.deps.Refresh.Issue(ctx, grantstore.RefreshRecord{
		ClientID: clientID,
		Subject:  is.principal.Subject,
		Scope:    is.scope,
	}, now)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	resp.RefreshToken = rt
	return resp, nil
}

// wantsIDToken: openid en el scope concedido. Un scope vacío sólo llega acá
// si el default también es vacío; en ese caso se emite igual.
func wantsIDToken(scope string) bool {
	fields := strings.Fields(scope)
	return len(fields) == 0 || hasScope(fields, "openid")
}

func hasScope(fields []string, s string) bool {
	for _, f := range fields {
		if f == s {
			return true
		}
	}
	return false
}

func subset(sub, of []string) bool {
	for _, s := range sub {
		if !hasScope(of, s) {
			return false
		}
	}
	return true
}

// errorCode es la etiqueta de métricas/logs de un error del motor.
func errorCode(err error) string {
	for _, e := range []error{
		ErrInvalidRequest, ErrInvalidClient, ErrInvalidGrant, ErrInvalidCredentials,
		ErrUnsupportedGrantType, ErrUnsupportedResponseType, ErrUnauthorizedClient, ErrInvalidScope,
	} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "server_error"
}
