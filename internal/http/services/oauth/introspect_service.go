package oauth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/mockidp/internal/grantstore"
	dto "github.com/dropDatabas3/mockidp/internal/http/dto/oauth"
	jwtx "github.com/dropDatabas3/mockidp/internal/jwt"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
	tokens "github.com/dropDatabas3/mockidp/internal/security/token"
)

// IntrospectService implementa RFC 7662. Nunca devuelve error: cualquier
// falla es {"active":false} sin más campos, para no filtrar el motivo.
type IntrospectService interface {
	Introspect(ctx context.Context, token string) dto.IntrospectResponse
}

type introspectService struct {
	deps Deps
}

var inactive = dto.IntrospectResponse{Active: false}

func (s *introspectService) Introspect(ctx context.Context, token string) dto.IntrospectResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.introspect"),
		logger.Op("Introspect"),
	)

	res := inactive
	switch {
	case token == "":
	case tokens.LooksLikeJWT(token):
		res = s.introspectJWT(ctx, token, log)
	default:
		res = s.introspectRefresh(ctx, token, log)
	}
	s.deps.Metrics.Introspected(res.Active)
	return res
}

func (s *introspectService) introspectJWT(ctx context.Context, token string, log *zap.Logger) dto.IntrospectResponse {
	c, err := s.deps.Codec.Verify(ctx, token)
	if err != nil {
		if !jwtx.IsVerificationError(err) {
			log.Warn("introspection lookup failed", logger.Err(err))
		} else {
			log.Debug("token inactive", logger.Err(err))
		}
		return inactive
	}

	sub, _ := c["sub"].(string)
	iss, _ := c["iss"].(string)
	scope, _ := c["scope"].(string)
	username, _ := c["preferred_username"].(string)
	clientID, _ := c["azp"].(string)
	if clientID == "" {
		clientID, _ = c["aud"].(string)
	}
	return dto.IntrospectResponse{
		Active:    true,
		Sub:       sub,
		Aud:       c["aud"],
		Iss:       iss,
		Scope:     scope,
		Exp:       numericClaim(c["exp"]),
		Iat:       numericClaim(c["iat"]),
		Username:  username,
		ClientID:  clientID,
		Jti:       uuid.NewString(),
		TokenType: "Bearer",
	}
}

func (s *introspectService) introspectRefresh(ctx context.Context, token string, log *zap.Logger) dto.IntrospectResponse {
	rec, err := s.deps.Refresh.Peek(ctx, token)
	if err != nil {
		if !errors.Is(err, grantstore.ErrNotFound) {
			log.Warn("refresh lookup failed", logger.Err(err))
		}
		return inactive
	}
	if !rec.ExpiresAt.After(s.deps.Now()) {
		return inactive
	}
	return dto.IntrospectResponse{
		Active:    true,
		Sub:       rec.Subject,
		ClientID:  rec.ClientID,
		Scope:     rec.Scope,
		Exp:       rec.ExpiresAt.Unix(),
		Iat:       rec.IssuedAt.Unix(),
		Jti:       uuid.NewString(),
		TokenType: "refresh_token",
	}
}

// numericClaim: golang-jwt decodifica los NumericDate como float64.
func numericClaim(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
