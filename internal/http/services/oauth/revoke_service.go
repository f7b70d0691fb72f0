package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/mockidp/internal/grantstore"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
	tokens "github.com/dropDatabas3/mockidp/internal/security/token"
)

// RevokeService implementa RFC 7009. El controller responde 200 siempre; el
// error sólo sirve para logs.
type RevokeService interface {
	Revoke(ctx context.Context, token string) error
}

type revokeService struct {
	deps Deps
}

// Revoke:
//   - JWT propio y válido: se recuerda su jti hasta exp (Codec.Verify lo rechaza después).
//   - refresh token vivo: se borra el registro y se recuerda su hash.
//   - cualquier otra cosa: no-op.
func (s *revokeService) Revoke(ctx context.Context, token string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.revoke"),
		logger.Op("Revoke"),
	)
	s.deps.Metrics.Revoked()
	if token == "" {
		return nil
	}
	now := s.deps.Now()

	if tokens.LooksLikeJWT(token) {
		c, err := s.deps.Codec.Verify(ctx, token)
		if err != nil {
			// ya inválido (o ajeno): nada que revocar
			log.Debug("revoke: token not active", logger.Err(err))
			return nil
		}
		jti, _ := c["jti"].(string)
		// sin exp: tiempo cero, RevokeJTI usa el TTL máximo
		var exp time.Time
		if n := numericClaim(c["exp"]); n > 0 {
			exp = time.Unix(n, 0)
		}
		if jti == "" {
			err = s.deps.Revocations.RevokeToken(ctx, token)
		} else {
			err = s.deps.Revocations.RevokeJTI(ctx, jti, exp, now)
		}
		if err != nil {
			log.Error("revoke jwt failed", logger.Err(err))
			return err
		}
		log.Info("jwt revoked", logger.JTI(jti), logger.TokenKind("jwt"))
		return nil
	}

	rec, err := s.deps.Refresh.Peek(ctx, token)
	if err != nil {
		if errors.Is(err, grantstore.ErrNotFound) {
			return nil
		}
		log.Error("revoke lookup failed", logger.Err(err))
		return err
	}
	if err := s.deps.Refresh.Delete(ctx, token); err != nil {
		log.Error("revoke refresh failed", logger.Err(err))
		return err
	}
	if err := s.deps.Revocations.RevokeToken(ctx, token); err != nil {
		log.Error("record refresh revocation failed", logger.Err(err))
		return err
	}
	log.Info("refresh token revoked", logger.ClientID(rec.ClientID), logger.TokenKind("refresh_token"))
	return nil
}
