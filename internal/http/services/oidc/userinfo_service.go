package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/mockidp/internal/claims"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
	"github.com/dropDatabas3/mockidp/internal/store"
)

// ErrInvalidToken: token ausente, inválido, vencido, revocado o de un sujeto
// que ya no existe. El controller responde 401 invalid_token.
var ErrInvalidToken = errors.New("invalid_token")

// UserInfoService resuelve el perfil del dueño de un access token.
type UserInfoService interface {
	GetUserInfo(ctx context.Context, bearer string) (map[string]any, error)
}

type userInfoService struct {
	deps Deps
}

func (s *userInfoService) GetUserInfo(ctx context.Context, bearer string) (map[string]any, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oidc.userinfo"),
		logger.Op("GetUserInfo"),
	)
	if bearer == "" {
		return nil, fmt.Errorf("%w: missing bearer token", ErrInvalidToken)
	}

	c, err := s.deps.Codec.Verify(ctx, bearer)
	if err != nil {
		log.Debug("bearer rejected", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, _ := c["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: token without sub", ErrInvalidToken)
	}

	p, err := s.principal(ctx, sub)
	if err != nil {
		return nil, err
	}
	return claims.UserInfo(p), nil
}

// principal: usuario por subject; si no, service account del cliente.
func (s *userInfoService) principal(ctx context.Context, sub string) (claims.Principal, error) {
	u, err := s.deps.Users.GetUserBySubject(ctx, sub)
	if err == nil {
		return u.Principal, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return claims.Principal{}, err
	}
	cl, err := s.deps.Clients.GetClient(ctx, sub)
	if err == nil {
		return claims.ServiceAccountFor(cl.ID, cl.Roles), nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return claims.Principal{}, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	return claims.Principal{}, err
}
