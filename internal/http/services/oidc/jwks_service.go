package oidc

import (
	"context"
	"encoding/json"

	"github.com/dropDatabas3/mockidp/internal/observability/logger"
)

// JWKSService devuelve el JWKS público.
type JWKSService interface {
	GetJWKS(ctx context.Context) (json.RawMessage, error)
}

type jwksService struct {
	keys KeyPublisher
}

func (s *jwksService) GetJWKS(ctx context.Context) (json.RawMessage, error) {
	data, err := s.keys.JWKSJSON(ctx)
	if err != nil {
		logger.From(ctx).Error("failed to build JWKS",
			logger.Layer("service"), logger.Component("oidc.jwks"), logger.Err(err))
		return nil, err
	}
	return data, nil
}
