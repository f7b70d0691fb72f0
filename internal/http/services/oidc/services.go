// Package oidc contiene los services OIDC: discovery, JWKS y userinfo.
package oidc

import (
	"context"

	"github.com/dropDatabas3/mockidp/internal/store"
)

// KeyPublisher es lo que JWKS necesita de jwt.KeyManager.
type KeyPublisher interface {
	JWKSJSON(ctx context.Context) ([]byte, error)
}

// TokenVerifier es lo que userinfo necesita de jwt.Codec.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (map[string]any, error)
}

// Deps contiene las dependencias para crear los services OIDC.
type Deps struct {
	Issuer  string
	Keys    KeyPublisher
	Codec   TokenVerifier
	Users   store.UserStore
	Clients store.ClientStore
}

// Services agrupa todos los services del dominio OIDC.
type Services struct {
	JWKS      JWKSService
	Discovery DiscoveryService
	UserInfo  UserInfoService
}

// NewServices crea el agregador de services OIDC.
func NewServices(d Deps) Services {
	return Services{
		JWKS:      &jwksService{keys: d.Keys},
		Discovery: NewDiscoveryService(d.Issuer),
		UserInfo:  &userInfoService{deps: d},
	}
}
