package oidc

import (
	"strings"

	dto "github.com/dropDatabas3/mockidp/internal/http/dto/oidc"
)

// DiscoveryService arma /.well-known/openid-configuration.
type DiscoveryService interface {
	Metadata() dto.OIDCMetadata
}

type discoveryService struct {
	meta dto.OIDCMetadata
}

// NewDiscoveryService calcula el documento una vez: sólo depende del issuer.
// S256 se anuncia aunque PKCE no sea obligatorio (se verifica si el code lo trae).
func NewDiscoveryService(issuer string) DiscoveryService {
	base := strings.TrimRight(issuer, "/")
	return &discoveryService{meta: dto.OIDCMetadata{
		Issuer:                base,
		AuthorizationEndpoint: base + "/authorize",
		TokenEndpoint:         base + "/token",
		UserinfoEndpoint:      base + "/userinfo",
		JWKSURI:               base + "/certs",
		RevocationEndpoint:    base + "/revoke",
		IntrospectionEndpoint: base + "/introspect",

		ResponseTypesSupported:            []string{"code", "token", "id_token", "id_token token"},
		ResponseModesSupported:            []string{"query", "fragment"},
		GrantTypesSupported:               []string{"authorization_code", "password", "client_credentials", "refresh_token", "implicit"},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{"RS256"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post"},
		CodeChallengeMethodsSupported:     []string{"S256"},
		ScopesSupported:                   []string{"openid", "profile", "email"},
		ClaimsSupported: []string{
			"sub", "iss", "aud", "exp", "iat", "auth_time", "nonce",
			"name", "given_name", "family_name", "preferred_username",
			"email", "email_verified", "roles", "groups",
		},
	}}
}

func (s *discoveryService) Metadata() dto.OIDCMetadata { return s.meta }
