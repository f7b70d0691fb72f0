// Package store define los colaboradores de lectura del IdP: registro de
// clientes y usuarios. Se cargan al arrancar y son read-only después.
package store

import (
	"context"
	"errors"
	"slices"

	"github.com/dropDatabas3/mockidp/internal/claims"
	"github.com/dropDatabas3/mockidp/internal/security/password"
)

var ErrNotFound = errors.New("not found")

// ClientRegistration es un cliente OAuth. SecretHash está hasheado
// (argon2id o bcrypt); nunca se guarda el secreto en claro.
type ClientRegistration struct {
	ID           string
	SecretHash   string
	Public       bool     // sin secreto: se autentica sólo con client_id
	GrantTypes   []string // vacío = todos los soportados
	RedirectURIs []string // vacío = cualquiera
	Scopes       []string // vacío = cualquiera
	Roles        []string // roles del service account (client_credentials)
}

// VerifySecret: clientes públicos no aceptan secreto; confidenciales exigen match.
func (c *ClientRegistration) VerifySecret(secret string) bool {
	if c.Public {
		return secret == ""
	}
	return password.Verify(secret, c.SecretHash)
}

func (c *ClientRegistration) AllowsGrant(grantType string) bool {
	return len(c.GrantTypes) == 0 || slices.Contains(c.GrantTypes, grantType)
}

func (c *ClientRegistration) AllowsRedirect(uri string) bool {
	return len(c.RedirectURIs) == 0 || slices.Contains(c.RedirectURIs, uri)
}

// AllowsScopes reporta si todos los scopes pedidos están registrados.
func (c *ClientRegistration) AllowsScopes(scopes []string) bool {
	if len(c.Scopes) == 0 {
		return true
	}
	for _, s := range scopes {
		if !slices.Contains(c.Scopes, s) {
			return false
		}
	}
	return true
}

// User es un usuario local con su password hasheado.
type User struct {
	claims.Principal
	PasswordHash string
}

type ClientStore interface {
	GetClient(ctx context.Context, clientID string) (*ClientRegistration, error)
}

type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserBySubject(ctx context.Context, subject string) (*User, error)
}
