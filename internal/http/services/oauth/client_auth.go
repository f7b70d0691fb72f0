package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/mockidp/internal/store"
)

// ClientCredentials son las credenciales ya resueltas por el controller
// (Basic tiene prioridad sobre el body).
type ClientCredentials struct {
	ID     string
	Secret string
}

// ClientAuthenticator valida client_id/client_secret contra el registro.
type ClientAuthenticator struct {
	clients store.ClientStore
}

func NewClientAuthenticator(clients store.ClientStore) *ClientAuthenticator {
	return &ClientAuthenticator{clients: clients}
}

// Authenticate devuelve el cliente o ErrInvalidClient. Errores del store que
// no son "no encontrado" se propagan tal cual (500).
func (a *ClientAuthenticator) Authenticate(ctx context.Context, creds ClientCredentials) (*store.ClientRegistration, error) {
	if creds.ID == "" {
		return nil, fmt.Errorf("%w: missing client_id", ErrInvalidClient)
	}
	c, err := a.lookup(ctx, creds.ID)
	if err != nil {
		return nil, err
	}
	if !c.VerifySecret(creds.Secret) {
		return nil, fmt.Errorf("%w: bad secret", ErrInvalidClient)
	}
	return c, nil
}

// lookup sólo comprueba que el cliente exista (/authorize no recibe secreto).
func (a *ClientAuthenticator) lookup(ctx context.Context, clientID string) (*store.ClientRegistration, error) {
	c, err := a.clients.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown client", ErrInvalidClient)
		}
		return nil, err
	}
	return c, nil
}
