// Package oauth contiene los services del dominio OAuth2: el motor de grants
// (/token, /authorize, /login) y la introspección/revocación.
package oauth

import (
	"context"
	"time"

	"github.com/dropDatabas3/mockidp/internal/claims"
	"github.com/dropDatabas3/mockidp/internal/grantstore"
	"github.com/dropDatabas3/mockidp/internal/store"
)

// TokenCodec es lo que los services necesitan de jwt.Codec.
type TokenCodec interface {
	Sign(ctx context.Context, claims map[string]any) (string, error)
	Verify(ctx context.Context, raw string) (map[string]any, error)
}

// Recorder recibe eventos de dominio para métricas. Puede ser nil.
type Recorder interface {
	TokenIssued(grantType string)
	GrantFailed(grantType, code string)
	Introspected(active bool)
	Revoked()
}

type nopRecorder struct{}

func (nopRecorder) TokenIssued(string)         {}
func (nopRecorder) GrantFailed(string, string) {}
func (nopRecorder) Introspected(bool)          {}
func (nopRecorder) Revoked()                   {}

// Deps contiene las dependencias para crear los services OAuth.
type Deps struct {
	Clients     store.ClientStore
	Users       store.UserStore
	Codec       TokenCodec
	Claims      claims.Builder
	Codes       *grantstore.Codes
	Refresh     *grantstore.Refresh
	Revocations *grantstore.Revocations

	DefaultScope     string // scope cuando el request no trae uno
	AuthorizeSubject string // usuario para el que emite /authorize
	LoginClientID    string // cliente con el que /login emite tokens

	Metrics Recorder
	Now     func() time.Time
}

// Services agrupa todos los services del dominio OAuth.
type Services struct {
	Token      TokenService
	Authorize  AuthorizeService
	Introspect IntrospectService
	Revoke     RevokeService
	Login      LoginService
}

// NewServices crea el agregador de services OAuth.
func NewServices(d Deps) Services {
	if d.Metrics == nil {
		d.Metrics = nopRecorder{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.DefaultScope == "" {
		d.DefaultScope = "openid profile email"
	}
	eng := newGrantEngine(d)
	return Services{
		Token:      eng,
		Authorize:  &authorizeService{eng: eng},
		Introspect: &introspectService{deps: d},
		Revoke:     &revokeService{deps: d},
		Login:      &loginService{eng: eng},
	}
}
