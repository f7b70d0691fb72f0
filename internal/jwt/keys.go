package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

const (
	AlgRS256 = "RS256"
	UseSig   = "sig"

	rsaBits = 2048
)

type KeyStatus string

const (
	KeyActive   KeyStatus = "active"
	KeyRetiring KeyStatus = "retiring" // sólo verificación, se sigue publicando en JWKS
)

// SigningKey es un par RSA con su kid. Inmutable una vez creado.
type SigningKey struct {
	KID       string
	Alg       string
	Use       string
	Status    KeyStatus
	Private   *rsa.PrivateKey // nil en las copias públicas
	Public    *rsa.PublicKey
	CreatedAt time.Time
}

// GenerateSigningKey genera un RSA-2048 con kid aleatorio (UUID).
// Un error acá es fatal para el proceso: sin clave no se firma nada.
func GenerateSigningKey() (*SigningKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaBits)
	if err != nil {
		return nil, fmt.Errorf("jwt: generate rsa key: %w", err)
	}
	return &SigningKey{
		KID:       uuid.NewString(),
		Alg:       AlgRS256,
		Use:       UseSig,
		Status:    KeyActive,
		Private:   priv,
		Public:    &priv.PublicKey,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// PublicOnly devuelve una copia sin material privado.
func (k SigningKey) PublicOnly() SigningKey {
	k.Private = nil
	return k
}

// publicJWK convierte la mitad pública en un jwk.Key con kid/use/alg.
// Importa k.Public (nunca k.Private), así que d/p/q no pueden aparecer.
func publicJWK(k SigningKey) (jwk.Key, error) {
	if k.Public == nil {
		return nil, fmt.Errorf("jwt: key %s has no public half", k.KID)
	}
	key, err := jwk.Import(k.Public)
	if err != nil {
		return nil, fmt.Errorf("jwt: import public key %s: %w", k.KID, err)
	}
	use := k.Use
	if use == "" {
		use = UseSig
	}
	alg := k.Alg
	if alg == "" {
		alg = AlgRS256
	}
	for name, v := range map[string]any{
		jwk.KeyIDKey:     k.KID,
		jwk.KeyUsageKey:  use,
		jwk.AlgorithmKey: alg,
	} {
		if err := key.Set(name, v); err != nil {
			return nil, fmt.Errorf("jwt: set %s on %s: %w", name, k.KID, err)
		}
	}
	return key, nil
}

// BuildJWKS arma el JWK Set público a partir de keys.
func BuildJWKS(keys []SigningKey) (jwk.Set, error) {
	set := jwk.NewSet()
	for _, k := range keys {
		key, err := publicJWK(k)
		if err != nil {
			return nil, err
		}
		if err := set.AddKey(key); err != nil {
			return nil, fmt.Errorf("jwt: add key %s: %w", k.KID, err)
		}
	}
	return set, nil
}
