// Package tokens genera identificadores opacos (authorization codes, refresh
// tokens) y los hashes con los que se guardan.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// DefaultBytes es la entropía de codes y refresh tokens (256 bits).
const DefaultBytes = 32

// GenerateOpaqueToken genera un token aleatorio base64url sin padding.
func GenerateOpaqueToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = DefaultBytes
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL es la forma en que se indexa un token opaco en el store:
// nunca se guarda el valor en claro.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyS256 chequea un code_verifier PKCE contra el code_challenge S256.
func VerifyS256(verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	got := SHA256Base64URL(verifier)
	return subtle.ConstantTimeCompare([]byte(got), []byte(challenge)) == 1
}

// LooksLikeJWT: tres segmentos separados por punto. Los opacos son base64url sin puntos.
func LooksLikeJWT(s string) bool {
	dots := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			dots++
		}
	}
	return dots == 2
}
