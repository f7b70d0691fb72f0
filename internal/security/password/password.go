// Package password hashea y verifica secretos (passwords de usuarios y
// client secrets). Formatos aceptados:
//
//   - $argon2id$v=19$m=..,t=..,p=..$<salt>$<dk>  (PHC, el que genera Hash)
//   - $2a$ / $2b$ / $2y$                          (bcrypt, clientes legacy)
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

var Default = Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

var ErrEmpty = errors.New("password: empty secret")

// Hash devuelve un PHC argon2id con los parámetros por defecto.
func Hash(plain string) (string, error) { return HashWithParams(Default, plain) }

// HashWithParams devuelve un PHC argon2id con p.
func HashWithParams(p Params, plain string) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

// HashBcrypt existe para sembrar clientes con el formato que usan otros servidores.
func HashBcrypt(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// IsHashed reporta si s ya tiene un formato de hash reconocido.
func IsHashed(s string) bool {
	return strings.HasPrefix(s, "$argon2id$") || isBcrypt(s)
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// Verify compara plain contra encoded en tiempo constante.
// Un encoded con formato desconocido nunca verifica.
func Verify(plain, encoded string) bool {
	switch {
	case plain == "":
		return false
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(plain, encoded)
	case isBcrypt(encoded):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain)) == nil
	default:
		return false
	}
}

func verifyArgon2id(plain, phc string) bool {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, dk
	parts := strings.Split(phc, "$")
	if len(parts) != 6 {
		return false
	}
	var v int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &v); err != nil || v != argon2.Version {
		return false
	}
	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}
	got := argon2.IDKey([]byte(plain), salt, t, m, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
