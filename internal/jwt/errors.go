package jwt

import "errors"

// Clases de fallo de verificación. Usar con errors.Is sobre el error de Verify.
var (
	ErrMalformedToken   = errors.New("malformed_token")
	ErrSignatureInvalid = errors.New("signature_invalid")
	ErrTokenExpired     = errors.New("token_expired")
	ErrTokenNotYetValid = errors.New("token_not_yet_valid")
	ErrTokenRevoked     = errors.New("token_revoked")
)

// VerificationError envuelve la causa concreta bajo una de las clases de arriba.
type VerificationError struct {
	Kind error
	Err  error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *VerificationError) Is(target error) bool { return target == e.Kind }
func (e *VerificationError) Unwrap() error        { return e.Err }

func verr(kind, cause error) error { return &VerificationError{Kind: kind, Err: cause} }

// IsVerificationError reporta si err viene de verificar un token (y no de
// infraestructura, p.ej. el store de claves o el de revocaciones).
func IsVerificationError(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}

// SigningError: falló la serialización o la firma. Nunca se devuelve un token parcial.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string { return "jwt: signing failed: " + e.Err.Error() }
func (e *SigningError) Unwrap() error { return e.Err }
