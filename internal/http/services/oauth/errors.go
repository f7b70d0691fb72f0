package oauth

import "errors"

// Errores de dominio. Los controllers los traducen al envelope OAuth con
// errors.Is; los services los envuelven con contexto vía fmt.Errorf("%w: ...").
var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidCredentials      = errors.New("invalid_credentials")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrUnauthorizedClient      = errors.New("unauthorized_client")
	ErrInvalidScope            = errors.New("invalid_scope")
)
