// Package errors define el envelope de error HTTP del IdP.
//
// Todos los endpoints responden errores con la forma OAuth2 (RFC 6749 §5.2):
//
//	{"error": "invalid_client", "error_description": "..."}
package errors

import (
	"fmt"
	"net/http"
)

// AppError es un error con código OAuth, status HTTP y causa opcional.
// La causa nunca se serializa.
type AppError struct {
	Code       string `json:"error"`
	Message    string `json:"error_description,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New crea un AppError.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// WithMessage devuelve una COPIA con otra descripción (no muta las vars globales).
func (e *AppError) WithMessage(msg string) *AppError {
	cp := *e
	cp.Message = msg
	return &cp
}

// WithCause devuelve una COPIA con la causa original (para logs).
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// FromError convierte cualquier error en AppError; lo desconocido es server_error.
func FromError(err error) *AppError {
	if ae, ok := err.(*AppError); ok {
		return ae
	}
	return ErrServerError.WithCause(err)
}

// ---- 400 ----

var (
	ErrInvalidRequest = &AppError{
		Code:       "invalid_request",
		Message:    "The request is missing a required parameter or is otherwise malformed.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrInvalidGrant = &AppError{
		Code:       "invalid_grant",
		Message:    "The provided grant is invalid, expired, revoked or was issued to another client.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrUnsupportedGrantType = &AppError{
		Code:       "unsupported_grant_type",
		Message:    "The authorization grant type is not supported.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrUnsupportedResponseType = &AppError{
		Code:       "unsupported_response_type",
		Message:    "The response type is not supported.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrUnauthorizedClient = &AppError{
		Code:       "unauthorized_client",
		Message:    "The client is not allowed to use this grant type.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrInvalidScope = &AppError{
		Code:       "invalid_scope",
		Message:    "The requested scope is invalid or exceeds the client's scope.",
		HTTPStatus: http.StatusBadRequest,
	}
)

// ---- 401 / 403 ----

var (
	ErrInvalidClient = &AppError{
		Code:       "invalid_client",
		Message:    "Client authentication failed.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidCredentials = &AppError{
		Code:       "invalid_credentials",
		Message:    "Invalid username or password.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidToken = &AppError{
		Code:       "invalid_token",
		Message:    "The access token is missing, malformed, expired or revoked.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInsufficientScope = &AppError{
		Code:       "insufficient_scope",
		Message:    "The token does not grant the required authority.",
		HTTPStatus: http.StatusForbidden,
	}
)

// ---- otros ----

var (
	ErrNotFound = &AppError{
		Code:       "not_found",
		Message:    "Route not found.",
		HTTPStatus: http.StatusNotFound,
	}
	ErrMethodNotAllowed = &AppError{
		Code:       "invalid_request",
		Message:    "Method not allowed.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
	ErrRateLimited = &AppError{
		Code:       "slow_down",
		Message:    "Too many requests.",
		HTTPStatus: http.StatusTooManyRequests,
	}
	ErrServerError = &AppError{
		Code:       "server_error",
		Message:    "The server encountered an unexpected condition.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
