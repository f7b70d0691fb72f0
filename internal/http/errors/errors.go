package errors

import (
	"encoding/json"
	"net/http"
)

// WriteError escribe el envelope OAuth con el status del AppError.
// Errores que no son AppError salen como server_error/500 sin detalle.
func WriteError(w http.ResponseWriter, err error) {
	ae := FromError(err)

	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
	if ae.HTTPStatus == http.StatusUnauthorized && ae.Code == ErrInvalidToken.Code {
		h.Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	w.WriteHeader(ae.HTTPStatus)
	_ = json.NewEncoder(w).Encode(ae)
}

// WriteJSON escribe v como JSON con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
