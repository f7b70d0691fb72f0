package oauth

import (
	"encoding/json"
	"net/http"

	dto "github.com/dropDatabas3/mockidp/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/mockidp/internal/http/errors"
	svc "github.com/dropDatabas3/mockidp/internal/http/services/oauth"
)

// LoginController handles POST /login (JSON).
type LoginController struct {
	service svc.LoginService
}

func NewLoginController(s svc.LoginService) *LoginController {
	return &LoginController{service: s}
}

func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithMessage("Invalid JSON body"))
		return
	}

	resp, err := c.service.Login(r.Context(), req)
	if err != nil {
		httperrors.WriteError(w, toAppError(err))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	httperrors.WriteJSON(w, http.StatusOK, resp)
}
