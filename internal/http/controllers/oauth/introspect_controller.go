package oauth

import (
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/mockidp/internal/http/errors"
	svc "github.com/dropDatabas3/mockidp/internal/http/services/oauth"
)

// IntrospectController handles POST /introspect.
type IntrospectController struct {
	service svc.IntrospectService
}

func NewIntrospectController(s svc.IntrospectService) *IntrospectController {
	return &IntrospectController{service: s}
}

// Introspect responde 200 siempre que el form parsee; el resultado va en active.
func (c *IntrospectController) Introspect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidRequest.WithMessage("Invalid form data"))
		return
	}
	res := c.service.Introspect(r.Context(), strings.TrimSpace(r.PostForm.Get("token")))
	w.Header().Set("Cache-Control", "no-store")
	httperrors.WriteJSON(w, http.StatusOK, res)
}
