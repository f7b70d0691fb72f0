package oauth

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/mockidp/internal/http/dto/oauth"
	svc "github.com/dropDatabas3/mockidp/internal/http/services/oauth"
)

// RevokeController handles POST /revoke.
type RevokeController struct {
	service svc.RevokeService
}

func NewRevokeController(s svc.RevokeService) *RevokeController {
	return &RevokeController{service: s}
}

// Revoke responde 200 con body vacío para cualquier input (RFC 7009 §2.2).
// El token puede venir en el form, en JSON o como Bearer.
func (c *RevokeController) Revoke(w http.ResponseWriter, r *http.Request) {
	_ = c.service.Revoke(r.Context(), revokeToken(r))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
}

func revokeToken(r *http.Request) string {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body dto.RevokeRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&body); err == nil {
			if t := strings.TrimSpace(body.Token); t != "" {
				return t
			}
		}
	} else if err := r.ParseForm(); err == nil {
		if t := strings.TrimSpace(r.PostForm.Get("token")); t != "" {
			return t
		}
	}
	return bearerToken(r)
}
