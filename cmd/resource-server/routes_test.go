package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mockidp/internal/authz"
	jwtx "github.com/dropDatabas3/mockidp/internal/jwt"
)

func TestRoutes(t *testing.T) {
	keys := jwtx.NewKeyManager(jwtx.NewMemoryKeyStore())
	require.NoError(t, keys.EnsureBootstrap(context.Background()))
	codec := jwtx.NewCodec(keys)

	h := newRouter(
		authz.LocalVerifier{Codec: codec, Issuer: "https://idp.test"},
		authz.Mapper{ClientID: "test-client", RealmRoleCase: authz.Upper},
	)
	token := func(roles ...string) string {
		now := time.Now()
		tok, err := codec.Sign(context.Background(), map[string]any{
			"iss": "https://idp.test", "sub": "testuser", "aud": "test-client",
			"iat": now.Unix(), "exp": now.Add(time.Minute).Unix(),
			"realm_access": map[string]any{"roles": roles},
		})
		require.NoError(t, err)
		return tok
	}

	cases := []struct {
		name, method, path, token string
		want                      int
	}{
		{"public sin token", http.MethodGet, "/api/public/ping", "", http.StatusOK},
		{"me sin token", http.MethodGet, "/api/me", "", http.StatusUnauthorized},
		{"token basura", http.MethodGet, "/api/user/x", "nope", http.StatusUnauthorized},
		{"user", http.MethodGet, "/api/user/x", token("user"), http.StatusOK},
		{"admin entra a user", http.MethodGet, "/api/user/x", token("admin"), http.StatusOK},
		{"user no es admin", http.MethodGet, "/api/admin/x", token("user"), http.StatusForbidden},
		{"admin", http.MethodGet, "/api/admin/x", token("admin"), http.StatusOK},
		{"upload only", http.MethodPost, "/api/upload/f", token("upload_only"), http.StatusOK},
		{"upload only no lee user", http.MethodGet, "/api/user/x", token("upload_only"), http.StatusForbidden},
		{"sin roles", http.MethodGet, "/api/user/x", token(), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}

	t.Run("me", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token("admin", "user"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Sub         string   `json:"sub"`
			Authorities []string `json:"authorities"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "testuser", body.Sub)
		assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER"}, body.Authorities)
	})
}
