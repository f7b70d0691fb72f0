package authz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtx "github.com/dropDatabas3/mockidp/internal/jwt"
)

type stubVerifier struct {
	claims map[string]any
	err    error
}

func (s stubVerifier) Verify(context.Context, string) (map[string]any, error) {
	return s.claims, s.err
}

func protectedRouter(v Verifier) http.Handler {
	ok := func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(FromContext(r.Context()).Sorted())
	}
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(v, Mapper{ClientID: "test-client"}))
		r.With(RequireRole("ADMIN")).Get("/admin", ok)
		r.With(RequireAnyRole("USER", "ADMIN")).Get("/user", ok)
		r.With(RequireAuthority("SCOPE_reports.read")).Get("/reports", ok)
	})
	return r
}

func call(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	admin := stubVerifier{claims: map[string]any{
		"sub":          "testuser",
		"realm_access": map[string]any{"roles": []any{"ADMIN"}},
		"scope":        "openid",
	}}
	h := protectedRouter(admin)

	rec := call(h, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

	rec = call(h, "/admin", "tok")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"ROLE_ADMIN", "SCOPE_openid"}, got)

	assert.Equal(t, http.StatusOK, call(h, "/user", "tok").Code)

	rec = call(h, "/reports", "tok")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient_scope")
}

func TestAuthenticate_VerificationVsInfraErrors(t *testing.T) {
	bad := protectedRouter(stubVerifier{err: &jwtx.VerificationError{Kind: jwtx.ErrTokenExpired}})
	rec := call(bad, "/user", "tok")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "expired")

	down := protectedRouter(stubVerifier{err: errors.New("jwks unreachable")})
	assert.Equal(t, http.StatusInternalServerError, call(down, "/user", "tok").Code)
}

func TestAuthenticate_EmptyClaimsAreForbiddenNotErrors(t *testing.T) {
	h := protectedRouter(stubVerifier{claims: map[string]any{"sub": "x"}})
	assert.Equal(t, http.StatusForbidden, call(h, "/user", "tok").Code)
}

func TestFromContext_Empty(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))
	assert.Nil(t, Claims(context.Background()))
}
