package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_OAuthEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrInvalidClient.WithCause(fmt.Errorf("bad secret")))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_client", body["error"])
	assert.NotContains(t, rec.Body.String(), "bad secret")
}

func TestWriteError_InvalidTokenSetsChallenge(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrInvalidToken)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
}

func TestWriteError_UnknownErrorIsServerError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("boom: private key path /etc/keys"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/etc/keys")
	assert.Contains(t, rec.Body.String(), "server_error")
}

func TestWithMessageDoesNotMutateBase(t *testing.T) {
	custom := ErrInvalidGrant.WithMessage("code already used")
	assert.Equal(t, "code already used", custom.Message)
	assert.NotEqual(t, custom.Message, ErrInvalidGrant.Message)
}
