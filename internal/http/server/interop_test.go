package server

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Clientes estándar contra el IdP: go-oidc (discovery + /certs) y x/oauth2.

func TestInterop_ClientCredentials(t *testing.T) {
	srv, _ := newIdP(t, nil)
	ctx := context.Background()

	cc := clientcredentials.Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		TokenURL:     srv.URL + "/token",
		Scopes:       []string{"openid"},
	}
	tok, err := cc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.True(t, tok.Valid())

	idt, ok := tok.Extra("id_token").(string)
	require.True(t, ok, "id_token missing from client_credentials response")

	provider, err := oidc.NewProvider(ctx, srv.URL)
	require.NoError(t, err)
	idToken, err := provider.Verifier(&oidc.Config{ClientID: "test-client"}).Verify(ctx, idt)
	require.NoError(t, err)
	assert.Equal(t, "test-client", idToken.Subject)
}

func TestInterop_PasswordAndUserInfo(t *testing.T) {
	srv, _ := newIdP(t, nil)
	ctx := context.Background()

	provider, err := oidc.NewProvider(ctx, srv.URL)
	require.NoError(t, err)
	conf := oauth2.Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	tok, err := conf.PasswordCredentialsToken(ctx, "testuser", "password123")
	require.NoError(t, err)

	idToken, err := provider.Verifier(&oidc.Config{ClientID: "test-client"}).Verify(ctx, tok.Extra("id_token").(string))
	require.NoError(t, err)
	var profile struct {
		Email             string `json:"email"`
		PreferredUsername string `json:"preferred_username"`
	}
	require.NoError(t, idToken.Claims(&profile))
	assert.Equal(t, "testuser@example.com", profile.Email)
	assert.Equal(t, "testuser", profile.PreferredUsername)

	info, err := provider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	require.NoError(t, err)
	assert.Equal(t, "testuser", info.Subject)
	assert.Equal(t, "testuser@example.com", info.Email)
}

func TestInterop_AuthorizationCodeWithPKCE(t *testing.T) {
	srv, _ := newIdP(t, nil)
	ctx := context.Background()

	provider, err := oidc.NewProvider(ctx, srv.URL)
	require.NoError(t, err)
	conf := oauth2.Config{
		ClientID:    "spa",
		Endpoint:    provider.Endpoint(),
		RedirectURL: "https://spa.example/cb",
		Scopes:      []string{oidc.ScopeOpenID},
	}
	conf.Endpoint.AuthStyle = oauth2.AuthStyleInParams

	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL("state-1",
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("response_mode", "query"),
		oidc.Nonce("nonce-1"),
	)

	noFollow := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := noFollow.Get(authURL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "state-1", loc.Query().Get("state"))

	tok, err := conf.Exchange(ctx, loc.Query().Get("code"), oauth2.VerifierOption(verifier))
	require.NoError(t, err)
	assert.NotEmpty(t, tok.RefreshToken)

	idToken, err := provider.Verifier(&oidc.Config{ClientID: "spa"}).Verify(ctx, tok.Extra("id_token").(string))
	require.NoError(t, err)
	assert.Equal(t, "nonce-1", idToken.Nonce)

	// sin access token el TokenSource usa el refresh token
	expired := *tok
	expired.AccessToken = ""
	next, err := conf.TokenSource(ctx, &expired).Token()
	require.NoError(t, err)
	assert.NotEqual(t, tok.RefreshToken, next.RefreshToken)
}
