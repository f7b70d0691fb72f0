package oauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mockidp/internal/cache"
	"github.com/dropDatabas3/mockidp/internal/claims"
	"github.com/dropDatabas3/mockidp/internal/grantstore"
	dto "github.com/dropDatabas3/mockidp/internal/http/dto/oauth"
	jwtx "github.com/dropDatabas3/mockidp/internal/jwt"
	"github.com/dropDatabas3/mockidp/internal/security/password"
	"github.com/dropDatabas3/mockidp/internal/store"
)

var t0 = time.Unix(1_700_000_000, 0).UTC()

type recorder struct {
	mu     sync.Mutex
	issued []string
	failed []string
}

func (r *recorder) TokenIssued(g string) { r.mu.Lock(); r.issued = append(r.issued, g); r.mu.Unlock() }
func (r *recorder) GrantFailed(g, code string) {
	r.mu.Lock()
	r.failed = append(r.failed, g+":"+code)
	r.mu.Unlock()
}
func (r *recorder) Introspected(bool) {}
func (r *recorder) Revoked()          {}

type fixture struct {
	svc   Services
	codec *jwtx.Codec
	rec   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hash := func(p string) (string, error) {
		return password.HashWithParams(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 16}, p)
	}
	st, err := store.NewMemoryStore(
		[]store.ClientSeed{
			{ID: "test-client", Secret: "test-secret", Roles: []string{"USER"}, RedirectURIs: []string{"https://app.example/cb"}},
			{ID: "reports", Secret: "r-secret", GrantTypes: []string{"client_credentials"}, Scopes: []string{"reports.read", "reports.write"}, Roles: []string{"REPORTER"}},
			{ID: "spa", Public: true, GrantTypes: []string{"authorization_code", "refresh_token"}, RedirectURIs: []string{"https://spa.example/a", "https://spa.example/b"}},
		},
		[]store.UserSeed{{
			Subject: "u-1", Username: "testuser", Password: "password123",
			Email: "testuser@example.com", Roles: []string{"USER", "ADMIN"}, Groups: []string{"ADMIN"},
		}},
		hash,
	)
	require.NoError(t, err)

	keys := jwtx.NewKeyManager(jwtx.NewMemoryKeyStore())
	require.NoError(t, keys.EnsureBootstrap(context.Background()))

	c := cache.NewMemory("t", 0)
	now := func() time.Time { return t0 }
	revs := grantstore.NewRevocations(c, time.Hour)
	codec := jwtx.NewCodec(keys, jwtx.WithClock(now), jwtx.WithRevocations(revs))
	rec := &recorder{}

	svc := NewServices(Deps{
		Clients:          st,
		Users:            st,
		Codec:            codec,
		Claims:           claims.Builder{Issuer: "https://idp.test", TTL: 10 * time.Minute, Shape: claims.ShapeAll},
		Codes:            grantstore.NewCodes(c, time.Minute),
		Refresh:          grantstore.NewRefresh(c, time.Hour),
		Revocations:      revs,
		AuthorizeSubject: "u-1",
		LoginClientID:    "test-client",
		Metrics:          rec,
		Now:              now,
	})
	return &fixture{svc: svc, codec: codec, rec: rec}
}

var testClient = ClientCredentials{ID: "test-client", Secret: "test-secret"}

func loginReq(user, pass string) dto.LoginRequest {
	return dto.LoginRequest{Username: user, Password: pass}
}

func TestExchange_Password(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Token.Exchange(ctx, TokenRequest{GrantType: GrantPassword, Client: testClient, Username: "testuser", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "openid profile email", resp.Scope)
	assert.EqualValues(t, 600, resp.ExpiresIn)
	assert.NotEmpty(t, resp.IDToken)

	c, err := f.codec.Verify(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c["sub"])
	assert.Equal(t, "https://idp.test", c["iss"])
	assert.Equal(t, []string{GrantPassword}, f.rec.issued)
}

func TestExchange_ErrorTaxonomy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  TokenRequest
		want error
	}{
		{"missing client", TokenRequest{GrantType: GrantPassword}, ErrInvalidClient},
		{"unknown client beats unknown grant", TokenRequest{GrantType: "magic", Client: ClientCredentials{ID: "ghost"}}, ErrInvalidClient},
		{"unknown grant", TokenRequest{GrantType: "magic", Client: testClient}, ErrUnsupportedGrantType},
		{"grant not registered", TokenRequest{GrantType: GrantPassword, Client: ClientCredentials{ID: "reports", Secret: "r-secret"}, Username: "testuser", Password: "password123"}, ErrUnauthorizedClient},
		{"missing password", TokenRequest{GrantType: GrantPassword, Client: testClient, Username: "testuser"}, ErrInvalidCredentials},
		{"unknown user", TokenRequest{GrantType: GrantPassword, Client: testClient, Username: "ghost", Password: "x"}, ErrInvalidCredentials},
		{"empty code", TokenRequest{GrantType: GrantAuthorizationCode, Client: testClient}, ErrInvalidGrant},
		{"unknown code", TokenRequest{GrantType: GrantAuthorizationCode, Client: testClient, Code: "nope"}, ErrInvalidGrant},
		{"empty refresh", TokenRequest{GrantType: GrantRefreshToken, Client: testClient}, ErrInvalidGrant},
		{"scope outside registration", TokenRequest{GrantType: GrantClientCredentials, Client: ClientCredentials{ID: "reports", Secret: "r-secret"}, Scope: "admin"}, ErrInvalidScope},
		{"public client with secret", TokenRequest{GrantType: GrantRefreshToken, Client: ClientCredentials{ID: "spa", Secret: "x"}, RefreshToken: "r"}, ErrInvalidClient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Token.Exchange(ctx, tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestExchange_ClientCredentialsScopesAndServiceAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reports := ClientCredentials{ID: "reports", Secret: "r-secret"}

	resp, err := f.svc.Token.Exchange(ctx, TokenRequest{GrantType: GrantClientCredentials, Client: reports})
	require.NoError(t, err)
	assert.Equal(t, "reports.read reports.write", resp.Scope)
	assert.Empty(t, resp.IDToken, "no openid, no id_token")

	c, err := f.codec.Verify(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "reports", c["sub"])
	assert.Equal(t, "service-account-reports", c["preferred_username"])
	assert.Equal(t, []any{"REPORTER"}, c["roles"])

	resp, err = f.svc.Token.Exchange(ctx, TokenRequest{GrantType: GrantClientCredentials, Client: reports, Scope: "reports.read"})
	require.NoError(t, err)
	assert.Equal(t, "reports.read", resp.Scope)
}

func TestAuthorize_CodeExchangeAndRedirectBinding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Authorize.Authorize(ctx, AuthorizeRequest{ClientID: "spa", ResponseType: "token"})
	assert.ErrorIs(t, err, ErrUnauthorizedClient)

	// dos redirect registrados: sin redirect_uri no se elige ninguno
	res, err := f.svc.Authorize.Authorize(ctx, AuthorizeRequest{ClientID: "spa", ResponseType: "code", RedirectURI: "https://spa.example/b", State: "s"})
	require.NoError(t, err)
	assert.Equal(t, "s", res.Response.State)
	assert.Equal(t, "https://spa.example/b", res.RedirectURI)

	_, err = f.svc.Token.Exchange(ctx, TokenRequest{
		GrantType: GrantAuthorizationCode, Client: ClientCredentials{ID: "spa"},
		Code: res.Response.Code, RedirectURI: "https://spa.example/a",
	})
	assert.ErrorIs(t, err, ErrInvalidGrant)

	// el code ya se consumió aunque el intento anterior fallara
	_, err = f.svc.Token.Exchange(ctx, TokenRequest{
		GrantType: GrantAuthorizationCode, Client: ClientCredentials{ID: "spa"},
		Code: res.Response.Code, RedirectURI: "https://spa.example/b",
	})
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestAuthorize_CodeForAnotherClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Authorize.Authorize(ctx, AuthorizeRequest{ClientID: "test-client", ResponseType: "code"})
	require.NoError(t, err)
	assert.Equal(t, "https://app.example/cb", res.RedirectURI, "single registered redirect is the default")

	_, err = f.svc.Token.Exchange(ctx, TokenRequest{
		GrantType: GrantAuthorizationCode, Client: ClientCredentials{ID: "spa"},
		Code: res.Response.Code, RedirectURI: "https://app.example/cb",
	})
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestRefresh_ReResolvesPrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cc, err := f.svc.Token.Exchange(ctx, TokenRequest{GrantType: GrantClientCredentials, Client: testClient, Scope: "openid"})
	require.NoError(t, err)

	next, err := f.svc.Token.Exchange(ctx, TokenRequest{GrantType: GrantRefreshToken, Client: testClient, RefreshToken: cc.RefreshToken})
	require.NoError(t, err)
	c, err := f.codec.Verify(ctx, next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "test-client", c["sub"], "service account survives refresh")

	_, err = f.svc.Token.Exchange(ctx, TokenRequest{GrantType: GrantRefreshToken, Client: ClientCredentials{ID: "spa"}, RefreshToken: next.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidGrant)
	_, err = f.svc.Token.Exchange(ctx, TokenRequest{GrantType: GrantRefreshToken, Client: testClient, RefreshToken: next.RefreshToken, Scope: "openid profile"})
	assert.ErrorIs(t, err, ErrInvalidScope)

	// ninguno de los rechazos consumió el token
	_, err = f.svc.Token.Exchange(ctx, TokenRequest{GrantType: GrantRefreshToken, Client: testClient, RefreshToken: next.RefreshToken})
	require.NoError(t, err)
	_, err = f.svc.Token.Exchange(ctx, TokenRequest{GrantType: GrantRefreshToken, Client: testClient, RefreshToken: next.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidGrant, "rotated")
}

func TestIntrospectAndRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Token.Exchange(ctx, TokenRequest{GrantType: GrantPassword, Client: testClient, Username: "testuser", Password: "password123"})
	require.NoError(t, err)

	a := f.svc.Introspect.Introspect(ctx, resp.AccessToken)
	b := f.svc.Introspect.Introspect(ctx, resp.AccessToken)
	assert.True(t, a.Active)
	assert.Equal(t, "testuser", a.Username)
	assert.Equal(t, t0.Add(10*time.Minute).Unix(), a.Exp)
	assert.NotEqual(t, a.Jti, b.Jti, "introspection jti is fresh per call")

	require.NoError(t, f.svc.Revoke.Revoke(ctx, resp.AccessToken))
	assert.False(t, f.svc.Introspect.Introspect(ctx, resp.AccessToken).Active)

	require.NoError(t, f.svc.Revoke.Revoke(ctx, "never-issued"))
	require.NoError(t, f.svc.Revoke.Revoke(ctx, ""))
}

func TestRevoke_JWTWithoutExp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tok, err := f.codec.Sign(ctx, map[string]any{"iss": "https://idp.test", "sub": "u-1", "jti": "no-exp"})
	require.NoError(t, err)
	_, err = f.codec.Verify(ctx, tok)
	require.NoError(t, err)

	require.NoError(t, f.svc.Revoke.Revoke(ctx, tok))
	_, err = f.codec.Verify(ctx, tok)
	assert.ErrorIs(t, err, jwtx.ErrTokenRevoked)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login.Login(ctx, loginReq("testuser", "bad"))
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	out, err := f.svc.Login.Login(ctx, loginReq("testuser", "password123"))
	require.NoError(t, err)
	assert.Equal(t, "u-1", out.User.Sub)
	assert.Equal(t, []string{"USER", "ADMIN"}, out.User.Roles)
	assert.Equal(t, []string{"ADMIN"}, out.User.Groups)
	assert.NotEmpty(t, out.RefreshToken)
	assert.Contains(t, f.rec.failed, "login:invalid_credentials")
}

func TestWantsIDToken(t *testing.T) {
	assert.True(t, wantsIDToken("openid"))
	assert.True(t, wantsIDToken("profile openid"))
	assert.True(t, wantsIDToken(""))
	assert.False(t, wantsIDToken("profile email"))
}
