package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mockidp/internal/security/password"
)

func cheapHash(plain string) (string, error) {
	return password.HashWithParams(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 16}, plain)
}

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	bc, err := password.HashBcrypt("demo-secret")
	require.NoError(t, err)

	s, err := NewMemoryStore(
		[]ClientSeed{
			{ID: "test-client", Secret: "test-secret", Roles: []string{"SERVICE"}},
			{ID: "demo-client", Secret: bc, GrantTypes: []string{"client_credentials"}, Scopes: []string{"read"}},
			{ID: "spa", Public: true, RedirectURIs: []string{"http://localhost:3000/cb"}},
		},
		[]UserSeed{{Username: "testuser", Password: "password123", Email: "testuser@example.com", Roles: []string{"USER"}}},
		cheapHash,
	)
	require.NoError(t, err)
	return s
}

func TestMemoryStore_Clients(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	c, err := s.GetClient(ctx, "test-client")
	require.NoError(t, err)
	assert.NotEqual(t, "test-secret", c.SecretHash, "secret must be hashed at rest")
	assert.True(t, c.VerifySecret("test-secret"))
	assert.False(t, c.VerifySecret("wrong"))
	assert.True(t, c.AllowsGrant("password"))

	demo, err := s.GetClient(ctx, "demo-client")
	require.NoError(t, err)
	assert.True(t, demo.VerifySecret("demo-secret"), "pre-hashed bcrypt secret kept as is")
	assert.False(t, demo.AllowsGrant("password"))
	assert.True(t, demo.AllowsScopes([]string{"read"}))
	assert.False(t, demo.AllowsScopes([]string{"read", "write"}))

	spa, err := s.GetClient(ctx, "spa")
	require.NoError(t, err)
	assert.True(t, spa.VerifySecret(""))
	assert.False(t, spa.VerifySecret("anything"))
	assert.True(t, spa.AllowsRedirect("http://localhost:3000/cb"))
	assert.False(t, spa.AllowsRedirect("http://evil.example/cb"))

	_, err = s.GetClient(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Users(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	u, err := s.GetUserByUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.Equal(t, "testuser", u.Subject, "subject defaults to username")
	assert.True(t, password.Verify("password123", u.PasswordHash))

	bySub, err := s.GetUserBySubject(ctx, "testuser")
	require.NoError(t, err)
	assert.Same(t, u, bySub)

	_, err = s.GetUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RejectsBadSeeds(t *testing.T) {
	_, err := NewMemoryStore([]ClientSeed{{ID: " "}}, nil, cheapHash)
	assert.Error(t, err)

	_, err = NewMemoryStore([]ClientSeed{{ID: "a", Secret: "x"}, {ID: "a", Secret: "y"}}, nil, cheapHash)
	assert.Error(t, err)

	_, err = NewMemoryStore([]ClientSeed{{ID: "a", Secret: ""}}, nil, cheapHash)
	assert.Error(t, err, "confidential client needs a secret")
}
