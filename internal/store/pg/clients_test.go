package pg

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mockidp/internal/security/password"
	"github.com/dropDatabas3/mockidp/internal/store"
)

// Requiere un Postgres accesible:
//
//	MOCKIDP_TEST_PG_DSN=postgres://... go test ./internal/store/pg/
func openTestStore(t *testing.T) *ClientStore {
	t.Helper()
	dsn := os.Getenv("MOCKIDP_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("MOCKIDP_TEST_PG_DSN not set")
	}
	s, err := Open(context.Background(), dsn, PoolConfig{MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestClientStore_UpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h, err := password.HashBcrypt("pg-secret")
	require.NoError(t, err)
	require.NoError(t, s.UpsertClient(ctx, store.ClientRegistration{
		ID:         "pg-client",
		SecretHash: h,
		GrantTypes: []string{"client_credentials"},
		Roles:      []string{"SERVICE"},
	}))

	c, err := s.GetClient(ctx, "pg-client")
	require.NoError(t, err)
	assert.True(t, c.VerifySecret("pg-secret"))
	assert.Equal(t, []string{"client_credentials"}, c.GrantTypes)
	assert.Empty(t, c.RedirectURIs)

	_, err = s.GetClient(ctx, "missing-client")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOpen_BadDSN(t *testing.T) {
	_, err := Open(context.Background(), "://not a dsn", PoolConfig{})
	assert.Error(t, err)
}
