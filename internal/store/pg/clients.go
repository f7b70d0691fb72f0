// Package pg implementa store.ClientStore sobre Postgres (pgx v5).
// Tabla: migrations/postgres/0001_oauth_clients.sql.
package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/mockidp/internal/observability/logger"
	"github.com/dropDatabas3/mockidp/internal/store"
	migrations "github.com/dropDatabas3/mockidp/migrations/postgres"
)

// PoolConfig son los ajustes opcionales del pool.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type ClientStore struct{ pool *pgxpool.Pool }

// Open crea el pool y hace un ping con timeout de 5s.
func Open(ctx context.Context, dsn string, cfg PoolConfig) (*ClientStore, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: new pool: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &ClientStore{pool: pool}, nil
}

// NewClientStore envuelve un pool existente.
func NewClientStore(pool *pgxpool.Pool) *ClientStore { return &ClientStore{pool: pool} }

func (s *ClientStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Ping lo usa /readyz.
func (s *ClientStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

const getClientSQL = `
SELECT client_id, COALESCE(secret_hash, ''), public,
       COALESCE(grant_types, '{}'), COALESCE(redirect_uris, '{}'),
       COALESCE(scopes, '{}'), COALESCE(roles, '{}')
FROM oauth_clients
WHERE client_id = $1 AND disabled_at IS NULL
LIMIT 1`

func (s *ClientStore) GetClient(ctx context.Context, clientID string) (*store.ClientRegistration, error) {
	var c store.ClientRegistration
	err := s.pool.QueryRow(ctx, getClientSQL, clientID).Scan(
		&c.ID, &c.SecretHash, &c.Public, &c.GrantTypes, &c.RedirectURIs, &c.Scopes, &c.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		logger.From(ctx).Error("pg get client failed",
			logger.Layer("store"), logger.ClientID(clientID), logger.Err(err))
		return nil, err
	}
	return &c, nil
}

const upsertClientSQL = `
INSERT INTO oauth_clients (client_id, secret_hash, public, grant_types, redirect_uris, scopes, roles)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
ON CONFLICT (client_id) DO UPDATE SET
  secret_hash = EXCLUDED.secret_hash, public = EXCLUDED.public,
  grant_types = EXCLUDED.grant_types, redirect_uris = EXCLUDED.redirect_uris,
  scopes = EXCLUDED.scopes, roles = EXCLUDED.roles, disabled_at = NULL`

// UpsertClient registra o actualiza un cliente. SecretHash debe venir hasheado.
func (s *ClientStore) UpsertClient(ctx context.Context, c store.ClientRegistration) error {
	_, err := s.pool.Exec(ctx, upsertClientSQL,
		c.ID, c.SecretHash, c.Public, nonNil(c.GrantTypes), nonNil(c.RedirectURIs), nonNil(c.Scopes), nonNil(c.Roles))
	return err
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// Migrate aplica las migraciones embebidas en orden lexicográfico. Son
// idempotentes (IF NOT EXISTS), así que correrlas en cada arranque es seguro.
func (s *ClientStore) Migrate(ctx context.Context) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		sql, err := fs.ReadFile(migrations.FS, e.Name())
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("pg: migration %s: %w", e.Name(), err)
		}
		logger.From(ctx).Info("migration applied", logger.Layer("store"), logger.String("file", e.Name()))
	}
	return nil
}
