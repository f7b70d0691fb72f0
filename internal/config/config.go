package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/mockidp/internal/claims"
	"github.com/dropDatabas3/mockidp/internal/validation"
)

type ClientConfig struct {
	ID           string   `yaml:"id"`
	Secret       string   `yaml:"secret"` // en claro o ya hasheado ($argon2id$ / $2a$)
	Public       bool     `yaml:"public"`
	GrantTypes   []string `yaml:"grant_types"`
	RedirectURIs []string `yaml:"redirect_uris"`
	Scopes       []string `yaml:"scopes"`
	Roles        []string `yaml:"roles"`
}

type UserConfig struct {
	Subject       string   `yaml:"subject"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password"`
	Email         string   `yaml:"email"`
	EmailVerified bool     `yaml:"email_verified"`
	Name          string   `yaml:"name"`
	GivenName     string   `yaml:"given_name"`
	FamilyName    string   `yaml:"family_name"`
	Roles         []string `yaml:"roles"`
	Groups        []string `yaml:"groups"`
}

type Config struct {
	App struct {
		// dev | prod
		Env     string `yaml:"env"`
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr            string `yaml:"addr"`
		MetricsAddr     string `yaml:"metrics_addr"` // vacío = sin /metrics
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	JWT struct {
		Issuer     string `yaml:"issuer"`
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
		CodeTTL    string `yaml:"code_ttl"`
		ClaimShape string `yaml:"claim_shape"`
	} `yaml:"jwt"`

	Cache struct {
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Storage struct {
		// memory (clientes de config) | postgres (tabla oauth_clients)
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`
	} `yaml:"rate"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Clients []ClientConfig `yaml:"clients"`
	Users   []UserConfig   `yaml:"users"`

	// Authorize: /authorize no es interactivo, emite para este usuario.
	Authorize struct {
		Subject      string `yaml:"subject"`
		DefaultScope string `yaml:"default_scope"`
	} `yaml:"authorize"`

	// ResourceServer configura cmd/resource-server.
	ResourceServer struct {
		Addr          string `yaml:"addr"`
		JWKSURL       string `yaml:"jwks_url"`
		Issuer        string `yaml:"issuer"`
		Audience      string `yaml:"audience"`
		ClientID      string `yaml:"client_id"`
		RealmRoleCase string `yaml:"realm_role_case"` // as_is | upper
	} `yaml:"resource_server"`
}

// Load lee path (si existe), completa defaults, aplica env y valida.
// Un archivo inexistente no es error: el IdP arranca con el mock por defecto.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "mockidp"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "15s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "15s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "http://localhost:8080"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "1h"
	}
	if c.JWT.RefreshTTL == "" {
		c.JWT.RefreshTTL = "720h" // 30d
	}
	if c.JWT.CodeTTL == "" {
		c.JWT.CodeTTL = "2m"
	}
	if c.JWT.ClaimShape == "" {
		c.JWT.ClaimShape = "all"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "mockidp"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Authorize.DefaultScope == "" {
		c.Authorize.DefaultScope = "openid profile email"
	}

	// mock por defecto: un cliente confidencial y un usuario
	if len(c.Clients) == 0 {
		c.Clients = []ClientConfig{{
			ID:     "test-client",
			Secret: "test-secret",
			Roles:  []string{"USER"},
		}}
	}
	if len(c.Users) == 0 {
		c.Users = []UserConfig{{
			Username:      "testuser",
			Password:      "password123",
			Email:         "testuser@example.com",
			EmailVerified: true,
			Name:          "Test User",
			GivenName:     "Test",
			FamilyName:    "User",
			Roles:         []string{"USER", "ADMIN", "UPLOAD_ONLY"},
			Groups:        []string{"ADMIN", "USER"},
		}}
	}
	if c.Authorize.Subject == "" {
		c.Authorize.Subject = c.Users[0].Username
		if c.Users[0].Subject != "" {
			c.Authorize.Subject = c.Users[0].Subject
		}
	}

	if c.ResourceServer.Addr == "" {
		c.ResourceServer.Addr = ":8081"
	}
	if c.ResourceServer.Issuer == "" {
		c.ResourceServer.Issuer = c.JWT.Issuer
	}
	if c.ResourceServer.JWKSURL == "" {
		c.ResourceServer.JWKSURL = strings.TrimRight(c.ResourceServer.Issuer, "/") + "/certs"
	}
	if c.ResourceServer.RealmRoleCase == "" {
		c.ResourceServer.RealmRoleCase = "as_is"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("METRICS_ADDR"); ok {
		c.Server.MetricsAddr = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvStr("JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = v
	}
	if v, ok := getEnvStr("JWT_CODE_TTL"); ok {
		c.JWT.CodeTTL = v
	}
	if v, ok := getEnvStr("JWT_CLAIM_SHAPE"); ok {
		c.JWT.ClaimShape = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}

	// RESOURCE SERVER
	if v, ok := getEnvStr("RS_ADDR"); ok {
		c.ResourceServer.Addr = v
	}
	if v, ok := getEnvStr("RS_JWKS_URL"); ok {
		c.ResourceServer.JWKSURL = v
	}
	if v, ok := getEnvStr("RS_AUDIENCE"); ok {
		c.ResourceServer.Audience = v
	}
	if v, ok := getEnvStr("RS_CLIENT_ID"); ok {
		c.ResourceServer.ClientID = v
	}
}

func positiveDur(name, v string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %s", name, v)
	}
	return d, nil
}

// Validate rechaza TTLs no positivos, shapes y backends desconocidos,
// clientes sin id y scopes o redirect URIs mal formados.
func (c *Config) Validate() error {
	var errs []error
	for name, v := range map[string]string{
		"jwt.access_ttl":          c.JWT.AccessTTL,
		"jwt.refresh_ttl":         c.JWT.RefreshTTL,
		"jwt.code_ttl":            c.JWT.CodeTTL,
		"rate.window":             c.Rate.Window,
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if _, err := positiveDur(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := claims.ParseClaimShape(c.JWT.ClaimShape); err != nil {
		errs = append(errs, fmt.Errorf("config: jwt.claim_shape: %w", err))
	}
	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("config: cache.redis.addr required for cache.kind=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown cache.kind %q", c.Cache.Kind))
	}
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("config: storage.dsn required for storage.driver=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Rate.MaxRequests < 0 {
		errs = append(errs, errors.New("config: rate.max_requests must be >= 0"))
	}
	for i, cl := range c.Clients {
		if strings.TrimSpace(cl.ID) == "" {
			errs = append(errs, fmt.Errorf("config: clients[%d] without id", i))
		}
		if err := validation.ScopeList(strings.Join(cl.Scopes, " ")); err != nil {
			errs = append(errs, fmt.Errorf("config: clients[%d].scopes: %w", i, err))
		}
		for _, ru := range cl.RedirectURIs {
			if err := validation.RedirectURI(ru); err != nil {
				errs = append(errs, fmt.Errorf("config: clients[%d]: %w", i, err))
			}
		}
	}
	if err := validation.ScopeList(c.Authorize.DefaultScope); err != nil {
		errs = append(errs, fmt.Errorf("config: authorize.default_scope: %w", err))
	}
	switch strings.ToLower(c.ResourceServer.RealmRoleCase) {
	case "as_is", "upper":
	default:
		errs = append(errs, fmt.Errorf("config: unknown resource_server.realm_role_case %q", c.ResourceServer.RealmRoleCase))
	}
	return errors.Join(errs...)
}

// ---- Valores ya parseados (válidos después de Validate) ----

func mustDur(v string) time.Duration {
	d, _ := time.ParseDuration(strings.TrimSpace(v))
	return d
}

func (c *Config) AccessTTL() time.Duration       { return mustDur(c.JWT.AccessTTL) }
func (c *Config) RefreshTTL() time.Duration      { return mustDur(c.JWT.RefreshTTL) }
func (c *Config) CodeTTL() time.Duration         { return mustDur(c.JWT.CodeTTL) }
func (c *Config) RateWindow() time.Duration      { return mustDur(c.Rate.Window) }
func (c *Config) ReadTimeout() time.Duration     { return mustDur(c.Server.ReadTimeout) }
func (c *Config) WriteTimeout() time.Duration    { return mustDur(c.Server.WriteTimeout) }
func (c *Config) ShutdownTimeout() time.Duration { return mustDur(c.Server.ShutdownTimeout) }

func (c *Config) ClaimShape() claims.ClaimShape {
	s, _ := claims.ParseClaimShape(c.JWT.ClaimShape)
	return s
}

// ConnMaxLifetime devuelve 0 si no se configuró o no parsea.
func (c *Config) ConnMaxLifetime() time.Duration { return mustDur(c.Storage.Postgres.ConnMaxLifetime) }
