package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(envConfigFile, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8082", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "products.json", cfg.Store.Path)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "catalog", cfg.Events.Subject)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(envConfigFile, "")
	t.Setenv("CATALOG_HTTP_ADDR", ":9000")
	t.Setenv("CATALOG_LOG_LEVEL", " DEBUG ")
	t.Setenv("CATALOG_STORE_BACKEND", "Memory")
	t.Setenv("CATALOG_AUTH_TOKEN_TTL", "1h")
	t.Setenv("CATALOG_EVENTS_NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATSURL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: postgres
  dsn: postgres://catalog@localhost/catalog
metrics:
  token: from-file
`), 0o600))
	t.Setenv(envConfigFile, path)
	t.Setenv("CATALOG_METRICS_TOKEN", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "postgres://catalog@localhost/catalog", cfg.Store.DSN)
	assert.Equal(t, "from-env", cfg.Metrics.Token)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv(envConfigFile, filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			HTTP:   HTTPConfig{Addr: ":8082", ShutdownTimeout: time.Second},
			Log:    LogConfig{Level: "info"},
			Store:  StoreConfig{Backend: BackendFile, Path: "products.json"},
			Auth:   AuthConfig{TokenTTL: time.Minute},
			Events: EventsConfig{Subject: "catalog"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"unknown backend":      func(c *Config) { c.Store.Backend = "redis" },
		"file without path":    func(c *Config) { c.Store.Path = "" },
		"postgres without dsn": func(c *Config) { c.Store.Backend = BackendPostgres },
		"bad log level":        func(c *Config) { c.Log.Level = "loud" },
		"zero shutdown":        func(c *Config) { c.HTTP.ShutdownTimeout = 0 },
		"auth without secret": func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.AdminUser = "admin"
			c.Auth.AdminPasswordHash = "$2a$10$x"
		},
		"auth short secret": func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.JWTSecret = "short"
			c.Auth.AdminUser = "admin"
			c.Auth.AdminPasswordHash = "$2a$10$x"
		},
		"auth without hash": func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
			c.Auth.AdminUser = "admin"
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
