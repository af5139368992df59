package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linemk/online-store/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `env: "local"
http_server:
  address: "localhost:8081"
  timeout: "5s"
  idle_timeout: "30s"
database:
  host: "db.local"
  port: 5433
  user: "shop"
  name: "store"
redis:
  addr: "cache.local:6379"
  db: 2
session:
  ttl: "72h"
  cookie_name: "sid"
jwt:
  token_ttl: 30
migrations:
  path: "./migrations"
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o600))
	return path
}

func TestMustLoadByPath(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "jwtsecret")
	t.Setenv("REDIS_PASSWORD", "redispass")

	cfg := config.MustLoadByPath(writeTestConfig(t))

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "localhost:8081", cfg.HTTPServer.Address)
	assert.Equal(t, 5*time.Second, cfg.HTTPServer.Timeout)

	assert.Equal(t, "db.local", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "store", cfg.Database.Name)
	// пароли приходят только из окружения
	assert.Equal(t, "secret", cfg.Database.Password)

	assert.Equal(t, "cache.local:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "redispass", cfg.Redis.Password)

	assert.Equal(t, 72*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "sid", cfg.Session.CookieName)

	assert.Equal(t, "jwtsecret", cfg.JWT.Secret)
	assert.Equal(t, 30, cfg.JWT.TokenTTL)
}

func TestMustLoadByPath_Defaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "jwtsecret")

	minimal := `database:
  user: "shop"
  name: "store"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))

	cfg := config.MustLoadByPath(path)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "localhost:8080", cfg.HTTPServer.Address)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 336*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "session_id", cfg.Session.CookieName)
	assert.Equal(t, 60, cfg.JWT.TokenTTL)
}

func TestMustLoadByPath_MissingFilePanics(t *testing.T) {
	assert.Panics(t, func() {
		config.MustLoadByPath("/nonexistent/config.yaml")
	})
}
