package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":         "development",
		"APP_PORT":        "8080",
		"DB_USER":         "store",
		"DB_HOST":         "127.0.0.1",
		"DB_PORT":         "3306",
		"DB_NAME":         "storefront",
		"SESSION_SECRET":  strings.Repeat("k", 32),
		"ADMIN_API_TOKEN": "token",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, ProviderLocal, cfg.IdentityProvider)
	assert.True(t, cfg.EventsEnabled)
	assert.False(t, cfg.DBMigrate)
	assert.Empty(t, cfg.AdminEmails)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("IDENTITY_PROVIDER", "Firebase")
	t.Setenv("ADMIN_EMAILS", " ops@example.com, ,owner@example.com ")
	t.Setenv("EVENTS_ENABLED", "off")
	t.Setenv("DB_MIGRATE", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, ProviderFirebase, cfg.IdentityProvider)
	assert.Equal(t, []string{"ops@example.com", "owner@example.com"}, cfg.AdminEmails)
	assert.False(t, cfg.EventsEnabled)
	assert.True(t, cfg.DBMigrate)
}

func TestLoadReportsEveryProblem(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_PORT", "")
	t.Setenv("ADMIN_API_TOKEN", "")
	t.Setenv("SESSION_SECRET", "short")
	t.Setenv("BCRYPT_COST", "cheap")
	t.Setenv("REQUEST_TIMEOUT", "-1s")
	t.Setenv("IDENTITY_PROVIDER", "ldap")

	_, err := Load()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"APP_PORT", "ADMIN_API_TOKEN", "SESSION_SECRET", "BCRYPT_COST", "REQUEST_TIMEOUT", "IDENTITY_PROVIDER"} {
		assert.Contains(t, msg, want)
	}
}

func TestAdminAllowList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "admins.toml")
	require.NoError(t, os.WriteFile(path, []byte(`emails = ["owner@example.com", "auditor@example.com"]`+"\n"), 0o600))

	cfg := Config{AdminEmails: []string{"ops@example.com"}, AdminAllowFile: path}
	got, err := cfg.AdminAllowList()
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.com", "owner@example.com", "auditor@example.com"}, got)
}

func TestAdminAllowListErrors(t *testing.T) {
	dir := t.TempDir()
	typo := filepath.Join(dir, "typo.toml")
	require.NoError(t, os.WriteFile(typo, []byte(`email = ["a@example.com"]`+"\n"), 0o600))

	_, err := Config{AdminAllowFile: typo}.AdminAllowList()
	assert.ErrorContains(t, err, "unknown keys")

	_, err = Config{AdminAllowFile: filepath.Join(dir, "missing.toml")}.AdminAllowList()
	assert.Error(t, err)

	got, err := Config{AdminEmails: []string{"a@example.com"}}.AdminAllowList()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com"}, got)
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := LoadRateLimitConfig()
		assert.True(t, cfg.Enabled)
		assert.Equal(t, 30, cfg.Burst)
		assert.Equal(t, 2*time.Second, cfg.Every)
		assert.Equal(t, KeyByPrincipalRoute, cfg.KeyBy)
		assert.Equal(t, time.Minute, cfg.Refill())
	})

	t.Run("clamped", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_BURST", "0")
		t.Setenv("RATE_LIMIT_EVERY", "-1s")
		t.Setenv("RATE_LIMIT_KEY_BY", "everything")
		t.Setenv("RATE_LIMIT_ENABLED", "false")

		cfg := LoadRateLimitConfig()
		assert.False(t, cfg.Enabled)
		assert.Equal(t, 1, cfg.Burst)
		assert.Equal(t, time.Second, cfg.Every)
		assert.Equal(t, KeyByPrincipalRoute, cfg.KeyBy)
	})

	t.Run("ip scope", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_KEY_BY", "IP")
		assert.Equal(t, KeyByIP, LoadRateLimitConfig().KeyBy)
	})
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "2")
	opts := RedisOptions()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Nil(t, opts.TLSConfig)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_TLS", "true")
	opts = RedisOptions()
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.NotNil(t, opts.TLSConfig)
}
