package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_ENV", "APP_ADDR", "APP_READ_TIMEOUT", "APP_WRITE_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
	"STORE_BACKEND", "PG_DSN", "REMOTE_STORE_ENDPOINT", "REMOTE_STORE_TOKEN", "REDIS_ADDR",
	"SESSION_TTL", "SESSION_COOKIE", "LOGIN_RATE_LIMIT", "BOOTSTRAP_ADMIN_USERNAME", "BOOTSTRAP_ADMIN_PASSWORD",
}

// clearEnv unsets keys for the duration of the test.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		prev, ok := os.LookupEnv(k)
		t.Cleanup(func() {
			if ok {
				_ = os.Setenv(k, prev)
			} else {
				_ = os.Unsetenv(k)
			}
		})
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, configKeys...)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "catalog_session", cfg.SessionCookie)
	assert.Equal(t, 10, cfg.LoginRateLimit)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("STORE_BACKEND=postgres\nPG_DSN=postgres://localhost/catalog\nAPP_ENV=production\n"), 0o600))

	clearEnv(t, configKeys...)
	// godotenv never overrides variables that are already set.
	t.Setenv("APP_ADDR", ":9090")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "postgres://localhost/catalog", cfg.PGDSN)
	assert.Equal(t, ":9090", cfg.AppAddr)
	assert.True(t, cfg.IsProduction())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{StoreBackend: BackendMemory, LoginRateLimit: 5}
	}

	testCases := []struct {
		name        string
		mutate      func(*Config)
		expectedErr string
	}{
		{name: "Memory backend", mutate: func(*Config) {}},
		{name: "Unknown backend", mutate: func(c *Config) { c.StoreBackend = "mongo" }, expectedErr: `unknown STORE_BACKEND "mongo"`},
		{name: "Postgres without DSN", mutate: func(c *Config) { c.StoreBackend = BackendPostgres }, expectedErr: "PG_DSN"},
		{name: "Remote without endpoint", mutate: func(c *Config) { c.StoreBackend = BackendRemote }, expectedErr: "REMOTE_STORE_ENDPOINT"},
		{name: "Remote with endpoint", mutate: func(c *Config) {
			c.StoreBackend = BackendRemote
			c.RemoteStoreEndpoint = "https://identity.internal"
		}},
		{name: "Admin without password", mutate: func(c *Config) { c.BootstrapAdminUsername = "root" }, expectedErr: "BOOTSTRAP_ADMIN_PASSWORD"},
		{name: "Zero rate limit", mutate: func(c *Config) { c.LoginRateLimit = 0 }, expectedErr: "LOGIN_RATE_LIMIT"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}
