// Package config loads runtime configuration from the environment,
// optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

type Config struct {
	AppEnv          string        `envconfig:"APP_ENV" default:"development"`
	AppAddr         string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout  time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	StoreBackend        string `envconfig:"STORE_BACKEND" default:"memory"`
	PGDSN               string `envconfig:"PG_DSN"`
	RemoteStoreEndpoint string `envconfig:"REMOTE_STORE_ENDPOINT"`
	RemoteStoreToken    string `envconfig:"REMOTE_STORE_TOKEN"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"catalog_session"`

	// LoginRateLimit is the number of login/registration attempts
	// allowed per client IP and minute.
	LoginRateLimit int `envconfig:"LOGIN_RATE_LIMIT" default:"10"`

	BootstrapAdminUsername string `envconfig:"BOOTSTRAP_ADMIN_USERNAME"`
	BootstrapAdminPassword string `envconfig:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load reads the given .env files (missing files are skipped; with no
// arguments ".env" is tried) and then the process environment. Values
// already present in the environment win over .env entries.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.PGDSN == "" {
			return errors.New("PG_DSN must be provided for the postgres backend")
		}
	case BackendRemote:
		if c.RemoteStoreEndpoint == "" {
			return errors.New("REMOTE_STORE_ENDPOINT must be provided for the remote backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.BootstrapAdminUsername != "" && c.BootstrapAdminPassword == "" {
		return errors.New("BOOTSTRAP_ADMIN_PASSWORD must be provided with BOOTSTRAP_ADMIN_USERNAME")
	}
	if c.LoginRateLimit <= 0 {
		return errors.New("LOGIN_RATE_LIMIT must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
