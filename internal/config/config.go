// Package config loads service configuration from the environment.
//
// Values come from TENAUTH_* environment variables, optionally seeded
// from a dotenv file (see cmd/api). Signing key material may be passed
// inline as PEM or as file paths; inline values win.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration for the auth service.
type Config struct {
	// Env selects the runtime profile. In "dev" the service falls back
	// to an in-memory store and an ephemeral signing key when the
	// corresponding settings are absent.
	Env string `env:"TENAUTH_ENV" envDefault:"dev"`

	HTTP    HTTPConfig    `envPrefix:"TENAUTH_HTTP_"`
	DB      DBConfig      `envPrefix:"TENAUTH_PG_"`
	Tokens  TokenConfig   `envPrefix:"TENAUTH_TOKEN_"`
	Cookies CookieConfig  `envPrefix:"TENAUTH_COOKIE_"`
	Limits  LimitsConfig  `envPrefix:"TENAUTH_RATE_"`
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	Addr           string   `env:"ADDR" envDefault:":8080"`
	MaxBodyBytes   int64    `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// DBConfig contains PostgreSQL settings. An empty DSN in dev mode
// switches the service to the in-memory store.
type DBConfig struct {
	DSN             string        `env:"DSN"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
}

// TokenConfig carries the signing material and lifetimes for both
// token families.
type TokenConfig struct {
	Issuer string `env:"ISSUER" envDefault:"auth-service"`

	// PrivateKey is the active RS256 signing key, PEM encoded.
	PrivateKey     string `env:"PRIVATE_KEY"`
	PrivateKeyFile string `env:"PRIVATE_KEY_FILE"`

	// RetiredPublicKeys keeps previously active public keys available
	// for verification while freshly rotated tokens drain.
	RetiredPublicKeyFiles []string `env:"RETIRED_PUBLIC_KEY_FILES" envSeparator:","`

	// RefreshSecret is the HS256 shared secret for refresh tokens.
	RefreshSecret string `env:"REFRESH_SECRET"`

	// JWKSURL, when set, makes the verifier resolve public keys from a
	// remote key-distribution endpoint instead of the local keychain.
	JWKSURL string `env:"JWKS_URL"`

	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"1h"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"8760h"`
}

// CookieConfig scopes the auth cookies to the deployment domain.
type CookieConfig struct {
	Domain string `env:"DOMAIN" envDefault:"localhost"`
	Secure bool   `env:"SECURE" envDefault:"false"`
}

// LimitsConfig tunes the per-client request rate limiter.
type LimitsConfig struct {
	Burst     int `env:"BURST" envDefault:"20"`
	PerSecond int `env:"PER_SECOND" envDefault:"10"`
}

// Load parses the environment into a Config and resolves file-based
// key material.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Tokens.PrivateKey == "" && cfg.Tokens.PrivateKeyFile != "" {
		pem, err := os.ReadFile(cfg.Tokens.PrivateKeyFile)
		if err != nil {
			return Config{}, fmt.Errorf("read private key file: %w", err)
		}
		cfg.Tokens.PrivateKey = string(pem)
	}
	return cfg, nil
}

// RetiredPublicKeys reads the configured retired public key files.
func (t TokenConfig) RetiredPublicKeys() ([]string, error) {
	var pems []string
	for _, path := range t.RetiredPublicKeyFiles {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read retired public key %s: %w", path, err)
		}
		pems = append(pems, string(pem))
	}
	return pems, nil
}

// IsDev reports whether the service runs with development fallbacks.
func (c Config) IsDev() bool {
	return strings.EqualFold(c.Env, "dev") || strings.EqualFold(c.Env, "development")
}
