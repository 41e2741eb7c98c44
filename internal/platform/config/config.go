// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, token codec) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Bazaar API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL      string `env:"DATABASE_URL,required"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"25"`
	DatabaseMinConns int32  `env:"DATABASE_MIN_CONNS" envDefault:"2"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis), backs the one-time code store.
	RedisURL      string `env:"REDIS_URL,required"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// Token signing. The secret is read once at startup and handed to the codec.
	JWTSecret string        `env:"JWT_SECRET,required,unset"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"bazaar.app"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"  envDefault:"1440h"`

	// Password hashing and complexity policy
	BcryptCost            int  `env:"BCRYPT_COST"             envDefault:"10"`
	PasswordMinLength     int  `env:"PASSWORD_MIN_LENGTH"     envDefault:"8"`
	PasswordRequireUpper  bool `env:"PASSWORD_REQUIRE_UPPER"  envDefault:"true"`
	PasswordRequireDigit  bool `env:"PASSWORD_REQUIRE_DIGIT"  envDefault:"true"`
	PasswordRequireSymbol bool `env:"PASSWORD_REQUIRE_SYMBOL" envDefault:"false"`

	// One-time registration codes
	RegisterCodeTTL         time.Duration `env:"REGISTER_CODE_TTL"          envDefault:"10m"`
	RegisterCodeMaxAttempts int           `env:"REGISTER_CODE_MAX_ATTEMPTS" envDefault:"5"`

	// Code delivery. An empty broker list falls back to the log dispatcher
	// outside production.
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaCodeTopic string   `env:"KAFKA_CODE_TOPIC" envDefault:"notification.registration-code"`

	// Per-IP rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"100"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"150"`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`

	// TrustedProxies lists the peers (CIDR or bare IP) whose X-Real-IP and
	// X-Forwarded-For headers are believed. Empty means none.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	trustedProxies []netip.Prefix
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces cross-field constraints env tags cannot express.
func (c *Config) validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("config: JWT_SECRET must be at least 32 bytes")
	}
	if c.PasswordMinLength < 1 {
		return fmt.Errorf("config: PASSWORD_MIN_LENGTH must be positive")
	}
	if c.RegisterCodeTTL <= 0 {
		return fmt.Errorf("config: REGISTER_CODE_TTL must be positive")
	}
	if c.RegisterCodeMaxAttempts < 1 {
		return fmt.Errorf("config: REGISTER_CODE_MAX_ATTEMPTS must be positive")
	}
	if c.IsProduction() && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("config: KAFKA_BROKERS is required in production")
	}

	c.trustedProxies = make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		prefix, err := parseProxy(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("config: invalid TRUSTED_PROXIES entry %q: %w", raw, err)
		}
		c.trustedProxies = append(c.trustedProxies, prefix)
	}
	return nil
}

// parseProxy accepts a CIDR or a single address.
func parseProxy(raw string) (netip.Prefix, error) {
	if strings.Contains(raw, "/") {
		prefix, err := netip.ParsePrefix(raw)
		return prefix.Masked(), err
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// TrustedProxyPrefixes returns the parsed TRUSTED_PROXIES set by [Load].
func (c *Config) TrustedProxyPrefixes() []netip.Prefix {
	return c.trustedProxies
}

// AllowedOrigins lists the origins CORS accepts outside development.
func (c *Config) AllowedOrigins() []string {
	return c.ExtraOrigins
}
