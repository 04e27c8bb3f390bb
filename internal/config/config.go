// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package config loads and validates process-wide configuration.
//
// Precedence, lowest to highest: baked-in defaults, the optional YAML config
// file, environment fallbacks for secrets, explicitly set command-line flags.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Environment variable fallbacks for values that should not live in config
// files or shell history.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvJWTSecret   = "SIGIL_JWT_SECRET"
)

// Config holds all process-wide settings. It is constructed once at startup
// and threaded into constructors; nothing reads configuration at call time.
type Config struct {
	DatabaseURL string `koanf:"database_url"`
	DBMinConns  int32  `koanf:"db_min_conns"`
	DBMaxConns  int32  `koanf:"db_max_conns"`

	ListenAddr  string `koanf:"listen_addr"`
	MetricsAddr string `koanf:"metrics_addr"`

	LogFormat   string `koanf:"log_format"`
	Environment string `koanf:"environment"`

	JWTSecret       string `koanf:"jwt_secret"`
	JWTAlgorithm    string `koanf:"jwt_algorithm"`
	TokenTTLMinutes int    `koanf:"token_ttl_minutes"`

	PasswordHasher string `koanf:"password_hasher"`
	BcryptCost     int    `koanf:"bcrypt_cost"`
}

// Default returns the baked-in defaults.
func Default() Config {
	return Config{
		DBMinConns:      2,
		DBMaxConns:      10,
		ListenAddr:      ":8080",
		MetricsAddr:     "127.0.0.1:9100",
		LogFormat:       "json",
		Environment:     "production",
		JWTAlgorithm:    "HS256",
		TokenTTLMinutes: 30,
		PasswordHasher:  "bcrypt",
		BcryptCost:      12,
	}
}

// Load builds a Config from the optional YAML file at path, environment
// fallbacks, and any explicitly set flags. A missing file is an error only
// when a path was given; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		// Flag names use dashes; config keys use underscores. Flags left at
		// their defaults do not override keys already set from the file.
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv(EnvDatabaseURL)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv(EnvJWTSecret)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration can start the process. A missing
// signing key is deliberately fatal here rather than a runtime error.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database_url is required (or set %s)", EnvDatabaseURL)
	}
	if c.JWTSecret == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("jwt_secret is required (or set %s)", EnvJWTSecret)
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return oops.Code("CONFIG_INVALID").
			With("jwt_algorithm", c.JWTAlgorithm).
			Errorf("jwt_algorithm must be HS256, HS384, or HS512")
	}
	if c.TokenTTLMinutes <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("token_ttl_minutes", c.TokenTTLMinutes).
			Errorf("token_ttl_minutes must be positive")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			Errorf("log_format must be 'json' or 'text'")
	}
	switch c.PasswordHasher {
	case "bcrypt", "argon2id":
	default:
		return oops.Code("CONFIG_INVALID").
			With("password_hasher", c.PasswordHasher).
			Errorf("password_hasher must be 'bcrypt' or 'argon2id'")
	}
	return nil
}

// TokenTTL returns the configured token lifetime as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// IsDev reports whether error detail may be exposed in HTTP responses.
// Production configurations never leak internals.
func (c *Config) IsDev() bool {
	return c.Environment == "dev" || c.Environment == "test"
}
