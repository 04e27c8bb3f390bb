// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigilauth/sigil/pkg/errutil"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sigil.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 30, cfg.TokenTTLMinutes)
	assert.Equal(t, "bcrypt", cfg.PasswordHasher)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, int32(2), cfg.DBMinConns)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
}

func TestLoad(t *testing.T) {
	t.Run("defaults plus env fallbacks", func(t *testing.T) {
		t.Setenv(EnvDatabaseURL, "postgres://localhost:5432/sigil")
		t.Setenv(EnvJWTSecret, "env-secret")

		cfg, err := Load("", nil)
		require.NoError(t, err)

		assert.Equal(t, "postgres://localhost:5432/sigil", cfg.DatabaseURL)
		assert.Equal(t, "env-secret", cfg.JWTSecret)
		assert.Equal(t, ":8080", cfg.ListenAddr)
		assert.Equal(t, 30*time.Minute, cfg.TokenTTL())
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
database_url: postgres://db:5432/sigil
jwt_secret: file-secret
listen_addr: ":9090"
log_format: text
token_ttl_minutes: 5
password_hasher: argon2id
`)

		cfg, err := Load(path, nil)
		require.NoError(t, err)

		assert.Equal(t, "postgres://db:5432/sigil", cfg.DatabaseURL)
		assert.Equal(t, "file-secret", cfg.JWTSecret)
		assert.Equal(t, ":9090", cfg.ListenAddr)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, 5*time.Minute, cfg.TokenTTL())
		assert.Equal(t, "argon2id", cfg.PasswordHasher)
		// Untouched keys keep their defaults.
		assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	})

	t.Run("explicit flag beats file", func(t *testing.T) {
		path := writeConfigFile(t, `
database_url: postgres://db:5432/sigil
jwt_secret: file-secret
listen_addr: ":9090"
`)

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("listen-addr", ":8080", "")
		require.NoError(t, flags.Parse([]string{"--listen-addr", ":7070"}))

		cfg, err := Load(path, flags)
		require.NoError(t, err)
		assert.Equal(t, ":7070", cfg.ListenAddr)
	})

	t.Run("unset flag does not override file", func(t *testing.T) {
		path := writeConfigFile(t, `
database_url: postgres://db:5432/sigil
jwt_secret: file-secret
listen_addr: ":9090"
`)

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("listen-addr", ":8080", "")
		require.NoError(t, flags.Parse(nil))

		cfg, err := Load(path, flags)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.ListenAddr)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		errutil.AssertErrorCode(t, err, "CONFIG_FILE_FAILED")
	})

	t.Run("missing secret is fatal", func(t *testing.T) {
		t.Setenv(EnvDatabaseURL, "postgres://localhost:5432/sigil")
		t.Setenv(EnvJWTSecret, "")

		_, err := Load("", nil)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.DatabaseURL = "postgres://localhost:5432/sigil"
		cfg.JWTSecret = "secret"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		cfg := valid()
		assert.NoError(t, cfg.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing database url", mutate: func(c *Config) { c.DatabaseURL = "" }},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }},
		{name: "asymmetric algorithm", mutate: func(c *Config) { c.JWTAlgorithm = "RS256" }},
		{name: "zero ttl", mutate: func(c *Config) { c.TokenTTLMinutes = 0 }},
		{name: "negative ttl", mutate: func(c *Config) { c.TokenTTLMinutes = -1 }},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }},
		{name: "unknown hasher", mutate: func(c *Config) { c.PasswordHasher = "md5" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			errutil.AssertErrorCode(t, cfg.Validate(), "CONFIG_INVALID")
		})
	}
}

func TestConfig_IsDev(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.IsDev())

	cfg.Environment = "dev"
	assert.True(t, cfg.IsDev())

	cfg.Environment = "test"
	assert.True(t, cfg.IsDev())
}
