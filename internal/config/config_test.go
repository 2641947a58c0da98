// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specz/specz/internal/config"
	"github.com/specz/specz/pkg/errutil"
)

// isolate points XDG lookups at an empty directory so a developer's real
// config file cannot leak into tests.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "http://localhost:8080", cfg.HTTP.Origin)
	assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, filepath.Join(dir, "data", "specz", "specz.db"), cfg.Database.URL)
	assert.Equal(t, config.MagicLinkStoreDatabase, cfg.MagicLink.Store)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, 15*24*time.Hour, cfg.Auth.SessionRenewThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Auth.MagicLinkLifetime)
	assert.True(t, cfg.Auth.PasswordEnabled)
	assert.True(t, cfg.Auth.MagicLinkEnabled)
	assert.Equal(t, config.MailProviderLog, cfg.Mail.Provider)
	assert.Equal(t, config.LogFormatJSON, cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Hour, cfg.Sweep.Interval)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, `
http:
  addr: ":9000"
  origin: https://specz.example
database:
  driver: postgres
  url: postgres://specz@localhost/specz
auth:
  magic_link_lifetime: 10m
  password_enabled: false
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "https://specz.example", cfg.HTTP.Origin)
	assert.Equal(t, config.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://specz@localhost/specz", cfg.Database.URL)
	assert.Equal(t, 10*time.Minute, cfg.Auth.MagicLinkLifetime)
	assert.False(t, cfg.Auth.PasswordEnabled)
	assert.True(t, cfg.Auth.MagicLinkEnabled, "unset keys keep defaults")
}

func TestLoad_XDGFile(t *testing.T) {
	dir := isolate(t)
	cfgDir := filepath.Join(dir, "config", "specz")
	require.NoError(t, os.MkdirAll(cfgDir, 0o700))
	writeFile(t, cfgDir, "log:\n  format: text\n")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, config.LogFormatText, cfg.Log.Format)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	_, err := config.Load(filepath.Join(dir, "nope.yaml"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_FILE_FAILED")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "http:\n  addr: \":9000\"\n  read_timeout: 5s\n")
	t.Setenv("SPECZ_HTTP_ADDR", ":7000")
	t.Setenv("SPECZ_HTTP_READ_TIMEOUT", "3s")
	t.Setenv("SPECZ_AUTH_MAGIC_LINK_ENABLED", "false")

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ReadTimeout)
	assert.False(t, cfg.Auth.MagicLinkEnabled)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("SPECZ_HTTP_ADDR", ":7000")
	t.Setenv("SPECZ_LOG_FORMAT", "text")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.Flags(fs)
	require.NoError(t, fs.Parse([]string{"--addr", ":6000", "--sweep-interval", "5m"}))

	cfg, err := config.Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, config.LogFormatText, cfg.Log.Format, "unchanged flags keep lower layers")
}

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	isolate(t)
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		key    string
	}{
		{"missing addr", func(c *config.Config) { c.HTTP.Addr = "" }, "http.addr"},
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"postgres without url", func(c *config.Config) {
			c.Database.Driver = config.DriverPostgres
			c.Database.URL = ""
		}, "database.url"},
		{"unknown link store", func(c *config.Config) { c.MagicLink.Store = "memcached" }, "magiclink.store"},
		{"redis without addr", func(c *config.Config) {
			c.MagicLink.Store = config.MagicLinkStoreRedis
			c.Redis.Addr = ""
		}, "redis.addr"},
		{"zero lifetime", func(c *config.Config) { c.Auth.SessionLifetime = 0 }, "auth.session_lifetime"},
		{"threshold beyond lifetime", func(c *config.Config) {
			c.Auth.SessionRenewThreshold = c.Auth.SessionLifetime + time.Hour
		}, "auth.session_renew_threshold"},
		{"zero link lifetime", func(c *config.Config) { c.Auth.MagicLinkLifetime = 0 }, "auth.magic_link_lifetime"},
		{"no sign-in method", func(c *config.Config) {
			c.Auth.PasswordEnabled = false
			c.Auth.MagicLinkEnabled = false
		}, "auth"},
		{"magic links without origin", func(c *config.Config) { c.HTTP.Origin = "" }, "http.origin"},
		{"relative origin", func(c *config.Config) { c.HTTP.Origin = "specz.example" }, "http.origin"},
		{"resend without key", func(c *config.Config) { c.Mail.Provider = config.MailProviderResend }, "mail.resend_api_key"},
		{"unknown mail provider", func(c *config.Config) { c.Mail.Provider = "smtp" }, "mail.provider"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad log level", func(c *config.Config) { c.Log.Level = "loud" }, "log.level"},
		{"negative sweep", func(c *config.Config) { c.Sweep.Interval = -time.Second }, "sweep.interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "key", tt.key)
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, validConfig(t).Validate())
	})

	t.Run("origin optional without magic links", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Auth.MagicLinkEnabled = false
		cfg.HTTP.Origin = ""
		assert.NoError(t, cfg.Validate())
	})
}
