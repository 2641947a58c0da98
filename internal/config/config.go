// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

// Package config loads Specz configuration. Sources are layered, later ones
// winning: built-in defaults, a YAML file, SPECZ_* environment variables,
// then command-line flags.
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/specz/specz/internal/logging"
	"github.com/specz/specz/internal/xdg"
)

// EnvPrefix is the prefix of environment overrides, e.g. SPECZ_HTTP_ADDR.
const EnvPrefix = "SPECZ_"

// Enumerated values.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	MagicLinkStoreDatabase = "database"
	MagicLinkStoreRedis    = "redis"

	MailProviderLog    = "log"
	MailProviderResend = "resend"

	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config is the full application configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Database  DatabaseConfig  `koanf:"database"`
	MagicLink MagicLinkConfig `koanf:"magiclink"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	Mail      MailConfig      `koanf:"mail"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Sweep     SweepConfig     `koanf:"sweep"`
}

// HTTPConfig configures the web listener.
type HTTPConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	// Origin is the public base URL used in emailed links.
	Origin        string `koanf:"origin"`
	SecureCookies bool   `koanf:"secure_cookies"`
}

// DatabaseConfig selects the primary store.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	// URL is a PostgreSQL connection string or a SQLite file path.
	URL string `koanf:"url"`
}

// MagicLinkConfig selects where pending magic links live.
type MagicLinkConfig struct {
	Store string `koanf:"store"`
}

// RedisConfig configures the Redis client.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AuthConfig tunes sessions and sign-in methods.
type AuthConfig struct {
	SessionLifetime       time.Duration `koanf:"session_lifetime"`
	SessionRenewThreshold time.Duration `koanf:"session_renew_threshold"`
	MagicLinkLifetime     time.Duration `koanf:"magic_link_lifetime"`
	PasswordEnabled       bool          `koanf:"password_enabled"`
	MagicLinkEnabled      bool          `koanf:"magic_link_enabled"`
}

// MailConfig configures outbound email.
type MailConfig struct {
	Provider       string `koanf:"provider"`
	From           string `koanf:"from"`
	ResendAPIKey   string `koanf:"resend_api_key"`
	ResendEndpoint string `koanf:"resend_endpoint"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures the observability listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// SweepConfig configures the expired-row sweeper. Zero disables it.
type SweepConfig struct {
	Interval time.Duration `koanf:"interval"`
}

func defaults() map[string]any {
	return map[string]any{
		"http.addr":                    ":8080",
		"http.read_timeout":            "10s",
		"http.write_timeout":           "10s",
		"http.origin":                  "http://localhost:8080",
		"http.secure_cookies":          false,
		"database.driver":              DriverSQLite,
		"database.url":                 "",
		"magiclink.store":              MagicLinkStoreDatabase,
		"redis.addr":                   "localhost:6379",
		"redis.password":               "",
		"redis.db":                     0,
		"auth.session_lifetime":        "720h",
		"auth.session_renew_threshold": "360h",
		"auth.magic_link_lifetime":     "15m",
		"auth.password_enabled":        true,
		"auth.magic_link_enabled":      true,
		"mail.provider":                MailProviderLog,
		"mail.from":                    "Specz <noreply@localhost>",
		"mail.resend_api_key":          "",
		"mail.resend_endpoint":         "",
		"log.format":                   LogFormatJSON,
		"log.level":                    "info",
		"metrics.addr":                 "127.0.0.1:9100",
		"sweep.interval":               "1h",
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"addr":           "http.addr",
	"origin":         "http.origin",
	"database-url":   "database.url",
	"db-driver":      "database.driver",
	"log-format":     "log.format",
	"log-level":      "log.level",
	"metrics-addr":   "metrics.addr",
	"sweep-interval": "sweep.interval",
}

// Flags registers the command-line overrides on fs.
func Flags(fs *pflag.FlagSet) {
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("origin", "", "public base URL for emailed links")
	fs.String("database-url", "", "PostgreSQL URL or SQLite file path")
	fs.String("db-driver", DriverSQLite, "database driver (postgres or sqlite)")
	fs.String("log-format", LogFormatJSON, "log format (json or text)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	fs.Duration("sweep-interval", time.Hour, "expired row cleanup interval (0 = disabled)")
}

// Load builds the configuration. path names a YAML file; empty tries the
// XDG default and skips it when absent. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	if err := loadFile(k, path); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	if cfg.Database.URL == "" && cfg.Database.Driver == DriverSQLite {
		dir, err := xdg.DataDir()
		if err != nil {
			return nil, err
		}
		cfg.Database.URL = filepath.Join(dir, "specz.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	explicit := path != ""
	if !explicit {
		p, err := xdg.ConfigFile()
		if err != nil {
			return nil //nolint:nilerr // no home directory means no default file
		}
		path = p
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// envKey maps SPECZ_HTTP_READ_TIMEOUT to http.read_timeout: the first
// underscore separates the section.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Validate checks required values and enumerations.
func (c *Config) Validate() error {
	invalid := func(key string, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http.addr is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "database.url is required for postgres")
		}
	case DriverSQLite:
	default:
		return invalid("database.driver", "database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	switch c.MagicLink.Store {
	case MagicLinkStoreDatabase:
	case MagicLinkStoreRedis:
		if c.Redis.Addr == "" {
			return invalid("redis.addr", "redis.addr is required when magiclink.store is redis")
		}
	default:
		return invalid("magiclink.store", "magiclink.store must be %q or %q, got %q", MagicLinkStoreDatabase, MagicLinkStoreRedis, c.MagicLink.Store)
	}
	if c.Auth.SessionLifetime <= 0 {
		return invalid("auth.session_lifetime", "auth.session_lifetime must be positive")
	}
	if c.Auth.SessionRenewThreshold <= 0 || c.Auth.SessionRenewThreshold > c.Auth.SessionLifetime {
		return invalid("auth.session_renew_threshold", "auth.session_renew_threshold must be in (0, session_lifetime]")
	}
	if c.Auth.MagicLinkLifetime <= 0 {
		return invalid("auth.magic_link_lifetime", "auth.magic_link_lifetime must be positive")
	}
	if !c.Auth.PasswordEnabled && !c.Auth.MagicLinkEnabled {
		return invalid("auth", "at least one sign-in method must be enabled")
	}
	if c.Auth.MagicLinkEnabled && !validOrigin(c.HTTP.Origin) {
		return invalid("http.origin", "http.origin must be an absolute http(s) URL when magic links are enabled, got %q", c.HTTP.Origin)
	}
	switch c.Mail.Provider {
	case MailProviderLog:
	case MailProviderResend:
		if c.Mail.ResendAPIKey == "" {
			return invalid("mail.resend_api_key", "mail.resend_api_key is required for resend")
		}
		if c.Mail.From == "" {
			return invalid("mail.from", "mail.from is required for resend")
		}
	default:
		return invalid("mail.provider", "mail.provider must be %q or %q, got %q", MailProviderLog, MailProviderResend, c.Mail.Provider)
	}
	if c.Log.Format != LogFormatJSON && c.Log.Format != LogFormatText {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Sweep.Interval < 0 {
		return invalid("sweep.interval", "sweep.interval cannot be negative")
	}
	return nil
}

func validOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
