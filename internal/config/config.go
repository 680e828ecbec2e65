// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package config loads the portal configuration from defaults, an optional
// YAML file, the environment and command-line flags, in that order.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/lnmiit/researchportal/internal/auth"
	"github.com/lnmiit/researchportal/internal/mail"
	"github.com/lnmiit/researchportal/internal/scopus"
)

// EnvPrefix namespaces generic overrides: PORTAL_HTTP__ADDR sets http.addr.
const EnvPrefix = "PORTAL_"

// Config is the full runtime configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Mail     mail.Config    `koanf:"mail"`
	Scopus   scopus.Config  `koanf:"scopus"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// AllowOrigins feeds the CORS middleware; empty disables CORS headers.
	AllowOrigins []string `koanf:"allow_origins"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.Setup.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	MaxConns       int32         `koanf:"max_conns"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	ConnectRetries uint64        `koanf:"connect_retries"`
	AutoMigrate    bool          `koanf:"auto_migrate"`
}

// AuthConfig configures tokens, reset links and registration.
type AuthConfig struct {
	JWTSecret          string        `koanf:"jwt_secret"`
	TokenTTL           time.Duration `koanf:"token_ttl"`
	BaseURL            string        `koanf:"base_url"`
	StudentEmailDomain string        `koanf:"student_email_domain"`
}

// Defaults returns the configuration used when nothing overrides a key.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":                 ":8080",
		"http.shutdown_timeout":     "5s",
		"metrics.addr":              "127.0.0.1:9100",
		"log.format":                "json",
		"log.level":                 "info",
		"database.max_conns":        10,
		"database.connect_timeout":  "5s",
		"database.connect_retries":  5,
		"database.auto_migrate":     true,
		"auth.token_ttl":            auth.DefaultTokenTTL.String(),
		"auth.student_email_domain": auth.DefaultStudentEmailDomain,
		"scopus.base_url":           scopus.DefaultBaseURL,
		"scopus.timeout":            "10s",
		"scopus.max_retries":        3,
	}
}

// wellKnownEnv maps the unprefixed variables deployments already set.
var wellKnownEnv = map[string]string{
	"DATABASE_URL":        "database.url",
	"JWT_SECRET":          "auth.jwt_secret",
	"BASE_URL":            "auth.base_url",
	"MAIL_DRIVER":         "mail.driver",
	"MAIL_FROM":           "mail.from",
	"MAIL_SMTP_HOST":      "mail.smtp.host",
	"MAIL_SMTP_PORT":      "mail.smtp.port",
	"MAIL_SMTP_USERNAME":  "mail.smtp.username",
	"MAIL_SMTP_PASSWORD":  "mail.smtp.password",
	"MAIL_RESEND_API_KEY": "mail.resend.api_key",
	"RESEND_API_KEY":      "mail.resend.api_key",
	"SCOPUS_API_KEY":      "scopus.api_key",
	"SCOPUS_BASE_URL":     "scopus.base_url",
}

// FlagKeys maps command-line flag names to configuration keys. Flags not
// listed here are ignored by Load.
var FlagKeys = map[string]string{
	"http-addr":    "http.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"database-url": "database.url",
	"base-url":     "auth.base_url",
	"auto-migrate": "database.auto_migrate",
}

// Loader assembles a Config from the process environment plus File and Flags.
type Loader struct {
	// File is an optional YAML file. A missing file is an error.
	File string
	// Flags, when set, override everything else for flags the user changed.
	Flags *pflag.FlagSet
}

// Load reads every source and returns a validated Config.
func (l Loader) Load() (*Config, error) {
	cfg, err := l.Unvalidated()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Unvalidated reads every source without checking the result. Commands
// that only touch the database use it so they do not need API secrets.
func (l Loader) Unvalidated() (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if l.File != "" {
		if err := k.Load(file.Provider(l.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", l.File).Wrap(err)
		}
	}

	if err := l.loadEnv(k); err != nil {
		return nil, err
	}

	if l.Flags != nil {
		provider := posflag.ProviderWithFlag(l.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(l.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	cfg.HTTP.AllowOrigins = splitList(cfg.HTTP.AllowOrigins)
	return &cfg, nil
}

func (l Loader) loadEnv(k *koanf.Koanf) error {
	known := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		mapped, ok := wellKnownEnv[key]
		if !ok || value == "" {
			return "", nil
		}
		return mapped, value
	})
	if err := k.Load(known, nil); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	prefixed := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		return strings.ReplaceAll(name, "__", "."), value
	})
	if err := k.Load(prefixed, nil); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	return nil
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks that required settings are present and well formed.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http address is required")
	}
	if c.Database.URL == "" {
		return invalid("database.url", "database url is required (DATABASE_URL)")
	}
	if len(c.Auth.JWTSecret) < auth.MinSecretLength {
		return invalid("auth.jwt_secret", "jwt secret must be at least 32 bytes (JWT_SECRET)")
	}
	if c.Auth.TokenTTL <= 0 {
		return invalid("auth.token_ttl", "token ttl must be positive")
	}
	base, err := url.Parse(c.Auth.BaseURL)
	if c.Auth.BaseURL == "" || err != nil || base.Scheme == "" || base.Host == "" {
		return invalid("auth.base_url", "base url must be an absolute url (BASE_URL)")
	}
	if c.Scopus.APIKey == "" {
		return invalid("scopus.api_key", "scopus api key is required (SCOPUS_API_KEY)")
	}
	if err := c.Mail.Validate(); err != nil {
		return err
	}
	return nil
}

func invalid(key, msg string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s", msg)
}
