// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authd.
//
// go-authd is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config defines the typed service configuration and its loading
// from YAML files and AUTHD_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-authd/pkg/logging"
	"github.com/jeremyhahn/go-authd/pkg/ratelimit"
	"github.com/jeremyhahn/go-authd/pkg/webauthn"
)

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server" json:"server" mapstructure:"server"`
	Logging   logging.Config   `yaml:"logging" json:"logging" mapstructure:"logging"`
	CORS      CORSConfig       `yaml:"cors" json:"cors" mapstructure:"cors"`
	RateLimit ratelimit.Config `yaml:"ratelimit" json:"ratelimit" mapstructure:"ratelimit"`
	WebAuthn  webauthn.Config  `yaml:"webauthn" json:"webauthn" mapstructure:"webauthn"`
	Session   SessionConfig    `yaml:"session" json:"session" mapstructure:"session"`
	Identity  IdentityConfig   `yaml:"identity" json:"identity" mapstructure:"identity"`
	Metrics   MetricsConfig    `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address         string        `yaml:"address" json:"address" mapstructure:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// CORSConfig holds cross-origin settings for the browser-facing API.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" json:"allowed_origins" mapstructure:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials" json:"allow_credentials" mapstructure:"allow_credentials"`
}

// SessionConfig holds JWT session settings.
type SessionConfig struct {
	// Secret signs session tokens. Required in production; the serve
	// command generates an ephemeral secret when unset.
	Secret       string        `yaml:"secret" json:"-" mapstructure:"secret"`
	Issuer       string        `yaml:"issuer" json:"issuer" mapstructure:"issuer"`
	TTL          time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`
	RememberTTL  time.Duration `yaml:"remember_ttl" json:"remember_ttl" mapstructure:"remember_ttl"`
	CookieName   string        `yaml:"cookie_name" json:"cookie_name" mapstructure:"cookie_name"`
	CookieDomain string        `yaml:"cookie_domain" json:"cookie_domain" mapstructure:"cookie_domain"`
	CookieSecure bool          `yaml:"cookie_secure" json:"cookie_secure" mapstructure:"cookie_secure"`
}

// IdentityConfig holds account service settings.
type IdentityConfig struct {
	ResetTokenTTL time.Duration `yaml:"reset_token_ttl" json:"reset_token_ttl" mapstructure:"reset_token_ttl"`
	BcryptCost    int           `yaml:"bcrypt_cost" json:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// MetricsConfig holds Prometheus exposure settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Address: ":8080",
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
		},
		CORS: CORSConfig{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowCredentials: true,
		},
		RateLimit: ratelimit.Config{
			Enabled:           true,
			RequestsPerMinute: 120,
		},
		WebAuthn: webauthn.Config{
			RPID:          "localhost",
			RPDisplayName: "go-authd",
			RPOrigins:     []string{"http://localhost:3000"},
		},
		Session: SessionConfig{
			Issuer: "go-authd",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills in zero-valued fields.
func (c *Config) SetDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	c.WebAuthn.SetDefaults()
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("config: server address is required")
	}
	if err := c.WebAuthn.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Load reads configuration from the given file path, falling back to an
// authd.yaml in the working directory or /etc/authd, then applies AUTHD_*
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("authd")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/authd")
	}
	v.SetEnvPrefix("AUTHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config files fall back to defaults; explicit paths must
		// exist.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
