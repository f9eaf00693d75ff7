package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that decodes from strings such as "15m"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type ServerConfig struct {
	Port        int    `toml:"port"`
	BaseURL     string `toml:"base_url"`     // Public URL used in tracking links
	ViewsReload bool   `toml:"views_reload"` // Re-parse templates on every render
}

type LogConfig struct {
	Level string `toml:"level"`
}

type StorageConfig struct {
	SnapshotPath string `toml:"snapshot_path"` // bbolt file; empty keeps state in memory only
	Seed         bool   `toml:"seed"`          // Load mock data when there is no snapshot
}

type TrackingConfig struct {
	Secret   string   `toml:"secret"` // HMAC key for tracking tokens
	TokenTTL Duration `toml:"token_ttl"`
}

type AuthConfig struct {
	Username     string `toml:"username"`
	PasswordHash string `toml:"password_hash"` // bcrypt hash
}

type RateLimitConfig struct {
	Requests int      `toml:"requests"`
	Window   Duration `toml:"window"`
}

type SSLConfig struct {
	Enabled    bool   `toml:"enabled"`
	CertFile   string `toml:"cert_file"`    // Path to fullchain.pem
	KeyFile    string `toml:"key_file"`     // Path to privkey.pem
	Domain     string `toml:"domain"`       // Domain name for HSTS
	HSTSMaxAge int    `toml:"hsts_max_age"` // Max age for HSTS in seconds
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
	Storage   StorageConfig   `toml:"storage"`
	Tracking  TrackingConfig  `toml:"tracking"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	SSL       SSLConfig       `toml:"ssl"`
}

// DefaultTrackingSecret is the placeholder tracking key shipped with the
// defaults. Tokens signed with it can be forged by anyone.
const DefaultTrackingSecret = "change-me"

// Default returns the configuration used when no file is present
func Default() *Config {
	var config Config

	config.Server.Port = 4173
	config.Log.Level = "info"
	config.Storage.Seed = true
	config.Tracking.Secret = DefaultTrackingSecret
	config.Tracking.TokenTTL = Duration{30 * 24 * time.Hour}
	config.RateLimit.Requests = 100
	config.RateLimit.Window = Duration{time.Minute}
	config.SSL.HSTSMaxAge = 31536000 // 1 year

	return &config
}

// LoadConfig reads a TOML file over the defaults. A missing file is not an
// error. The PORT environment variable overrides server.port.
func LoadConfig(filepath string) (*Config, error) {
	config := Default()

	if _, err := toml.DecodeFile(filepath, config); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath, err)
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		config.Server.Port = p
	}

	if config.Server.BaseURL == "" {
		config.Server.BaseURL = fmt.Sprintf("http://localhost:%d", config.Server.Port)
	}

	if config.RateLimit.Requests <= 0 || config.RateLimit.Window.Duration <= 0 {
		return nil, fmt.Errorf("rate_limit requires positive requests and window")
	}

	if config.SSL.Enabled {
		if err := config.ValidateSSL(); err != nil {
			return nil, fmt.Errorf("SSL configuration error: %w", err)
		}
	}

	return config, nil
}

// AuthEnabled reports whether the dashboard requires basic auth
func (c *Config) AuthEnabled() bool {
	return c.Auth.Username != "" && c.Auth.PasswordHash != ""
}

// InsecureTrackingSecret reports whether tracking tokens are signed with the
// placeholder or an empty key
func (c *Config) InsecureTrackingSecret() bool {
	return c.Tracking.Secret == "" || c.Tracking.Secret == DefaultTrackingSecret
}

// ValidateSSL checks if the SSL configuration is valid
func (c *Config) ValidateSSL() error {
	if !c.SSL.Enabled {
		return nil
	}

	if c.SSL.CertFile == "" {
		return fmt.Errorf("SSL certificate file path is required")
	}

	if c.SSL.KeyFile == "" {
		return fmt.Errorf("SSL key file path is required")
	}

	if _, err := tls.LoadX509KeyPair(c.SSL.CertFile, c.SSL.KeyFile); err != nil {
		return fmt.Errorf("failed to load SSL certificates: %w", err)
	}

	return nil
}

// GetSecurityHeaders returns extra response headers for TLS deployments
func (c *Config) GetSecurityHeaders() map[string]string {
	headers := make(map[string]string)

	if c.SSL.Enabled && c.SSL.Domain != "" {
		headers["Strict-Transport-Security"] = fmt.Sprintf("max-age=%d; includeSubDomains", c.SSL.HSTSMaxAge)
	}

	return headers
}
