// Package main provides the pricedesk server CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/pricedesk/internal/logger"
)

// Environment variables. Secrets are only read from the environment.
const (
	envJWTSecret     = "PRICEDESK_JWT_SECRET"
	envUpstreamToken = "PRICEDESK_UPSTREAM_TOKEN"
	envUpstreamURL   = "PRICEDESK_UPSTREAM_BASE_URL"
	envHTTPAddress   = "PRICEDESK_HTTP_ADDRESS"
	envLoginURL      = "PRICEDESK_LOGIN_URL"
	envSettingsPath  = "PRICEDESK_SETTINGS_PATH"
	envLogLevel      = "PRICEDESK_LOG_LEVEL"
)

const minJWTSecretLength = 32

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Auth     AuthConfig     `yaml:"auth"`
	Settings SettingsConfig `yaml:"settings"`
	Log      logger.Config  `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Verbose  bool           `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	HTTPAddress      string        `yaml:"http_address" validate:"required"`
	RateLimitPerIP   int           `yaml:"rate_limit_per_ip" validate:"gte=0"`   // requests per minute
	RateLimitPerUser int           `yaml:"rate_limit_per_user" validate:"gte=0"` // requests per minute
	RequestTimeout   string        `yaml:"request_timeout"`                      // duration, default 30s
	Preload          bool          `yaml:"preload"`                              // load every dashboard at startup
	HTTPTLS          HTTPTLSConfig `yaml:"http_tls"`
}

// HTTPTLSConfig contains HTTPS settings for the API.
type HTTPTLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file" validate:"required_if=Enabled true"`
	KeyFile  string `yaml:"key_file" validate:"required_if=Enabled true"`
}

// UpstreamConfig contains the admin API connection settings.
type UpstreamConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// BaseURLs overrides BaseURL per dashboard. Overrides stored in the
	// settings database take precedence.
	BaseURLs map[string]string `yaml:"base_urls" validate:"dive,url"`
	Timeout  string            `yaml:"timeout"` // duration, default 30s
	Token    string            `yaml:"-"`
}

// AuthConfig contains bearer token validation settings.
type AuthConfig struct {
	JWTSecret string `yaml:"-"`
	Issuer    string `yaml:"issuer"`
	LoginURL  string `yaml:"login_url" validate:"omitempty,url"`
}

// SettingsConfig locates the local settings database.
type SettingsConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// MetricsConfig contains Prometheus exporter settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

// LoadEnvFile loads variables from an env file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file, then applies environment
// variables. An empty path starts from defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Auth.JWTSecret, envJWTSecret)
	setFromEnv(&c.Upstream.Token, envUpstreamToken)
	setFromEnv(&c.Upstream.BaseURL, envUpstreamURL)
	setFromEnv(&c.Server.HTTPAddress, envHTTPAddress)
	setFromEnv(&c.Auth.LoginURL, envLoginURL)
	setFromEnv(&c.Settings.Path, envSettingsPath)
	setFromEnv(&c.Log.Level, envLogLevel)
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.RateLimitPerIP == 0 {
		c.Server.RateLimitPerIP = 300
	}
	if c.Server.RateLimitPerUser == 0 {
		c.Server.RateLimitPerUser = 100
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = "30s"
	}
	if c.Upstream.Timeout == "" {
		c.Upstream.Timeout = "30s"
	}
	if c.Settings.Path == "" {
		c.Settings.Path = "data/pricedesk.db"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	def := logger.DefaultConfig()
	if c.Log.Level == "" {
		c.Log.Level = def.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Format
	}
	if c.Log.Output == "" {
		c.Log.Output = def.Output
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q validation", configPath(fe.Namespace()), fe.Tag())
		}
		return err
	}

	if len(c.Auth.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("%s must be at least %d bytes", envJWTSecret, minJWTSecretLength)
	}
	if _, err := c.RequestTimeout(); err != nil {
		return fmt.Errorf("server.request_timeout: %w", err)
	}
	if _, err := c.UpstreamTimeout(); err != nil {
		return fmt.Errorf("upstream.timeout: %w", err)
	}
	return nil
}

// RequestTimeout returns the parsed API request timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	return parsePositiveDuration(c.Server.RequestTimeout)
}

// UpstreamTimeout returns the parsed upstream request timeout.
func (c *Config) UpstreamTimeout() (time.Duration, error) {
	return parsePositiveDuration(c.Upstream.Timeout)
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		// Bare numbers are seconds.
		secs, nerr := strconv.Atoi(s)
		if nerr != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", s)
	}
	return d, nil
}

// configPath turns a validator namespace like Config.Upstream.BaseURL into
// a readable field path.
func configPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Config.")
	return strings.ToLower(ns)
}
