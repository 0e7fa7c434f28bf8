// Package config loads luthen configuration from an optional JSON file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	kJson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults applied by Load when a key is not set.
const (
	DefaultTokenFile     = "data/token.json"
	DefaultHTTPTimeout   = 30
	DefaultRetryAttempts = 1
	DefaultLocale        = "es-VE"
	DefaultCurrency      = "USD"
)

// Config holds the application configuration.
type Config struct {
	// APIURL is the base URL of the luthen API.
	// Environment variable: LUTHEN_API_URL
	APIURL string `koanf:"LUTHEN_API_URL"`

	// Identity provider settings used by the login flow.
	// Environment variables: LUTHEN_AUTH_DOMAIN, LUTHEN_AUTH_CLIENT_ID, LUTHEN_AUTH_AUDIENCE
	AuthDomain   string `koanf:"LUTHEN_AUTH_DOMAIN"`
	AuthClientID string `koanf:"LUTHEN_AUTH_CLIENT_ID"`
	AuthAudience string `koanf:"LUTHEN_AUTH_AUDIENCE"`

	// TokenFile is where the login flow stores the access token.
	// Environment variable: LUTHEN_TOKEN_FILE
	TokenFile string `koanf:"LUTHEN_TOKEN_FILE"`

	// HTTPTimeout is the request timeout in seconds.
	// Environment variable: LUTHEN_HTTP_TIMEOUT
	HTTPTimeout int `koanf:"LUTHEN_HTTP_TIMEOUT"`

	// RetryAttempts is the number of attempts for idempotent reads. 1 disables retries.
	// Environment variable: LUTHEN_RETRY_ATTEMPTS
	RetryAttempts int `koanf:"LUTHEN_RETRY_ATTEMPTS"`

	// RateLimit caps outgoing requests per second. 0 disables the limit.
	// Environment variable: LUTHEN_RATE_LIMIT
	RateLimit float64 `koanf:"LUTHEN_RATE_LIMIT"`

	// Locale and Currency drive presentation formatting.
	// Environment variables: LUTHEN_LOCALE, LUTHEN_CURRENCY
	Locale   string `koanf:"LUTHEN_LOCALE"`
	Currency string `koanf:"LUTHEN_CURRENCY"`

	// LogJSON switches the log output to JSON.
	// Environment variable: LUTHEN_LOG_JSON
	LogJSON bool `koanf:"LUTHEN_LOG_JSON"`

	// Export sinks.
	Postgres PostgresConfig `koanf:",squash"`
	Sheets   SheetsConfig   `koanf:",squash"`
}

// PostgresConfig holds PostgreSQL connection configuration for the export sink.
type PostgresConfig struct {
	Host     string `koanf:"POSTGRES_HOST"`
	Port     int    `koanf:"POSTGRES_PORT"`
	Database string `koanf:"POSTGRES_DB"`
	User     string `koanf:"POSTGRES_USER"`
	Password string `koanf:"POSTGRES_PASSWORD"`
	SSLMode  string `koanf:"POSTGRES_SSLMODE"`
}

// SheetsConfig holds Google Sheets settings for the export sink.
type SheetsConfig struct {
	// SecretFile is the Google OAuth client secret JSON.
	SecretFile string `koanf:"GSHEETS_SECRET_FILE"`
	TokenFile  string `koanf:"GSHEETS_TOKEN_FILE"`
	Title      string `koanf:"GSHEETS_TITLE"`
	ID         string `koanf:"GSHEETS_ID"`
	Name       string `koanf:"GSHEETS_NAME"`
}

// Load reads path (if non-empty and present) and then the environment, which
// takes precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), kJson.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checking config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TokenFile == "" {
		c.TokenFile = DefaultTokenFile
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	if c.Locale == "" {
		c.Locale = DefaultLocale
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.Sheets.TokenFile == "" {
		c.Sheets.TokenFile = "data/google_token.json"
	}
}

// Timeout returns HTTPTimeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// Validate reports missing required configuration.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("LUTHEN_API_URL environment variable is required")
	}
	return nil
}

// ValidateAuth reports missing identity provider settings.
func (c *Config) ValidateAuth() error {
	if c.AuthDomain == "" || c.AuthClientID == "" {
		return fmt.Errorf("LUTHEN_AUTH_DOMAIN and LUTHEN_AUTH_CLIENT_ID are required to log in")
	}
	return nil
}

// TokenExists reports whether a saved access token is present.
func (c *Config) TokenExists() bool {
	_, err := os.Stat(c.TokenFile)
	return err == nil
}
