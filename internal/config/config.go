// Package config loads the API server and CLI settings from the environment,
// with an optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds API server configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL    string `env:"DATABASE_URL,required"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Token lifetimes
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// How often expired or revoked refresh tokens are purged
	TokenSweepInterval time.Duration `env:"TOKEN_SWEEP_INTERVAL" envDefault:"1h"`

	// Rate limiting
	RateLimitAPIEnabled  bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitAPIRPM      int  `env:"RATE_LIMIT_API_RPM" envDefault:"120"`
	RateLimitAPIBurst    int  `env:"RATE_LIMIT_API_BURST" envDefault:"30"`
	RateLimitAuthEnabled bool `env:"RATE_LIMIT_AUTH_ENABLED" envDefault:"true"`
	RateLimitAuthRPS     int  `env:"RATE_LIMIT_AUTH_RPS" envDefault:"5"`
	RateLimitAuthBurst   int  `env:"RATE_LIMIT_AUTH_BURST" envDefault:"10"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// CLIConfig holds configuration for the expensectl terminal client.
type CLIConfig struct {
	APIURL          string        `env:"EXPENSECTL_API_URL" envDefault:"http://localhost:8080"`
	CredentialsPath string        `env:"EXPENSECTL_CREDENTIALS"`
	Timeout         time.Duration `env:"EXPENSECTL_TIMEOUT" envDefault:"15s"`
	AccessTTL       time.Duration `env:"EXPENSECTL_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL      time.Duration `env:"EXPENSECTL_REFRESH_TTL" envDefault:"168h"`
}

// Load reads an optional .env file, parses environment variables and returns
// a Config. Returns an error if required variables are missing.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that parse but cannot work together.
func (c *Config) Validate() error {
	var errs []error
	switch c.AppEnv {
	case "development", "staging", "production":
	default:
		errs = append(errs, fmt.Errorf("APP_ENV %q is not one of development, staging, production", c.AppEnv))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not json or text", c.LogFormat))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL and REFRESH_TOKEN_TTL must be positive"))
	} else if c.RefreshTokenTTL <= c.AccessTokenTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL"))
	}
	if c.TokenSweepInterval <= 0 {
		errs = append(errs, errors.New("TOKEN_SWEEP_INTERVAL must be positive"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}
	if c.IsProduction() {
		for _, origin := range c.GetCORSAllowedOrigins() {
			if origin == "*" {
				errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must not contain * in production"))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadCLI reads an optional .env file and returns the client configuration.
func LoadCLI() (*CLIConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &CLIConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.CredentialsPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		cfg.CredentialsPath = filepath.Join(dir, "expensectl", "credentials.yaml")
	}

	return cfg, nil
}

// loadDotEnv loads .env from the working directory when present.
// Variables already set in the environment take precedence.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}
