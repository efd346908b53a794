// Package config handles application configuration: environment variables
// layered over an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AuthConfig holds authentication and identity provider configuration.
type AuthConfig struct {
	// OIDC / JWKS configuration
	IssuerURL      string   `yaml:"issuer_url"`      // OIDC issuer URL
	JWTSecret      string   `yaml:"jwt_secret"`      // HS256 shared secret for local/dev JWT auth
	Audience       string   `yaml:"audience"`        // Required JWT audience claim
	AllowedIssuers []string `yaml:"allowed_issuers"` // Accepted issuers (defaults to [IssuerURL])
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != ""
}

// S3Config holds the optional object-store connection. All fields must be
// set together; the in-memory store is used when absent.
type S3Config struct {
	KeyID    string `yaml:"key_id"`
	Secret   string `yaml:"secret"`
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	Bucket   string `yaml:"bucket"`
}

// Configured returns true if all required S3 fields are set.
func (s *S3Config) Configured() bool {
	return s.KeyID != "" && s.Secret != "" && s.Endpoint != "" && s.Region != ""
}

// BootstrapConfig seeds the initial ADMIN account on startup. Skipped
// when the username is empty or the account already exists.
type BootstrapConfig struct {
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

// Config holds the configuration for the datashelf server.
type Config struct {
	DBPath     string `yaml:"db_path"`     // path to the SQLite store
	ListenAddr string `yaml:"listen_addr"` // HTTP listen address (default ":8080")
	LogLevel   string `yaml:"log_level"`   // debug, info, warn, error (default "info")
	Env        string `yaml:"env"`         // "development" (default) or "production"

	// Rate limiting
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`   // sustained requests per second (default 100)
	RateLimitBurst int     `yaml:"rate_limit_burst"` // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"` // default: ["*"]

	// SweepSchedule is the cron expression of the grant integrity sweep.
	// Defaults to "@every 1h"; the value "off" disables the sweep.
	SweepSchedule string `yaml:"sweep_schedule"`

	// BcryptCost for credential hashing; 0 uses the bcrypt default.
	BcryptCost int `yaml:"bcrypt_cost"`

	Auth      AuthConfig      `yaml:"auth"`
	S3        S3Config        `yaml:"s3"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string `yaml:"-"`
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads configuration from the optional YAML file at path (skipped
// when path is empty or the file does not exist), then overlays
// environment variables, applies defaults, and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("config file %s not found — using environment only", path))
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	overlayEnv(cfg)
	return finalize(cfg)
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func overlayEnv(cfg *Config) {
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Env, "ENV")
	setString(&cfg.SweepSchedule, "SWEEP_SCHEDULE")

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BcryptCost = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	setString(&cfg.Auth.IssuerURL, "AUTH_ISSUER_URL")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.Audience, "AUTH_AUDIENCE")
	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		cfg.Auth.AllowedIssuers = strings.Split(v, ",")
	}

	setString(&cfg.Bootstrap.AdminUsername, "BOOTSTRAP_ADMIN_USERNAME")
	setString(&cfg.Bootstrap.AdminPassword, "BOOTSTRAP_ADMIN_PASSWORD")

	setString(&cfg.S3.KeyID, "S3_KEY_ID")
	setString(&cfg.S3.Secret, "S3_SECRET")
	setString(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setString(&cfg.S3.Region, "S3_REGION")
	setString(&cfg.S3.Bucket, "S3_BUCKET")
}

func finalize(cfg *Config) (*Config, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = "datashelf.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	switch cfg.SweepSchedule {
	case "":
		cfg.SweepSchedule = "@every 1h"
	case "off":
		// Emptied so callers can gate on the schedule directly.
		cfg.SweepSchedule = ""
	}

	if cfg.Auth.IssuerURL != "" && cfg.Auth.Audience == "" {
		return nil, fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL is set")
	}
	if !cfg.Auth.OIDCEnabled() && cfg.Auth.JWTSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "no AUTH_ISSUER_URL or JWT_SECRET set — authentication cannot succeed")
	}
	if !cfg.S3.Configured() {
		cfg.Warnings = append(cfg.Warnings, "S3 is not configured — using the in-memory blob store")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if !cfg.Auth.OIDCEnabled() && cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("AUTH_ISSUER_URL or JWT_SECRET must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if !cfg.S3.Configured() {
			return nil, fmt.Errorf("S3 must be configured in production (ENV=production)")
		}
	}

	return cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
