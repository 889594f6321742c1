package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	DB            DBConfig
	Auth          AuthConfig
	Metrics       MetricsConfig
	Log           LogConfig
	RateLimit     RateLimitConfig
	FCM           FCMConfig
	WebhookSecret string
}

type DBConfig struct {
	MaxConns int
	MinConns int
}

type AuthConfig struct {
	ClerkSecretKey string
	DevSecret      string
}

type MetricsConfig struct {
	User     string
	Password string
}

type LogConfig struct {
	Level         string
	File          string
	AccessLogFile string
	MaxSizeMB     int
	MaxBackups    int
	MaxAgeDays    int
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type FCMConfig struct {
	CredentialsJSON string
	CredentialsFile string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	c := &Config{
		Port:      "3333",
		DB:        DBConfig{MaxConns: 25, MinConns: 5},
		Log:       LogConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 30},
		FCM:       FCMConfig{CredentialsFile: "./serviceAccountKey.json"},
	}

	envOverride(&c.Port, "PORT")
	envOverride(&c.DatabaseURL, "DATABASE_URL")
	envOverrideInt(&c.DB.MaxConns, "DB_MAX_CONNS")
	envOverrideInt(&c.DB.MinConns, "DB_MIN_CONNS")
	envOverride(&c.Auth.ClerkSecretKey, "CLERK_SECRET_KEY")
	envOverride(&c.Auth.DevSecret, "AUTH_DEV_SECRET")
	envOverride(&c.WebhookSecret, "CLERK_WEBHOOK_SECRET")
	envOverride(&c.Metrics.User, "METRICS_USER")
	envOverride(&c.Metrics.Password, "METRICS_PASS")
	envOverride(&c.FCM.CredentialsJSON, "FCM_SERVICE_ACCOUNT_JSON")
	envOverride(&c.FCM.CredentialsFile, "FCM_CREDENTIALS_FILE")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverride(&c.Log.AccessLogFile, "ACCESS_LOG_FILE")
	envOverrideFloat(&c.RateLimit.RPS, "RATE_LIMIT_RPS")
	envOverrideInt(&c.RateLimit.Burst, "RATE_LIMIT_BURST")

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	if c.Auth.ClerkSecretKey == "" && c.Auth.DevSecret == "" {
		return errors.New("either CLERK_SECRET_KEY or AUTH_DEV_SECRET must be set")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// SQLitePath returns the file path when DatabaseURL names a sqlite database.
func (c *Config) SQLitePath() (string, bool) {
	switch {
	case strings.HasPrefix(c.DatabaseURL, "sqlite://"):
		return strings.TrimPrefix(c.DatabaseURL, "sqlite://"), true
	case strings.HasPrefix(c.DatabaseURL, "file:"):
		return strings.TrimPrefix(c.DatabaseURL, "file:"), true
	}
	return "", false
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
