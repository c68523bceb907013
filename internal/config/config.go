// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
	"your-super-secret-jwt-key-change-this",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"NEWSROOM_DB_PATH" envDefault:"./data/newsroom.db"`
	ServerHost string `env:"NEWSROOM_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"NEWSROOM_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"NEWSROOM_ENV" envDefault:"development"`
	LogLevel   string `env:"NEWSROOM_LOG_LEVEL" envDefault:"info"`

	// Token configuration
	JWTAccessSecret  string        `env:"NEWSROOM_JWT_ACCESS_SECRET,required"`
	JWTRefreshSecret string        `env:"NEWSROOM_JWT_REFRESH_SECRET,required"`
	JWTAccessTTL     time.Duration `env:"NEWSROOM_JWT_ACCESS_TTL" envDefault:"15m"`
	JWTRefreshTTL    time.Duration `env:"NEWSROOM_JWT_REFRESH_TTL" envDefault:"168h"`

	// Workflow configuration
	// Optimistic write attempts before CONCURRENT_MODIFICATION
	WriteMaxAttempts int `env:"NEWSROOM_WRITE_MAX_ATTEMPTS" envDefault:"5"`
	DBBusyTimeoutMS  int `env:"NEWSROOM_DB_BUSY_TIMEOUT_MS" envDefault:"5000"`

	// Cache configuration
	RedisURL     string `env:"NEWSROOM_REDIS_URL"`                           // Optional Redis URL for distributed caching
	CachePrefix  string `env:"NEWSROOM_CACHE_PREFIX" envDefault:"newsroom:"` // Redis key prefix
	CacheTTL     int    `env:"NEWSROOM_CACHE_TTL" envDefault:"300"`          // Default cache TTL in seconds
	CacheMaxSize int    `env:"NEWSROOM_CACHE_MAX_SIZE" envDefault:"10000"`   // Max memory cache entries

	// Rate limits, requests per minute per client IP
	APIRateLimit  int `env:"NEWSROOM_API_RATE_LIMIT" envDefault:"100"`
	AuthRateLimit int `env:"NEWSROOM_AUTH_RATE_LIMIT" envDefault:"10"`
	AIRateLimit   int `env:"NEWSROOM_AI_RATE_LIMIT" envDefault:"20"`

	// AI assistant configuration
	OpenAIAPIKey  string        `env:"NEWSROOM_OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"NEWSROOM_OPENAI_BASE_URL"`
	OpenAIModel   string        `env:"NEWSROOM_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	AITimeout     time.Duration `env:"NEWSROOM_AI_TIMEOUT" envDefault:"30s"`
	AIMaxRetries  int           `env:"NEWSROOM_AI_MAX_RETRIES" envDefault:"3"`

	// Scheduled jobs
	RecountSchedule    string `env:"NEWSROOM_RECOUNT_SCHEDULE" envDefault:"0 3 * * *"`
	EventRetentionDays int    `env:"NEWSROOM_EVENT_RETENTION_DAYS" envDefault:"90"`

	// Publication webhooks
	WebhookURLs    []string `env:"NEWSROOM_WEBHOOK_URLS" envSeparator:","` // Receivers of article.published/unpublished/archived
	WebhookSecret  string   `env:"NEWSROOM_WEBHOOK_SECRET"`                 // HMAC-SHA256 signing key, optional
	WebhookWorkers int      `env:"NEWSROOM_WEBHOOK_WORKERS" envDefault:"2"`

	// Seeding configuration
	DoSeed bool `env:"NEWSROOM_DO_SEED" envDefault:"true"` // Create the default admin and categories on an empty database
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// AIEnabled returns true if an OpenAI-compatible API key is configured.
func (c Config) AIEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// CacheDuration returns CacheTTL as a duration.
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// SlogLevel maps LogLevel to a slog.Level.
func (c Config) SlogLevel() slog.Level {
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

// MinJWTSecretLength is the minimum required length for the JWT secrets.
// HS256 keys should be at least as long as the hash output.
const MinJWTSecretLength = 32

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	secrets := []struct {
		name  string
		value string
	}{
		{"NEWSROOM_JWT_ACCESS_SECRET", cfg.JWTAccessSecret},
		{"NEWSROOM_JWT_REFRESH_SECRET", cfg.JWTRefreshSecret},
	}
	for _, s := range secrets {
		if err := checkSecret(s.name, s.value); err != nil {
			return nil, err
		}
	}
	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, fmt.Errorf("NEWSROOM_JWT_ACCESS_SECRET and NEWSROOM_JWT_REFRESH_SECRET must differ")
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return nil, fmt.Errorf("NEWSROOM_LOG_LEVEL must be one of debug, info, warn, error; got %q", cfg.LogLevel)
	}
	if cfg.WriteMaxAttempts < 1 {
		return nil, fmt.Errorf("NEWSROOM_WRITE_MAX_ATTEMPTS must be at least 1, got %d", cfg.WriteMaxAttempts)
	}
	if cfg.AIEnabled() && cfg.AIMaxRetries < 0 {
		return nil, fmt.Errorf("NEWSROOM_AI_MAX_RETRIES must not be negative, got %d", cfg.AIMaxRetries)
	}
	if cfg.APIRateLimit < 1 || cfg.AuthRateLimit < 1 || cfg.AIRateLimit < 1 {
		return nil, fmt.Errorf("rate limits must be positive")
	}
	for _, u := range cfg.WebhookURLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return nil, fmt.Errorf("NEWSROOM_WEBHOOK_URLS entries must be http(s) URLs, got %q", u)
		}
	}

	return cfg, nil
}

func checkSecret(name, value string) error {
	if len(value) < MinJWTSecretLength {
		return fmt.Errorf("%s must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			name, MinJWTSecretLength, len(value))
	}

	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known default value and must not be used; "+
				"generate a secure secret with: openssl rand -base64 32", name)
		}
	}

	if !hasMinimumEntropy(value) {
		slog.Warn(name + " has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
