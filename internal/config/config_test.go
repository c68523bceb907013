// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

const (
	testAccessSecret  = "test-access-secret-32-bytes-long!"
	testRefreshSecret = "test-refresh-secret-32-bytes-long!"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

// setSecrets clears the environment and sets only the required variables.
func setSecrets(t *testing.T) {
	t.Helper()
	os.Clearenv()
	setEnv(t, "NEWSROOM_JWT_ACCESS_SECRET", testAccessSecret)
	setEnv(t, "NEWSROOM_JWT_REFRESH_SECRET", testRefreshSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/newsroom.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/newsroom.db")
	}
	if cfg.ServerHost != "localhost" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "localhost")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.JWTAccessTTL != 15*time.Minute {
		t.Errorf("JWTAccessTTL = %v, want 15m", cfg.JWTAccessTTL)
	}
	if cfg.JWTRefreshTTL != 7*24*time.Hour {
		t.Errorf("JWTRefreshTTL = %v, want 168h", cfg.JWTRefreshTTL)
	}
	if cfg.WriteMaxAttempts != 5 {
		t.Errorf("WriteMaxAttempts = %d, want 5", cfg.WriteMaxAttempts)
	}
	if cfg.AIEnabled() {
		t.Error("AIEnabled() = true without an API key")
	}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache() = true without a Redis URL")
	}
	if cfg.CacheDuration() != 5*time.Minute {
		t.Errorf("CacheDuration() = %v, want 5m", cfg.CacheDuration())
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setSecrets(t)
	setEnv(t, "NEWSROOM_DB_PATH", "/custom/path.db")
	setEnv(t, "NEWSROOM_SERVER_HOST", "0.0.0.0")
	setEnv(t, "NEWSROOM_SERVER_PORT", "3000")
	setEnv(t, "NEWSROOM_ENV", "production")
	setEnv(t, "NEWSROOM_LOG_LEVEL", "debug")
	setEnv(t, "NEWSROOM_OPENAI_API_KEY", "sk-test")
	setEnv(t, "NEWSROOM_AI_TIMEOUT", "5s")
	setEnv(t, "NEWSROOM_WEBHOOK_URLS", "https://feeds.example.com/hook,http://search.internal/reindex")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "/custom/path.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/custom/path.db")
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "0.0.0.0:3000")
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true in production")
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}
	if !cfg.AIEnabled() {
		t.Error("AIEnabled() = false with an API key")
	}
	if cfg.AITimeout != 5*time.Second {
		t.Errorf("AITimeout = %v, want 5s", cfg.AITimeout)
	}
	if len(cfg.WebhookURLs) != 2 || cfg.WebhookURLs[1] != "http://search.internal/reindex" {
		t.Errorf("WebhookURLs = %v", cfg.WebhookURLs)
	}
}

func TestLoad_RequiredSecrets(t *testing.T) {
	os.Clearenv()
	setEnv(t, "NEWSROOM_JWT_ACCESS_SECRET", testAccessSecret)

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail when NEWSROOM_JWT_REFRESH_SECRET is not set")
	}
}

func TestLoad_SecretValidation(t *testing.T) {
	tests := []struct {
		name    string
		access  string
		refresh string
	}{
		{"short access", "short", testRefreshSecret},
		{"31 byte refresh", testAccessSecret, "1234567890123456789012345678901"},
		{"weak default", "change-me-to-32-byte-secret-key!", testRefreshSecret},
		{"same secrets", testAccessSecret, testAccessSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "NEWSROOM_JWT_ACCESS_SECRET", tt.access)
			setEnv(t, "NEWSROOM_JWT_REFRESH_SECRET", tt.refresh)

			if _, err := Load(); err == nil {
				t.Fatal("Load() should fail")
			}
		})
	}
}

func TestLoad_SecretMinimumLength(t *testing.T) {
	os.Clearenv()
	setEnv(t, "NEWSROOM_JWT_ACCESS_SECRET", "12345678901234567890123456789012")
	setEnv(t, "NEWSROOM_JWT_REFRESH_SECRET", "abcdefghijklmnopqrstuvwxyzabcdef")

	if _, err := Load(); err != nil {
		t.Fatalf("Load() should succeed with 32-byte secrets: %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"NEWSROOM_LOG_LEVEL", "verbose"},
		{"NEWSROOM_WRITE_MAX_ATTEMPTS", "0"},
		{"NEWSROOM_AI_RATE_LIMIT", "0"},
		{"NEWSROOM_SERVER_PORT", "not-a-number"},
		{"NEWSROOM_WEBHOOK_URLS", "ftp://feeds.example.com/hook"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			setSecrets(t)
			setEnv(t, tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Fatalf("Load() should fail with %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Config{LogLevel: tt.level}
			if got := cfg.SlogLevel(); got != tt.want {
				t.Errorf("SlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"production", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := Config{Env: tt.env}
			if got := cfg.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"abcdefABCDEF", false},
		{"abcABC123", true},
		{"abc123!!", true},
	}

	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
		}
	}
}
