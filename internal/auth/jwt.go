// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lokswami/newsroom/internal/model"
)

var (
	// ErrInvalidToken is returned when a token fails signature or claim checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token is past its expiry.
	ErrExpiredToken = errors.New("token has expired")
)

// Token types carried in the claims.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenConfig holds signing keys and lifetimes.
// Access and refresh tokens use separate secrets.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Claims are the custom claims of a newsroom token.
// Role is informational; authorization always reloads the user.
type Claims struct {
	UserID    string     `json:"uid"`
	Role      model.Role `json:"role"`
	TokenType string     `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenManager issues and validates HS256 tokens.
type TokenManager struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenManager creates a TokenManager.
func NewTokenManager(cfg TokenConfig) *TokenManager {
	if cfg.Issuer == "" {
		cfg.Issuer = "newsroom"
	}
	return &TokenManager{cfg: cfg, now: time.Now}
}

// IssuePair creates a fresh access and refresh token for u.
func (m *TokenManager) IssuePair(u model.User) (TokenPair, error) {
	access, err := m.sign(u, TokenTypeAccess, m.cfg.AccessTTL, m.cfg.AccessSecret)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(u, TokenTypeRefresh, m.cfg.RefreshTTL, m.cfg.RefreshSecret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.cfg.AccessTTL.Seconds()),
	}, nil
}

func (m *TokenManager) sign(u model.User, tokenType string, ttl time.Duration, secret string) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:    u.ID,
		Role:      u.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ValidateAccessToken parses an access token and returns its claims.
func (m *TokenManager) ValidateAccessToken(token string) (*Claims, error) {
	return m.validate(token, TokenTypeAccess, m.cfg.AccessSecret)
}

// ValidateRefreshToken parses a refresh token and returns its claims.
func (m *TokenManager) ValidateRefreshToken(token string) (*Claims, error) {
	return m.validate(token, TokenTypeRefresh, m.cfg.RefreshSecret)
}

func (m *TokenManager) validate(tokenString, tokenType, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
