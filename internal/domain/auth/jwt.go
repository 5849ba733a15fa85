// Package auth validates bearer tokens and the maintenance key.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"konditer/internal/core/clock"
	appctx "konditer/internal/core/context"
	"konditer/internal/core/security"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "konditer",
		AccessTokenTTL: 15 * time.Minute,
	}
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"uid"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles"`
}

// JWTService handles JWT operations. Tokens are issued elsewhere; this
// service only needs to sign them for tooling and tests.
type JWTService struct {
	config JWTConfig
	clock  clock.Clock
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig, clk clock.Clock) *JWTService {
	if clk == nil {
		clk = clock.System{}
	}
	return &JWTService{config: config, clock: clk}
}

// GenerateAccessToken signs a token for userID with roles.
func (s *JWTService) GenerateAccessToken(userID, email string, roles []string) (string, time.Time, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Email:  email,
		Roles:  roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a token and resolves the capabilities of its roles.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	},
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no user id")
	}

	return &appctx.UserContext{
		UserID:       claims.UserID,
		Email:        claims.Email,
		Roles:        claims.Roles,
		Capabilities: security.Resolve(claims.Roles),
	}, nil
}
