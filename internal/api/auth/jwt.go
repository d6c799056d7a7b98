// Package auth validates the bearer tokens issued by the platform's
// authentication service and exposes the caller's identity.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// DefaultIssuer is the issuer expected when none is configured.
const DefaultIssuer = "pricedesk-auth"

// Claims represents the JWT claims of an access token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
}

// User returns the identity carried by the claims.
func (c *Claims) User() *models.User {
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	return &models.User{
		ID:    id,
		Email: c.Email,
		Name:  c.Name,
		Role:  models.ParseRole(c.Role),
	}
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewJWTService creates a new JWT service. An empty issuer means
// DefaultIssuer.
func NewJWTService(secret []byte, ttl time.Duration, issuer string) *JWTService {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &JWTService{
		secret: secret,
		ttl:    ttl,
		issuer: issuer,
	}
}

// GenerateToken creates a new access token for user. The server only
// validates tokens; generation serves the CLI's development tokens and tests.
func (s *JWTService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   string(user.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserID == "" && claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// TTL returns the token time-to-live duration.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}
