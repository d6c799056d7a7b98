package auth

import (
	"context"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

type contextKey string

const (
	userKey   contextKey = "user"
	claimsKey contextKey = "claims"
	tokenKey  contextKey = "token"
)

// WithClaims stores the validated claims, the caller and the raw token in ctx.
func WithClaims(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	ctx = context.WithValue(ctx, userKey, claims.User())
	return context.WithValue(ctx, tokenKey, token)
}

// UserInfo returns the authenticated caller.
func UserInfo(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}

// HasPermission reports whether the caller in ctx holds capability.
func HasPermission(ctx context.Context, c models.Capability) bool {
	u, ok := UserInfo(ctx)
	return ok && u.HasPermission(c)
}

// GetClaims returns the JWT claims from context.
func GetClaims(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// Token returns the caller's raw bearer token.
func Token(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}
