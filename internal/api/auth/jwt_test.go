package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!")

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService(testSecret, 15*time.Minute, "")

	user := &models.User{
		ID:    "user-123",
		Email: "ops@example.com",
		Name:  "Ops",
		Role:  models.RoleModerator,
	}

	token, err := svc.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	got := claims.User()
	if *got != *user {
		t.Errorf("User() = %+v, want %+v", got, user)
	}
	if claims.Issuer != DefaultIssuer {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := NewJWTService(testSecret, 15*time.Minute, "")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt-token"},
		{"wrong-segments", "a.b"},
		{"invalid-signature", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1aWQiOiJ0ZXN0In0.invalid"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tc.token); err == nil {
				t.Error("expected error for invalid token")
			}
		})
	}
}

func TestJWTService_DifferentSecretOrIssuer(t *testing.T) {
	ttl := 15 * time.Minute
	user := &models.User{ID: "user-123", Role: models.RoleViewer}

	token, err := NewJWTService(testSecret, ttl, "").GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := NewJWTService([]byte("secret-two-32-bytes-long!!!!!!!"), ttl, "").ValidateToken(token); err == nil {
		t.Error("expected error validating token with different secret")
	}
	if _, err := NewJWTService(testSecret, ttl, "someone-else").ValidateToken(token); err == nil {
		t.Error("expected error validating token with different issuer")
	}
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := NewJWTService(testSecret, -time.Minute, "")

	token, err := svc.GenerateToken(&models.User{ID: "user-123", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestJWTService_RequiresExpiry(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: DefaultIssuer, Subject: "u1"},
		Role:             "admin",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewJWTService(testSecret, time.Minute, "").ValidateToken(token); err == nil {
		t.Error("expected error for token without exp")
	}
}

func TestClaims_UserRoleMapping(t *testing.T) {
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-1"}, Role: "superadmin"}
	u := c.User()
	if u.ID != "sub-1" || u.Role != models.RoleAdmin {
		t.Errorf("User() = %+v", u)
	}
	if (&Claims{Role: "intern"}).User().Role != models.RoleViewer {
		t.Error("unknown role should map to viewer")
	}
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := UserInfo(ctx); ok {
		t.Error("UserInfo on empty context")
	}
	if HasPermission(ctx, models.CapViewDashboards) {
		t.Error("HasPermission on empty context")
	}

	claims := &Claims{UserID: "u1", Email: "m@example.com", Role: "moderator"}
	ctx = WithClaims(ctx, claims, "raw-token")

	u, ok := UserInfo(ctx)
	if !ok || u.ID != "u1" {
		t.Fatalf("UserInfo = %+v, %v", u, ok)
	}
	if !HasPermission(ctx, models.CapModeratePosts) || HasPermission(ctx, models.CapManageAlerts) {
		t.Error("unexpected moderator permissions")
	}
	if GetClaims(ctx) != claims || Token(ctx) != "raw-token" {
		t.Error("claims or token not stored")
	}
}
