package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/good-yellow-bee/pricedesk/internal/api/auth"
	"github.com/good-yellow-bee/pricedesk/internal/models"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func withUser(r *http.Request, role models.Role) *http.Request {
	claims := &auth.Claims{UserID: "user-123", Email: "u@example.com", Role: string(role)}
	return r.WithContext(auth.WithClaims(r.Context(), claims, "tok"))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body struct {
		Error map[string]string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestJWTAuth(t *testing.T) {
	svc := auth.NewJWTService([]byte("middleware-test-secret-32-bytes!"), time.Hour, "")
	token, err := svc.GenerateToken(&models.User{ID: "u1", Email: "a@example.com", Role: models.RoleViewer})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var seen *models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserInfo(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := JWTAuth(svc, "https://admin.example.com/login", quietLogger())(next)

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest("GET", "/api/v1/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			if tc.wantCode == http.StatusOK {
				if seen == nil || seen.ID != "u1" {
					t.Errorf("user not in context: %+v", seen)
				}
				return
			}
			e := decodeError(t, rec)
			if e["code"] != "AUTH_REQUIRED" || e["login_url"] != "https://admin.example.com/login" {
				t.Errorf("error body = %v", e)
			}
		})
	}
}

func TestRequireCapability(t *testing.T) {
	tests := []struct {
		name     string
		role     models.Role
		cap      models.Capability
		wantCode int
	}{
		{"viewer views", models.RoleViewer, models.CapViewDashboards, http.StatusOK},
		{"viewer cannot moderate", models.RoleViewer, models.CapModeratePosts, http.StatusForbidden},
		{"moderator moderates", models.RoleModerator, models.CapModeratePosts, http.StatusOK},
		{"moderator cannot manage alerts", models.RoleModerator, models.CapManageAlerts, http.StatusForbidden},
		{"admin has everything", models.RoleAdmin, models.CapViewLogins, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := withUser(httptest.NewRequest("GET", "/", nil), tc.role)
			rec := httptest.NewRecorder()
			RequireCapability(tc.cap)(okHandler).ServeHTTP(rec, req)
			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
		})
	}

	rec := httptest.NewRecorder()
	RequireCapability(models.CapViewDashboards)(okHandler).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("anonymous status = %d, want 403", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleModerator)(okHandler)
	for role, want := range map[models.Role]int{
		models.RoleModerator: http.StatusOK,
		models.RoleAdmin:     http.StatusOK,
		models.RoleViewer:    http.StatusForbidden,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withUser(httptest.NewRequest("GET", "/", nil), role))
		if rec.Code != want {
			t.Errorf("%s: status = %d, want %d", role, rec.Code, want)
		}
	}
}

func TestRateLimitByIP(t *testing.T) {
	limiter := NewRateLimiter(60, 2)
	h := RateLimitByIP(limiter)(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	other := httptest.NewRequest("GET", "/", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Errorf("other client status = %d", rec.Code)
	}
	if limiter.Len() != 2 {
		t.Errorf("tracked clients = %d, want 2", limiter.Len())
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"forwarded list", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.1:80", "198.51.100.7"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tc.want {
				t.Errorf("getClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	var ctxID string
	h := RequestLogger(quietLogger(), true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	id := rec.Header().Get("X-Request-ID")
	if len(id) != 8 || id != ctxID {
		t.Errorf("request id header %q, context %q", id, ctxID)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "upstream-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "upstream-42" {
		t.Errorf("incoming request id not propagated")
	}
}

func TestSecurityHeadersAndRecoverer(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	h := SecurityHeaders(Recoverer(quietLogger())(panicky))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain HTTP request")
	}
	if e := decodeError(t, rec); e["code"] != "INTERNAL_ERROR" {
		t.Errorf("error body = %v", e)
	}
}
