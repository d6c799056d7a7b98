package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/good-yellow-bee/pricedesk/internal/api/auth"
)

// writeError writes the API error envelope.
func writeError(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"error": body})
}

// JSONAuthRequired writes the 401 response that sends clients back to the
// login page.
func JSONAuthRequired(w http.ResponseWriter, loginURL string) {
	body := map[string]string{
		"code":    "AUTH_REQUIRED",
		"message": "Session expired. Please log in again.",
	}
	if loginURL != "" {
		body["login_url"] = loginURL
	}
	writeError(w, http.StatusUnauthorized, body)
}

// jsonForbidden writes a forbidden error response.
func jsonForbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, map[string]string{
		"code":    "FORBIDDEN",
		"message": "access denied",
	})
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// JWTAuth returns middleware that validates bearer tokens and stores the
// caller in the request context.
func JWTAuth(jwtService *auth.JWTService, loginURL string, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				JSONAuthRequired(w, loginURL)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				log.WithFields(logrus.Fields{
					"remote":     getClientIP(r),
					"request_id": GetRequestID(r.Context()),
				}).WithError(err).Debug("JWT auth failed")
				JSONAuthRequired(w, loginURL)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims, token)))
		})
	}
}
