package middleware

import (
	"net/http"

	"github.com/good-yellow-bee/pricedesk/internal/api/auth"
	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// RequireRole returns middleware that requires specific roles. Admin always
// has access.
func RequireRole(allowedRoles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserInfo(r.Context())
			if !ok {
				jsonForbidden(w)
				return
			}
			if user.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}
			for _, role := range allowedRoles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			jsonForbidden(w)
		})
	}
}

// RequireAdmin is shorthand for RequireRole(RoleAdmin).
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(models.RoleAdmin)(next)
}

// RequireCapability returns middleware that requires the caller's role to
// grant capability.
func RequireCapability(c models.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.HasPermission(r.Context(), c) {
				jsonForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
