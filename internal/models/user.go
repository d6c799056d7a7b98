package models

// Role represents a user's permission level on the admin console.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleViewer    Role = "viewer"
)

// Capability names one permission checked by role-gated endpoints.
type Capability string

const (
	CapViewDashboards      Capability = "dashboards.view"
	CapManageNotifications Capability = "notifications.manage"
	CapManageAlerts        Capability = "alerts.manage"
	CapModeratePosts       Capability = "posts.moderate"
	CapViewLogins          Capability = "logins.view"
)

// roleCapabilities maps each non-admin role to what it may do.
// Admin holds every capability.
var roleCapabilities = map[Role][]Capability{
	RoleModerator: {CapViewDashboards, CapManageNotifications, CapModeratePosts},
	RoleViewer:    {CapViewDashboards},
}

// User is the caller identity reported by the authentication service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`
}

// IsAdmin returns true if user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPermission reports whether the user's role grants capability.
func (u *User) HasPermission(c Capability) bool {
	if u == nil {
		return false
	}
	return RoleHasPermission(u.Role, c)
}

// Capabilities lists every capability the user holds.
func (u *User) Capabilities() []Capability {
	if u.Role == RoleAdmin {
		return []Capability{CapViewDashboards, CapManageNotifications, CapManageAlerts, CapModeratePosts, CapViewLogins}
	}
	return append([]Capability(nil), roleCapabilities[u.Role]...)
}

// RoleHasPermission reports whether role grants capability.
func RoleHasPermission(role Role, c Capability) bool {
	if role == RoleAdmin {
		return true
	}
	for _, have := range roleCapabilities[role] {
		if have == c {
			return true
		}
	}
	return false
}

// ParseRole converts a string to Role.
func ParseRole(s string) Role {
	switch s {
	case "admin", "superadmin":
		return RoleAdmin
	case "moderator":
		return RoleModerator
	default:
		return RoleViewer
	}
}
