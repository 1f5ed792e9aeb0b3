// Package permissions maps admin routes to the capability flag that guards them.
package permissions

import (
	"strings"

	"github.com/unidate/unidate-admin/internal/models"
)

// Capability names an AdminPermissions flag. The empty capability admits any authenticated admin.
type Capability string

// Capabilities.
const (
	Any                     Capability = ""
	CanManageUsers          Capability = "canManageUsers"
	CanModerateContent      Capability = "canModerateContent"
	CanManageEvents         Capability = "canManageEvents"
	CanManageAdmins         Capability = "canManageAdmins"
	CanAccessSystemSettings Capability = "canAccessSystemSettings"
)

// Prefix is the admin API mount point.
const Prefix = "/v0/admin"

// Definition describes one guarded admin route.
type Definition struct {
	Key        string
	Method     string
	Path       string
	Label      string
	Module     string
	Capability Capability
}

var definitions = []Definition{
	def("POST", "/logout", "Sign out", "Session", Any),
	def("GET", "/session", "Current session", "Session", Any),
	def("GET", "/permissions", "List permissions", "Session", Any),

	def("POST", "/mfa/totp/prepare", "Prepare TOTP", "MFA", Any),
	def("POST", "/mfa/totp/confirm", "Confirm TOTP", "MFA", Any),
	def("POST", "/mfa/totp/disable", "Disable TOTP", "MFA", Any),

	def("GET", "/admins", "List admins", "Admins", CanManageAdmins),
	def("POST", "/admins", "Create admin", "Admins", CanManageAdmins),
	def("GET", "/admins/:uid", "Get admin", "Admins", CanManageAdmins),
	def("PUT", "/admins/:uid/permissions", "Update admin permissions", "Admins", CanManageAdmins),
	def("POST", "/admins/:uid/status", "Toggle admin status", "Admins", CanManageAdmins),

	def("GET", "/dashboard/metrics", "Dashboard metrics", "Dashboard", Any),
	def("POST", "/dashboard/metrics/refresh", "Refresh dashboard metrics", "Dashboard", Any),

	def("GET", "/users", "List users", "Users", CanManageUsers),
	def("GET", "/users/universities", "List universities", "Users", CanManageUsers),
	def("GET", "/users/:id", "Get user", "Users", CanManageUsers),
	def("POST", "/users/:id/actions/:action", "User action", "Users", CanManageUsers),

	def("GET", "/posts", "List posts", "Content", CanModerateContent),
	def("POST", "/posts/:id/actions/:action", "Moderate post", "Content", CanModerateContent),
	def("GET", "/groups", "List groups", "Content", CanModerateContent),

	def("GET", "/reports", "List reports", "Reports", CanModerateContent),
	def("POST", "/reports/:id/actions/:action", "Report action", "Reports", CanModerateContent),
	def("POST", "/reports/export", "Export reports", "Reports", CanModerateContent),
	def("GET", "/reports/export/:task_id", "Export status", "Reports", CanModerateContent),
	def("GET", "/reports/export/:task_id/download", "Download export", "Reports", CanModerateContent),

	def("GET", "/notifications", "List notifications", "Notifications", CanManageEvents),
	def("POST", "/notifications", "Send notification", "Notifications", CanManageEvents),
	def("POST", "/notifications/:id/read", "Mark notification read", "Notifications", CanManageEvents),
	def("POST", "/notifications/read-all", "Mark all notifications read", "Notifications", CanManageEvents),
	def("DELETE", "/notifications/:id", "Delete notification", "Notifications", CanManageEvents),

	def("GET", "/analytics/overview", "Analytics overview", "Analytics", Any),

	def("GET", "/feature-flags", "List feature flags", "Feature flags", CanAccessSystemSettings),
	def("POST", "/feature-flags", "Create feature flag", "Feature flags", CanAccessSystemSettings),
	def("GET", "/feature-flags/:key", "Get feature flag", "Feature flags", CanAccessSystemSettings),
	def("PUT", "/feature-flags/:key", "Update feature flag", "Feature flags", CanAccessSystemSettings),
	def("DELETE", "/feature-flags/:key", "Delete feature flag", "Feature flags", CanAccessSystemSettings),
	def("POST", "/feature-flags/:key/toggle", "Toggle feature flag", "Feature flags", CanAccessSystemSettings),
	def("GET", "/feature-flags/:key/evaluate", "Evaluate feature flag", "Feature flags", CanAccessSystemSettings),

	def("GET", "/settings", "List settings", "Settings", CanAccessSystemSettings),
	def("PUT", "/settings/:key", "Update setting", "Settings", CanAccessSystemSettings),
	def("GET", "/jobs", "List jobs", "Settings", CanAccessSystemSettings),
	def("POST", "/jobs/:name/run", "Run job", "Settings", CanAccessSystemSettings),
}

func def(method, path, label, module string, capability Capability) Definition {
	full := Prefix + path
	return Definition{Key: Key(method, full), Method: method, Path: full, Label: label, Module: module, Capability: capability}
}

// Key builds the lookup key for a method and route template.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// Definitions returns a copy of every route definition.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionMap indexes definitions by key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		out[d.Key] = d
	}
	return out
}

// Allowed reports whether perms grant capability.
func Allowed(perms models.AdminPermissions, capability Capability) bool {
	switch capability {
	case Any:
		return true
	case CanManageUsers:
		return perms.CanManageUsers
	case CanModerateContent:
		return perms.CanModerateContent
	case CanManageEvents:
		return perms.CanManageEvents
	case CanManageAdmins:
		return perms.CanManageAdmins
	case CanAccessSystemSettings:
		return perms.CanAccessSystemSettings
	default:
		return false
	}
}
