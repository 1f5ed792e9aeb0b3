package permissions

import (
	"testing"

	"github.com/unidate/unidate-admin/internal/models"
)

func TestDefinitionMapIncludesGuardedRoutes(t *testing.T) {
	t.Parallel()

	required := map[string]Capability{
		"GET /v0/admin/users":                      CanManageUsers,
		"POST /v0/admin/posts/:id/actions/:action": CanModerateContent,
		"GET /v0/admin/reports/export/:task_id":    CanModerateContent,
		"POST /v0/admin/notifications/read-all":    CanManageEvents,
		"PUT /v0/admin/admins/:uid/permissions":    CanManageAdmins,
		"POST /v0/admin/feature-flags/:key/toggle": CanAccessSystemSettings,
		"GET /v0/admin/dashboard/metrics":          Any,
		"GET /v0/admin/analytics/overview":         Any,
	}
	definitionMap := DefinitionMap()
	for key, capability := range required {
		key, capability := key, capability
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			d, ok := definitionMap[key]
			if !ok {
				t.Fatalf("DefinitionMap() missing permission key %q", key)
			}
			if d.Capability != capability {
				t.Fatalf("%s: capability %q, want %q", key, d.Capability, capability)
			}
		})
	}
}

func TestDefinitionKeysAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, d := range Definitions() {
		if seen[d.Key] {
			t.Fatalf("duplicate definition %q", d.Key)
		}
		seen[d.Key] = true
	}
}

func TestAllowed(t *testing.T) {
	perms := models.AdminPermissions{CanManageUsers: true}
	if !Allowed(perms, CanManageUsers) {
		t.Fatalf("expected users capability")
	}
	if Allowed(perms, CanManageAdmins) {
		t.Fatalf("unexpected admins capability")
	}
	if !Allowed(models.AdminPermissions{}, Any) {
		t.Fatalf("any capability must admit every admin")
	}
	if Allowed(models.AdminPermissions{CanManageUsers: true}, Capability("unknown")) {
		t.Fatalf("unknown capability must be denied")
	}
}
