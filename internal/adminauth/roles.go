package adminauth

import (
	"fmt"
	"strings"

	"github.com/unidate/unidate-admin/internal/models"
)

// Role is the closed set of admin roles.
type Role string

const (
	RoleSuperAdmin Role = "super-admin"
	RoleAdmin      Role = "admin"
	RoleModerator  Role = "moderator"
)

// ParseRole accepts a role name case-insensitively.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, err := DefaultPermissions(role); err != nil {
		return "", err
	}
	return role, nil
}

// DefaultPermissions returns the permission set assigned to role at creation.
func DefaultPermissions(role Role) (models.AdminPermissions, error) {
	switch role {
	case RoleSuperAdmin:
		return models.AdminPermissions{
			CanManageUsers:          true,
			CanModerateContent:      true,
			CanManageEvents:         true,
			CanManageAdmins:         true,
			CanAccessSystemSettings: true,
		}, nil
	case RoleAdmin:
		return models.AdminPermissions{
			CanManageUsers:     true,
			CanModerateContent: true,
			CanManageEvents:    true,
		}, nil
	case RoleModerator:
		return models.AdminPermissions{
			CanManageUsers:     true,
			CanModerateContent: true,
		}, nil
	default:
		return models.AdminPermissions{}, fmt.Errorf("unknown role %q", string(role))
	}
}

// PermissionPatch carries the flags to change; nil fields are left as stored.
type PermissionPatch struct {
	CanManageUsers          *bool `json:"canManageUsers"`
	CanModerateContent      *bool `json:"canModerateContent"`
	CanManageEvents         *bool `json:"canManageEvents"`
	CanManageAdmins         *bool `json:"canManageAdmins"`
	CanAccessSystemSettings *bool `json:"canAccessSystemSettings"`
}

// Empty reports whether the patch changes nothing.
func (p PermissionPatch) Empty() bool {
	return p.CanManageUsers == nil && p.CanModerateContent == nil && p.CanManageEvents == nil &&
		p.CanManageAdmins == nil && p.CanAccessSystemSettings == nil
}

// columns maps the supplied flags to their embedded column names.
func (p PermissionPatch) columns() map[string]any {
	updates := make(map[string]any)
	if p.CanManageUsers != nil {
		updates["can_manage_users"] = *p.CanManageUsers
	}
	if p.CanModerateContent != nil {
		updates["can_moderate_content"] = *p.CanModerateContent
	}
	if p.CanManageEvents != nil {
		updates["can_manage_events"] = *p.CanManageEvents
	}
	if p.CanManageAdmins != nil {
		updates["can_manage_admins"] = *p.CanManageAdmins
	}
	if p.CanAccessSystemSettings != nil {
		updates["can_access_system_settings"] = *p.CanAccessSystemSettings
	}
	return updates
}
