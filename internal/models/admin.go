package models

import "time"

// AdminPermissions is the fixed set of capability flags carried by every admin profile.
type AdminPermissions struct {
	CanManageUsers          bool `gorm:"not null;default:false" json:"canManageUsers"`          // User management screens and actions.
	CanModerateContent      bool `gorm:"not null;default:false" json:"canModerateContent"`      // Posts, groups and reports moderation.
	CanManageEvents         bool `gorm:"not null;default:false" json:"canManageEvents"`         // Notifications and announcements.
	CanManageAdmins         bool `gorm:"not null;default:false" json:"canManageAdmins"`         // Admin account administration.
	CanAccessSystemSettings bool `gorm:"not null;default:false" json:"canAccessSystemSettings"` // Feature flags and runtime settings.
}

// AdminUser is the admin profile record that marks a credential as privileged.
type AdminUser struct {
	UID string `gorm:"type:varchar(64);primaryKey" json:"uid"` // Credential UID this profile belongs to.

	Email       string `gorm:"type:text;not null;uniqueIndex" json:"email"` // Normalized login email.
	DisplayName string `gorm:"type:text;not null" json:"displayName"`       // Human readable name.
	Role        string `gorm:"type:varchar(32);not null;index" json:"role"` // super-admin, admin or moderator.

	IsActive bool `gorm:"not null;default:true" json:"isActive"` // Whether the admin may sign in.

	TwoFactorEnabled bool   `gorm:"not null;default:false" json:"twoFactorEnabled"` // Whether a one-time code is required.
	TwoFactorSecret  string `gorm:"type:text" json:"-"`                             // Base32 TOTP shared secret.

	Permissions AdminPermissions `gorm:"embedded" json:"permissions"` // Capability flags.

	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
	LastLogin *time.Time `json:"lastLogin,omitempty"`                      // Last successful sign-in.
}
