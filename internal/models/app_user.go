package models

import "time"

// End-user account states.
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusBanned    = "banned"
)

// AppUser is an end-user profile of the dating app.
type AppUser struct {
	ID string `gorm:"type:varchar(64);primaryKey" json:"id"` // Credential UID.

	Name       string `gorm:"type:text;not null" json:"name"`              // Display name.
	Email      string `gorm:"type:text;not null;index" json:"email"`       // Contact email.
	University string `gorm:"type:text;not null;index" json:"university"`  // Home university.
	Major      string `gorm:"type:text" json:"major,omitempty"`            // Field of study.
	Year       int    `gorm:"not null;default:0" json:"year,omitempty"`    // Study year.
	Status     string `gorm:"type:varchar(16);not null;index" json:"status"` // active, suspended or banned.
	Verified   bool   `gorm:"not null;default:false" json:"verified"`      // University email verified.

	ReportCount    int        `gorm:"not null;default:0" json:"reportCount"`       // Reports filed against the user.
	SuspendedUntil *time.Time `json:"suspendedUntil,omitempty"`                     // End of a temporary suspension.
	LastActiveAt   *time.Time `gorm:"index" json:"lastActiveAt,omitempty"`         // Last client activity.
	CreatedAt      time.Time  `gorm:"not null;autoCreateTime;index" json:"createdAt"` // Sign-up timestamp.
	UpdatedAt      time.Time  `gorm:"not null;autoUpdateTime" json:"updatedAt"`    // Last update timestamp.
}

// TableName keeps end users in the users collection.
func (AppUser) TableName() string { return "users" }
