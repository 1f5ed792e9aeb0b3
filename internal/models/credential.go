package models

import "time"

// Credential is an email/password sign-in record owned by the credential service.
type Credential struct {
	UID string `gorm:"type:varchar(64);primaryKey"` // Stable user identifier.

	Email        string `gorm:"type:text;not null;uniqueIndex"` // Normalized email address.
	PasswordHash string `gorm:"type:text;not null"`             // Bcrypt hash.

	Disabled bool `gorm:"not null;default:false"` // Disabled credentials cannot sign in.

	LastSignInAt *time.Time // Last successful sign-in.
	CreatedAt    time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt    time.Time  `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
