package models

import "time"

// Notification audiences.
const (
	AudienceAll        = "all"
	AudienceUniversity = "university"
	AudienceAdmins     = "admins"
)

// Notification is an announcement or alert shown in the admin notification center.
type Notification struct {
	ID string `gorm:"type:varchar(64);primaryKey" json:"id"`

	Title   string `gorm:"type:text;not null" json:"title"`
	Message string `gorm:"type:text;not null" json:"message"`
	Type    string `gorm:"type:varchar(16);not null;index" json:"type"` // info, success, warning, error or announcement.

	Audience   string `gorm:"type:varchar(16);not null;default:'all'" json:"audience"`
	University string `gorm:"type:text" json:"university,omitempty"` // Target when audience is university.

	Read      bool `gorm:"not null;default:false;index" json:"read"`
	Delivered bool `gorm:"not null;default:false" json:"delivered"` // A push channel accepted the message.

	CreatedBy string     `gorm:"type:varchar(64)" json:"createdBy,omitempty"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime;index" json:"createdAt"`
}
