package models

import (
	"time"

	"gorm.io/datatypes"
)

// Report workflow states.
const (
	ReportStatusPending   = "pending"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
	ReportStatusEscalated = "escalated"
)

// Report is a complaint filed by an end user about a user, post, group or message.
type Report struct {
	ID string `gorm:"type:varchar(64);primaryKey" json:"id"`

	Type        string `gorm:"type:varchar(16);not null;index" json:"type"` // user, post, group or message.
	TargetID    string `gorm:"type:varchar(64);not null;index" json:"targetId"`
	ReporterID  string `gorm:"type:varchar(64);not null" json:"reporterId"`
	Reason      string `gorm:"type:text;not null" json:"reason"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Status   string         `gorm:"type:varchar(16);not null;index" json:"status"`
	Priority string         `gorm:"type:varchar(16);not null;default:'medium'" json:"priority"` // low, medium, high or critical.
	Evidence datatypes.JSON `gorm:"type:jsonb" json:"evidence,omitempty"`                     // Attachment keys in the blob store.

	ResolvedBy string     `gorm:"type:varchar(64)" json:"resolvedBy,omitempty"`
	Resolution string     `gorm:"type:text" json:"resolution,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;autoCreateTime;index" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
