package models

import (
	"time"

	"gorm.io/datatypes"
)

// FeatureFlag gates a client feature with a rollout percentage and optional university targeting.
type FeatureFlag struct {
	Key string `gorm:"type:varchar(128);primaryKey" json:"key"` // Stable flag identifier.

	Name        string `gorm:"type:text;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Environment string `gorm:"type:varchar(16);not null;default:'production'" json:"environment"`

	Enabled            bool           `gorm:"not null;default:false" json:"enabled"`
	RolloutPercentage  int            `gorm:"not null;default:0" json:"rolloutPercentage"` // 0..100.
	TargetUniversities datatypes.JSON `gorm:"type:jsonb" json:"targetUniversities"`      // JSON array of university names.

	UpdatedBy string    `gorm:"type:varchar(64)" json:"updatedBy,omitempty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
