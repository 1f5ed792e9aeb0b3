package models

import (
	"encoding/json"
	"time"
)

// Setting stores a runtime configuration entry editable from the admin console.
type Setting struct {
	Key       string          `gorm:"type:varchar(255);primaryKey" json:"key"`                           // Configuration key.
	Value     json.RawMessage `gorm:"type:jsonb" json:"value"`                                           // JSON-encoded value.
	UpdatedBy string          `gorm:"type:varchar(64)" json:"updatedBy,omitempty"`                       // Admin UID of the last editor.
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime;default:CURRENT_TIMESTAMP" json:"updatedAt"` // Last update timestamp.
}
