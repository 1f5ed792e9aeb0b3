package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/settings"
	"gorm.io/gorm"
)

// SettingHandler reads and writes runtime settings.
type SettingHandler struct {
	db *gorm.DB
}

// NewSettingHandler constructs a SettingHandler.
func NewSettingHandler(db *gorm.DB) *SettingHandler {
	return &SettingHandler{db: db}
}

// List returns the current snapshot and the keys that may be edited.
func (h *SettingHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings":   settings.All(),
		"editable":   settings.EditableKeys,
		"updated_at": settings.UpdatedAt(),
	})
}

type putSettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// Put upserts one editable setting.
func (h *SettingHandler) Put(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if !settings.IsEditable(key) {
		respondError(c, apperr.New(apperr.KindInvalid, "handlers.PutSetting", "setting is not editable"))
		return
	}
	var body putSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || len(body.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return
	}
	actor := actorUID(c)
	if errPut := settings.Put(c.Request.Context(), h.db, key, body.Value, actor); errPut != nil {
		respondError(c, apperr.Wrap(apperr.KindWrite, "handlers.PutSetting", "failed to save setting", errPut))
		return
	}
	log.WithFields(log.Fields{"key": key, "actor": actor}).Info("setting updated")
	c.JSON(http.StatusOK, gin.H{"key": key, "value": body.Value})
}
