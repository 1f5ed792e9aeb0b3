package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unidate/unidate-admin/internal/baas"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	client *baas.Client
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(client *baas.Client) *HealthHandler {
	return &HealthHandler{client: client}
}

// Healthz checks database connectivity and reports which backend handles are ready.
func (h *HealthHandler) Healthz(c *gin.Context) {
	checks := gin.H{"auth": h.client.AuthReady(), "blobs": h.client.BlobsReady()}
	sqlDB, err := h.client.DB.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "checks": checks})
		return
	}
	if errPing := sqlDB.PingContext(c.Request.Context()); errPing != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "checks": checks})
}
