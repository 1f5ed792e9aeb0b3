package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	relayhttp "github.com/unidate/unidate-admin/internal/http"
	"github.com/unidate/unidate-admin/internal/http/api/admin/permissions"
)

// PermissionHandler exposes permission definitions for admins.
type PermissionHandler struct{}

// NewPermissionHandler constructs a PermissionHandler.
func NewPermissionHandler() *PermissionHandler {
	return &PermissionHandler{}
}

// List returns all route definitions and whether the signed-in admin may call each.
func (h *PermissionHandler) List(c *gin.Context) {
	admin, _ := relayhttp.CurrentAdmin(c)
	defs := permissions.Definitions()
	out := make([]gin.H, 0, len(defs))
	for _, def := range defs {
		allowed := admin != nil && permissions.Allowed(admin.Permissions, def.Capability)
		out = append(out, gin.H{
			"key":        def.Key,
			"method":     def.Method,
			"path":       def.Path,
			"label":      def.Label,
			"module":     def.Module,
			"capability": def.Capability,
			"allowed":    allowed,
		})
	}
	c.JSON(http.StatusOK, gin.H{"permissions": out})
}
