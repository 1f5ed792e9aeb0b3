package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	relayhttp "github.com/unidate/unidate-admin/internal/http"
	"github.com/unidate/unidate-admin/internal/http/api/admin/permissions"
)

// adminPermissionMiddleware enforces the capability flag registered for each admin route.
// Routes without a definition are denied.
func adminPermissionMiddleware() gin.HandlerFunc {
	permissionMap := permissions.DefinitionMap()

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		definition, ok := permissionMap[permissions.Key(c.Request.Method, path)]
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		admin, okAdmin := relayhttp.CurrentAdmin(c)
		if !okAdmin {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}

		if !permissions.Allowed(admin.Permissions, definition.Capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied", "kind": "forbidden"})
			return
		}

		c.Next()
	}
}
