package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	permissions "github.com/michaelrobgrove/mb-digital-ministry/internal/http/api/admin/permissions"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/security"
)

// adminPermissionMiddleware enforces role checks for admin routes. It runs
// after adminAuthMiddleware.
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

		def, ok := permissionMap[permissions.Key(c.Request.Method, path)]
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		role, okRole := readAdminRoleFromContext(c)
		if !okRole {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		if !permissions.Allowed(role, def) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		c.Next()
	}
}

// readAdminRoleFromContext extracts the verified role from the gin context.
func readAdminRoleFromContext(c *gin.Context) (security.Role, bool) {
	value, ok := c.Get(contextKeyAdminRole)
	if !ok {
		return "", false
	}
	role, ok := value.(security.Role)
	return role, ok
}
