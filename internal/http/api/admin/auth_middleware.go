package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/security"
	log "github.com/sirupsen/logrus"
)

const (
	contextKeyAdminSubject = "adminSubject"
	contextKeyAdminRole    = "adminRole"
)

// adminAuthMiddleware verifies the bearer token before any admin handler
// runs. Every failure produces the same response.
func adminAuthMiddleware(codec *security.TokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || token == authHeader || strings.TrimSpace(token) == "" {
			abortUnauthorized(c)
			return
		}

		identity, errVerify := codec.Verify(strings.TrimSpace(token))
		if errVerify != nil {
			log.WithField("path", c.Request.URL.Path).Debug("admin auth: rejected token")
			abortUnauthorized(c)
			return
		}

		c.Set(contextKeyAdminSubject, identity.Subject)
		c.Set(contextKeyAdminRole, identity.Role)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}
