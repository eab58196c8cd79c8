package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/security"
	log "github.com/sirupsen/logrus"
)

// writeError maps err to its status. Upstream details are logged, never sent.
func writeError(c *gin.Context, err error) {
	status, message := apperr.Status(err)
	if apperr.Is(err, apperr.KindUpstream) {
		log.WithError(err).WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"subject": c.GetString("adminSubject"),
		}).Error("admin request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// adminRole extracts the verified role from gin context.
func adminRole(c *gin.Context) security.Role {
	value, exists := c.Get("adminRole")
	if !exists {
		return ""
	}
	role, _ := value.(security.Role)
	return role
}
