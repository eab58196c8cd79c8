package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	log "github.com/sirupsen/logrus"
)

// writeError maps err to its status. Upstream details are logged, never sent.
func writeError(c *gin.Context, err error) {
	status, message := apperr.Status(err)
	if apperr.Is(err, apperr.KindUpstream) {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("public request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// writeResult writes the {success, message} shape used by form endpoints.
func writeResult(c *gin.Context, err error) {
	status, message := apperr.Status(err)
	if apperr.Is(err, apperr.KindUpstream) {
		log.WithError(err).WithField("path", c.FullPath()).Error("public form request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
