package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/outreach"
	log "github.com/sirupsen/logrus"
)

// OutreachHandler serves the newsletter and contact forms.
type OutreachHandler struct {
	outreach *outreach.Service
}

// NewOutreachHandler constructs an OutreachHandler.
func NewOutreachHandler(svc *outreach.Service) *OutreachHandler {
	return &OutreachHandler{outreach: svc}
}

// Subscribe registers a newsletter signup.
func (h *OutreachHandler) Subscribe(c *gin.Context) {
	var body outreach.Subscription
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		writeResult(c, apperr.Validation("Please enter a valid email address."))
		return
	}
	if err := h.outreach.Subscribe(c.Request.Context(), body); err != nil {
		if apperr.Is(err, apperr.KindUpstream) {
			log.WithError(err).Error("newsletter signup failed")
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Could not subscribe. Please try again later."})
			return
		}
		writeResult(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Thank you for subscribing!"})
}

// Contact stores a contact form message.
func (h *OutreachHandler) Contact(c *gin.Context) {
	var body outreach.ContactMessage
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		writeError(c, apperr.Validation("invalid json"))
		return
	}
	record, err := h.outreach.Contact(c.Request.Context(), body, outreach.Origin{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": record.ID})
}
