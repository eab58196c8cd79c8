package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/devotional"
)

// DevotionalHandler manages generated devotionals.
type DevotionalHandler struct {
	service *devotional.Service
}

// NewDevotionalHandler constructs a DevotionalHandler.
func NewDevotionalHandler(service *devotional.Service) *DevotionalHandler {
	return &DevotionalHandler{service: service}
}

type generateDevotionalRequest struct {
	Date string `json:"date"`
}

// List returns every stored devotional, newest day first.
func (h *DevotionalHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Generate regenerates one day, today unless the body names a date. With
// ?async=1 the generation is scheduled and the request returns at once.
func (h *DevotionalHandler) Generate(c *gin.Context) {
	var body generateDevotionalRequest
	if c.Request.ContentLength != 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			writeError(c, apperr.Validation("invalid json"))
			return
		}
	}
	now := time.Now()
	if async := c.Query("async"); async == "1" || async == "true" {
		if err := h.service.ForceGenerateAsync(now, body.Date); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Devotional generation started"})
		return
	}
	item, err := h.service.ForceGenerate(c.Request.Context(), now, body.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// GenerateAhead schedules generation of every missing day in the window.
func (h *DevotionalHandler) GenerateAhead(c *gin.Context) {
	if err := h.service.ScheduleAhead(time.Now()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Devotional generation started"})
}

// Delete removes one devotional.
func (h *DevotionalHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
