package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/devotional"
)

// DevotionalHandler serves the daily devotional.
type DevotionalHandler struct {
	service *devotional.Service
}

// NewDevotionalHandler constructs a DevotionalHandler.
func NewDevotionalHandler(service *devotional.Service) *DevotionalHandler {
	return &DevotionalHandler{service: service}
}

// Today returns today's devotional, or the stored one for ?date=YYYY-MM-DD.
func (h *DevotionalHandler) Today(c *gin.Context) {
	if date := strings.TrimSpace(c.Query("date")); date != "" {
		item, err := h.service.Get(c.Request.Context(), date)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
		return
	}
	item, err := h.service.Today(c.Request.Context(), time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
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
