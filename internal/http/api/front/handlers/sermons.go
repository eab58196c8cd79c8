package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/sermon"
)

// SermonHandler serves the weekly sermon.
type SermonHandler struct {
	cache *sermon.Cache
}

// NewSermonHandler constructs a SermonHandler.
func NewSermonHandler(cache *sermon.Cache) *SermonHandler {
	return &SermonHandler{cache: cache}
}

// Current returns the newest sermon.
func (h *SermonHandler) Current(c *gin.Context) {
	item, err := h.cache.Current(c.Request.Context(), time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Archive returns every stored sermon, newest first.
func (h *SermonHandler) Archive(c *gin.Context) {
	items, err := h.cache.Archive(c.Request.Context(), time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
