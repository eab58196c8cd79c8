package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/sermon"
)

// SermonHandler manages generated sermons.
type SermonHandler struct {
	cache *sermon.Cache
}

// NewSermonHandler constructs a SermonHandler.
func NewSermonHandler(cache *sermon.Cache) *SermonHandler {
	return &SermonHandler{cache: cache}
}

// List returns every stored sermon, newest first.
func (h *SermonHandler) List(c *gin.Context) {
	items, err := h.cache.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Delete removes one sermon.
func (h *SermonHandler) Delete(c *gin.Context) {
	if err := h.cache.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAll removes every sermon.
func (h *SermonHandler) DeleteAll(c *gin.Context) {
	deleted, err := h.cache.DeleteAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// Generate creates a sermon under a new unique key. With ?async=1 the
// generation is scheduled and the request returns at once.
func (h *SermonHandler) Generate(c *gin.Context) {
	now := time.Now().UTC()
	if async := c.Query("async"); async == "1" || async == "true" {
		if err := h.cache.ForceGenerateAsync(now); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Sermon generation started"})
		return
	}
	item, err := h.cache.ForceGenerate(c.Request.Context(), now)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}
