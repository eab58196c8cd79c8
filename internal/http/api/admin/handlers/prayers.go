package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/prayer"
)

// PrayerHandler manages the prayer moderation log.
type PrayerHandler struct {
	gate *prayer.Gate
}

// NewPrayerHandler constructs a PrayerHandler.
func NewPrayerHandler(gate *prayer.Gate) *PrayerHandler {
	return &PrayerHandler{gate: gate}
}

// List returns the newest log entries.
func (h *PrayerHandler) List(c *gin.Context) {
	entries, err := h.gate.ListLog(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Delete removes a log entry and any prayer published from it.
func (h *PrayerHandler) Delete(c *gin.Context) {
	if err := h.gate.DeleteLog(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
