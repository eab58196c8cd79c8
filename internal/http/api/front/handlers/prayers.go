package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/prayer"
)

// PrayerHandler serves the public prayer wall.
type PrayerHandler struct {
	gate *prayer.Gate
}

// NewPrayerHandler constructs a PrayerHandler.
func NewPrayerHandler(gate *prayer.Gate) *PrayerHandler {
	return &PrayerHandler{gate: gate}
}

// List returns the published prayers.
func (h *PrayerHandler) List(c *gin.Context) {
	records, err := h.gate.ListPublic(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

type submitPrayerRequest struct {
	FirstName   string `json:"firstName"`
	RequestText string `json:"requestText"`
}

// Submit moderates a prayer request. A rejected request gets the same
// success shape as an accepted one, without publication.
func (h *PrayerHandler) Submit(c *gin.Context) {
	var body submitPrayerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		writeResult(c, apperr.Validation("Missing first name or request text."))
		return
	}
	result, err := h.gate.Submit(c.Request.Context(), prayer.Submission{
		FirstName:   body.FirstName,
		RequestText: body.RequestText,
		SourceIP:    c.ClientIP(),
	})
	if err != nil {
		writeResult(c, err)
		return
	}
	if result.Published {
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Prayer request approved and posted."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Prayer request submitted."})
}
