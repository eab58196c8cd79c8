package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/pastor"
)

// PastorHandler answers visitor questions.
type PastorHandler struct {
	pastor *pastor.Service
}

// NewPastorHandler constructs a PastorHandler.
func NewPastorHandler(svc *pastor.Service) *PastorHandler {
	return &PastorHandler{pastor: svc}
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask returns the answer to the posted question.
func (h *PastorHandler) Ask(c *gin.Context) {
	var body askRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		writeError(c, apperr.Validation("Question is required."))
		return
	}
	answer, err := h.pastor.Ask(c.Request.Context(), body.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer})
}
