package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/kv"
)

const healthProbeKey = "healthz"

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	store kv.Store
}

// NewHealthHandler constructs a HealthHandler probing store.
func NewHealthHandler(store kv.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Healthz checks store connectivity and returns status.
func (h *HealthHandler) Healthz(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if _, err := h.store.Get(ctx, healthProbeKey); err != nil && !errors.Is(err, kv.ErrNotFound) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
