package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/blog"
)

// PostHandler manages blog posts.
type PostHandler struct {
	blog *blog.Service
}

// NewPostHandler constructs a PostHandler.
func NewPostHandler(svc *blog.Service) *PostHandler {
	return &PostHandler{blog: svc}
}

// List returns every post, newest first.
func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.blog.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Create stores an authored post.
func (h *PostHandler) Create(c *gin.Context) {
	var body blog.Draft
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		writeError(c, apperr.Validation("invalid json"))
		return
	}
	post, err := h.blog.Create(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "post": post})
}

type generatePostRequest struct {
	Category string `json:"category"`
}

// Generate asks the model for a post in the requested category.
func (h *PostHandler) Generate(c *gin.Context) {
	var body generatePostRequest
	if c.Request.ContentLength != 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			writeError(c, apperr.Validation("invalid json"))
			return
		}
	}
	post, err := h.blog.Generate(c.Request.Context(), body.Category)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "post": post})
}

// Delete removes a post.
func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.blog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
