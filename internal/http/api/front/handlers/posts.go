package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/blog"
)

// PostHandler serves published posts and the feeds built from them.
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
	c.JSON(http.StatusOK, posts)
}

// Get returns one post by slug or id.
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.blog.Find(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// RSS serves the RSS 2.0 feed.
func (h *PostHandler) RSS(c *gin.Context) {
	body, err := h.blog.RSS(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", body)
}

// Sitemap serves the sitemap.
func (h *PostHandler) Sitemap(c *gin.Context) {
	body, err := h.blog.Sitemap(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}
