// Package front registers the public site API.
package front

import (
	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/blog"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/devotional"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/http/api/front/handlers"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/kv"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/outreach"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/pastor"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/prayer"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/sermon"
)

// Services are the domain services behind the public routes. A nil service
// leaves its routes unregistered.
type Services struct {
	Sermons     *sermon.Cache
	Devotionals *devotional.Service
	Prayers     *prayer.Gate
	Pastor      *pastor.Service
	Outreach    *outreach.Service
	Blog        *blog.Service
	// Health is probed by /healthz.
	Health kv.Store
	// AllowedOrigins restricts CORS. Empty allows any origin.
	AllowedOrigins []string
}

// RegisterFrontRoutes registers /api, the feeds and /healthz.
func RegisterFrontRoutes(r *gin.Engine, services Services) {
	if r == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(services.Health)
	r.GET("/healthz", healthHandler.Healthz)

	api := r.Group("/api")
	api.Use(corsMiddleware(services.AllowedOrigins))
	api.OPTIONS("/*path", func(c *gin.Context) {})

	if services.Sermons != nil {
		sermonHandler := handlers.NewSermonHandler(services.Sermons)
		api.GET("/sermon", sermonHandler.Current)
		api.GET("/sermons", sermonHandler.Archive)
	}

	if services.Devotionals != nil {
		devotionalHandler := handlers.NewDevotionalHandler(services.Devotionals)
		api.GET("/devotional", devotionalHandler.Today)
		api.GET("/devotionals", devotionalHandler.List)
	}

	if services.Prayers != nil {
		prayerHandler := handlers.NewPrayerHandler(services.Prayers)
		api.GET("/prayer", prayerHandler.List)
		api.POST("/prayer", prayerHandler.Submit)
	}

	if services.Pastor != nil {
		pastorHandler := handlers.NewPastorHandler(services.Pastor)
		api.POST("/ask-pastor", pastorHandler.Ask)
	}

	if services.Outreach != nil {
		outreachHandler := handlers.NewOutreachHandler(services.Outreach)
		api.POST("/subscribe", outreachHandler.Subscribe)
		api.POST("/contact", outreachHandler.Contact)
	}

	if services.Blog != nil {
		postHandler := handlers.NewPostHandler(services.Blog)
		api.GET("/posts", postHandler.List)
		api.GET("/posts/:slug", postHandler.Get)
		r.GET("/rss", postHandler.RSS)
		r.GET("/rss.xml", postHandler.RSS)
		r.GET("/sitemap.xml", postHandler.Sitemap)
	}
}
