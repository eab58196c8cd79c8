// Package admin registers the authenticated management API.
package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/blog"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/config"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/devotional"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/http/api/admin/handlers"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/prayer"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/security"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/sermon"
)

// Services are the domain services the admin API manages.
type Services struct {
	Sermons     *sermon.Cache
	Devotionals *devotional.Service
	Prayers     *prayer.Gate
	Blog        *blog.Service
}

// RegisterAdminRoutes registers /api/admin. Every route except login passes
// the token check and then the role check.
func RegisterAdminRoutes(r *gin.Engine, codec *security.TokenCodec, authCfg config.AuthConfig, services Services) {
	if r == nil || codec == nil {
		return
	}

	group := r.Group("/api/admin")

	authHandler := handlers.NewAuthHandler(codec, authCfg.Super, authCfg.Site)
	group.POST("/login", authHandler.Login)

	authed := group.Group("")
	authed.Use(adminAuthMiddleware(codec), adminPermissionMiddleware())

	permissionHandler := handlers.NewPermissionHandler()
	authed.GET("/permissions", permissionHandler.List)

	if services.Sermons != nil {
		sermonHandler := handlers.NewSermonHandler(services.Sermons)
		authed.GET("/sermons", sermonHandler.List)
		authed.POST("/sermons/generate", sermonHandler.Generate)
		authed.DELETE("/sermons/:id", sermonHandler.Delete)
		authed.DELETE("/sermons", sermonHandler.DeleteAll)
	}

	if services.Devotionals != nil {
		devotionalHandler := handlers.NewDevotionalHandler(services.Devotionals)
		authed.GET("/devotionals", devotionalHandler.List)
		authed.POST("/devotionals/generate", devotionalHandler.Generate)
		authed.POST("/devotionals/generate-ahead", devotionalHandler.GenerateAhead)
		authed.DELETE("/devotionals/:id", devotionalHandler.Delete)
	}

	if services.Prayers != nil {
		prayerHandler := handlers.NewPrayerHandler(services.Prayers)
		authed.GET("/prayers", prayerHandler.List)
		authed.DELETE("/prayers/:id", prayerHandler.Delete)
	}

	if services.Blog != nil {
		postHandler := handlers.NewPostHandler(services.Blog)
		authed.GET("/posts", postHandler.List)
		authed.POST("/posts", postHandler.Create)
		authed.POST("/posts/generate", postHandler.Generate)
		authed.DELETE("/posts/:id", postHandler.Delete)
	}
}
