package api

import (
	"github.com/gin-gonic/gin"

	"quillpress/internal/api/handlers"
	"quillpress/internal/api/middleware"
)

type Handlers struct {
	Auth       *middleware.AuthMiddleware
	AI         *handlers.AIHandler
	WordPress  *handlers.WordPressHandler
	Automation *handlers.AutomationHandler
	History    *handlers.HistoryHandler
	Webhooks   *handlers.WebhookHandler
	Settings   *handlers.SettingsHandler
	Gsc        *handlers.GscHandler
}

// NewRouter assembles the HTTP surface. Everything under /api/v1 except the
// auth endpoints requires a valid session.
func NewRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", h.Auth.RegisterHandler)
		auth.POST("/login", h.Auth.LoginHandler)
		auth.POST("/logout", h.Auth.LogoutHandler)
	}

	authed := router.Group("/api/v1/auth")
	authed.Use(h.Auth.RequireAuth())
	{
		authed.GET("/me", h.Auth.MeHandler)
		authed.PUT("/password", h.Auth.ChangePasswordHandler)
		authed.PUT("/profile-picture", h.Auth.ProfilePictureHandler)
	}

	v1 := router.Group("/api/v1")
	v1.Use(h.Auth.RequireAuth())
	{
		handlers.RegisterAIRoutes(v1, h.AI)
		handlers.RegisterWordPressRoutes(v1, h.WordPress)
		handlers.RegisterAutomationRoutes(v1, h.Automation)
		handlers.RegisterHistoryRoutes(v1, h.History)
		handlers.RegisterWebhookRoutes(v1, h.Webhooks)
		handlers.RegisterSettingsRoutes(v1, h.Settings)
		handlers.RegisterGscRoutes(v1, h.Gsc)
	}

	return router
}
