package routes

import (
	"github.com/gin-gonic/gin"

	"maternar/controllers"
	"maternar/middlewares"
)

// SetupLegacyRoutes mounts the cookie-session endpoints.
func SetupLegacyRoutes(group *gin.RouterGroup, d Deps) {
	cfg := d.Config.Session
	group.Use(middlewares.Sessions(middlewares.SessionOptions{
		Name:   cfg.Name,
		Secret: cfg.Secret,
		MaxAge: cfg.MaxAge,
		Secure: cfg.Secure,
	}))

	lc := controllers.NewLegacyController(d.Services, cfg.Secure, d.Logger)
	group.POST("/login", lc.Login)
	group.POST("/logout", lc.Logout)

	api := group.Group("/api")
	api.Use(middlewares.LegacySession(d.Services.Users, d.Services.Auth, d.Logger))
	{
		api.GET("/messages", lc.Messages)
		api.POST("/messages", lc.Messages)
		api.GET("/notifications", lc.Notifications)
		api.POST("/notifications", lc.Notifications)
	}
}
