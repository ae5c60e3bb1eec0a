package routes

import (
	"github.com/gin-gonic/gin"

	"maternar/controllers"
	"maternar/middlewares"
)

// SetupGamificationRoutes mounts the bearer-authenticated REST mirror of
// the gamification ledger.
func SetupGamificationRoutes(group *gin.RouterGroup, d Deps) {
	gc := controllers.NewGamificationController(d.Services.Gamification, d.Services.Users, d.Logger)

	group.Use(middlewares.AuthMiddleware(d.Services.Auth, true, d.Logger))
	{
		group.GET("/leaderboard", gc.GetLeaderboard)
		group.GET("/gamification/me", gc.GetMine)

		admin := middlewares.RBACMiddleware(d.Services.Authz, "gamification", "write", d.Logger)
		group.POST("/gamification/xp", admin, gc.GrantXP)
		group.POST("/gamification/reset-weekly", admin, gc.ResetWeeklyXP)
	}
}
