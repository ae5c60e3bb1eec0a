package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"

	"maternar/config"
	"maternar/controllers"
	"maternar/graph"
	"maternar/middlewares"
	"maternar/services"
	"maternar/websocket"
)

// Deps is everything the router wires together.
type Deps struct {
	Config   *config.Config
	Services *services.Services
	Schema   *graphql.Schema
	Hub      *websocket.Hub
	Checks   map[string]controllers.Pinger
	Logger   *slog.Logger
}

// SetupRouter builds the HTTP surface: GraphQL over POST and websocket,
// the gamification feed, the legacy cookie-session API and the REST mirror.
func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     d.Config.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-App-Version", "X-App-Environment"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))
	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.Use(middlewares.ClientMeta())

	router.GET("/health", controllers.Health(d.Checks))

	auth := d.Services.Auth
	check := websocket.AllowOrigins(d.Config.CORS.AllowOrigins)

	// login and register are anonymous, so GraphQL auth is optional
	router.POST("/graphql", middlewares.AuthMiddleware(auth, false, d.Logger), graph.Handler(d.Schema))
	router.GET("/graphql", websocket.NewGraphQLHandler(d.Schema, auth, d.Hub, check, d.Logger).Serve)
	router.GET("/ws/gamification", websocket.NewGamificationHandler(d.Hub, auth, check, d.Logger).Serve)

	SetupLegacyRoutes(router.Group("/legacy"), d)
	SetupGamificationRoutes(router.Group("/api"), d)

	return router
}
