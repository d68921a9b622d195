package routes

import (
	"net/http"

	"github.com/ArowuTest/team-raffle-backend/internal/config"
	"github.com/ArowuTest/team-raffle-backend/internal/handlers"
	"github.com/ArowuTest/team-raffle-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// HandlerDependencies holds the handlers mounted by the router
type HandlerDependencies struct {
	AuthHandler        *handlers.AuthHandler
	RaffleHandler      *handlers.RaffleHandler
	FacilitatorHandler *handlers.FacilitatorHandler
	WatchHandler       *handlers.WatchHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Add middleware
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	// Public routes
	public := router.Group("/api/v1")
	{
		// Health check
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := public.Group("/auth")
		{
			auth.POST("/login", deps.AuthHandler.Login)
		}

		// Member routes
		teams := public.Group("/teams/:team")
		{
			teams.GET("/members/:code", deps.RaffleHandler.GetMember)
			teams.GET("/options", deps.RaffleHandler.GetAvailable)
			teams.POST("/claims", deps.RaffleHandler.Claim)
			teams.GET("/results", deps.FacilitatorHandler.GetResults)
		}
	}

	// Facilitator routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg))
	{
		teams := protected.Group("/teams/:team")
		{
			teams.GET("/board", deps.FacilitatorHandler.GetBoard)
			teams.GET("/watch", deps.WatchHandler.Watch)
			teams.POST("/open", deps.FacilitatorHandler.Open)
			teams.POST("/members/:code/status", deps.FacilitatorHandler.ToggleStatus)
			teams.POST("/allocate", deps.FacilitatorHandler.Allocate)
			teams.POST("/reset", deps.FacilitatorHandler.Reset)
		}
	}

	return router
}
