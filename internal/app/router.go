package app

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridebook/internal/handler"
	"ridebook/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler *handler.RideHandler
	UserHandler *handler.UserHandler
	TokenParser middleware.ActorParser
	RedisClient redis.Cmdable
	NewRelicApp *newrelic.Application
	Logger      *slog.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes. Idempotency keys are scoped per actor, so auth runs first.
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.TokenParser))
	v1.Use(middleware.TraceMiddleware(deps.Logger))
	if deps.RedisClient != nil {
		v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Logger))
	}
	{
		// User routes.
		users := v1.Group("/users")
		{
			users.POST("/register", deps.UserHandler.Register)
			users.GET("", deps.UserHandler.GetAll)
			users.GET("/:id", deps.UserHandler.GetUser)
			users.POST("/:id/balance", deps.UserHandler.AddBalance)
			users.GET("/:id/stats", deps.RideHandler.GetUserStats)
		}

		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("", deps.RideHandler.GetAll)
			rides.GET("/available", deps.RideHandler.GetAvailable)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.PUT("/:id", deps.RideHandler.UpdateRide)
			rides.DELETE("/:id", deps.RideHandler.DeleteRide)
			rides.GET("/:id/events", deps.RideHandler.GetEvents)
			rides.GET("/:id/status", deps.RideHandler.GetStatus)

			// Lifecycle.
			rides.POST("/:id/accept", deps.RideHandler.Accept)
			rides.POST("/:id/arrive", deps.RideHandler.Arrive)
			rides.POST("/:id/start", deps.RideHandler.Start)
			rides.POST("/:id/complete", deps.RideHandler.Complete)
			rides.POST("/:id/cancel", deps.RideHandler.Cancel)
			rides.POST("/:id/drop", deps.RideHandler.Drop)
		}

		v1.GET("/events/recent", deps.RideHandler.GetRecentEvents)
	}

	return router
}
