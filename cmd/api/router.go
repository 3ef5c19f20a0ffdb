package api

import (
	"net/http"

	authdelivery "traction-backend/internal/auth/delivery"
	authusecase "traction-backend/internal/auth/usecase"
	feeddelivery "traction-backend/internal/feed/delivery"
	syncdelivery "traction-backend/internal/sync/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authusecase.AuthUsecase, syncHandler *syncdelivery.SyncHandler, feedHandler *feeddelivery.FeedHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Sync routes (protected)
		syncRoutes := api.Group("/sync")
		syncRoutes.Use(authdelivery.AuthMiddleware(authUsecase))
		{
			syncRoutes.POST("/run", syncHandler.TriggerSync)
			syncRoutes.GET("/runs", syncHandler.GetRuns)
		}

		// Contact activity feed (protected)
		contacts := api.Group("/contacts")
		contacts.Use(authdelivery.AuthMiddleware(authUsecase))
		{
			contacts.GET("/:id/activities", syncHandler.GetContactActivities)
		}

		// News feed routes (protected)
		feeds := api.Group("/feeds")
		feeds.Use(authdelivery.AuthMiddleware(authUsecase))
		{
			feeds.GET("", feedHandler.GetLatest)
		}
	}
}
