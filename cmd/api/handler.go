package api

import (
	authusecase "traction-backend/internal/auth/usecase"
	feeddelivery "traction-backend/internal/feed/delivery"
	feedusecase "traction-backend/internal/feed/usecase"
	syncdelivery "traction-backend/internal/sync/delivery"
	syncusecase "traction-backend/internal/sync/usecase"
	"traction-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	authUsecase authusecase.AuthUsecase
	syncHandler *syncdelivery.SyncHandler
	feedHandler *feeddelivery.FeedHandler
	config      *config.Config
}

func NewHandler(authUc authusecase.AuthUsecase, syncUc syncusecase.SyncUsecase, feedCache *feedusecase.FeedCache, cfg *config.Config, logger *logrus.Logger) *Handler {
	return &Handler{
		authUsecase: authUc,
		syncHandler: syncdelivery.NewSyncHandler(syncUc),
		feedHandler: feeddelivery.NewFeedHandler(feedCache, cfg.FeedURLs),
		config:      cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.syncHandler, h.feedHandler)

	return r.Run(addr)
}
