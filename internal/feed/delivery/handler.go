package delivery

import (
	"net/http"
	"strconv"

	"traction-backend/internal/feed/usecase"

	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	cache    *usecase.FeedCache
	feedURLs []string
}

func NewFeedHandler(cache *usecase.FeedCache, feedURLs []string) *FeedHandler {
	return &FeedHandler{
		cache:    cache,
		feedURLs: feedURLs,
	}
}

func (h *FeedHandler) GetLatest(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	items, err := h.cache.Latest(c.Request.Context(), h.feedURLs, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
