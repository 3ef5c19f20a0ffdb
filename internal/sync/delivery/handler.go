package delivery

import (
	"errors"
	"net/http"
	"strconv"

	syncdomain "traction-backend/internal/sync/domain"
	syncdto "traction-backend/internal/sync/dto"
	"traction-backend/internal/sync/usecase"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	syncUsecase usecase.SyncUsecase
}

func NewSyncHandler(syncUsecase usecase.SyncUsecase) *SyncHandler {
	return &SyncHandler{
		syncUsecase: syncUsecase,
	}
}

// TriggerSync starts one sync run for the caller. Partial failure still
// completes with 200; only credential and store-availability failures map
// to 401 and 500.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	userID := c.GetString("userID")

	result, err := h.syncUsecase.RunSync(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, syncdomain.ErrCredential) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *SyncHandler) GetRuns(c *gin.Context) {
	userID := c.GetString("userID")
	limit := queryInt(c, "limit", 20)

	runs, err := h.syncUsecase.ListRuns(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, syncdto.SyncRunsResponse{Runs: runs})
}

func (h *SyncHandler) GetContactActivities(c *gin.Context) {
	contactID := c.Param("id")
	limit := queryInt(c, "limit", 50)

	activities, err := h.syncUsecase.ListActivitiesByContact(contactID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

func queryInt(c *gin.Context, key string, defaultValue int) int {
	if raw := c.Query(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
