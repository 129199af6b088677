package handlers

import (
	"net/http"

	"github.com/distrifarma/rutero-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// CallQueueHandler exposes the telemarketing call-priority queue
type CallQueueHandler struct {
	queueService *services.CallQueueService
}

// NewCallQueueHandler creates a new call queue handler
func NewCallQueueHandler(queueService *services.CallQueueService) *CallQueueHandler {
	return &CallQueueHandler{queueService: queueService}
}

// GetQueue returns active clients ordered by call priority
// GET /api/v1/call-queue
func (h *CallQueueHandler) GetQueue(c *gin.Context) {
	items, err := h.queueService.Build()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build call queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"queue": items,
		"count": len(items),
	})
}
