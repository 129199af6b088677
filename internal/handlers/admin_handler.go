package handlers

import (
	"net/http"

	"github.com/distrifarma/rutero-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// AdminHandler exposes operational endpoints for administrators
type AdminHandler struct {
	cronService *services.CronService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(cronService *services.CronService) *AdminHandler {
	return &AdminHandler{cronService: cronService}
}

// RunSweep triggers the expiration sweep outside its schedule
// POST /api/v1/admin/sweep
func (h *AdminHandler) RunSweep(c *gin.Context) {
	result, err := h.cronService.RunSweepNow()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}
