package handlers

import (
	"net/http"

	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NotificationHandler serves the in-app notification feed
type NotificationHandler struct {
	notifRepo *database.NotificationRepository
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifRepo *database.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifRepo: notifRepo}
}

// ListNotifications returns the caller's notifications, newest first
// GET /api/v1/notifications?unread=true
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.notifRepo.ListByUser(userCtx.UserID, unreadOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// MarkRead marks one of the caller's notifications as read
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notifID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return
	}

	userCtx, _ := middleware.GetUserContext(c)
	if err := h.notifRepo.MarkRead(notifID, userCtx.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"read": true})
}
