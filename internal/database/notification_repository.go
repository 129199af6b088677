package database

import (
	"fmt"
	"time"

	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/google/uuid"
)

// NotificationRepository handles in-app notification database operations
type NotificationRepository struct {
	db DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db DB) *NotificationRepository {
	return &NotificationRepository{
		db: db,
	}
}

// CreateNotification inserts a notification for one user
func (r *NotificationRepository) CreateNotification(n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()

	query := `
		INSERT INTO notifications (id, user_id, kind, title, message, route_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)
	`

	_, err := r.db.Exec(query, n.ID, n.UserID, n.Kind, n.Title, n.Message, n.RouteID, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListByUser returns a user's notifications, newest first
func (r *NotificationRepository) ListByUser(userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	var notifications []models.Notification

	query := `SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`
	if unreadOnly {
		query = `SELECT * FROM notifications WHERE user_id = $1 AND read = false ORDER BY created_at DESC`
	}

	if err := r.db.Select(&notifications, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead flags one notification as read, scoped to its owner
func (r *NotificationRepository) MarkRead(id, userID uuid.UUID) error {
	query := `UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`

	result, err := r.db.Exec(query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("notification not found: %s", id)
	}

	return nil
}
