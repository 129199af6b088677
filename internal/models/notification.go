package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds
const (
	NotificationRouteApproved = "route_approved"
	NotificationRouteRejected = "route_rejected"
	NotificationRouteClosed   = "route_closed"
)

// Notification is an in-app message delivered to one user
type Notification struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	UserID    uuid.UUID     `json:"user_id" db:"user_id"`
	Kind      string        `json:"kind" db:"kind"`
	Title     string        `json:"title" db:"title"`
	Message   string        `json:"message" db:"message"`
	RouteID   uuid.NullUUID `json:"route_id,omitempty" db:"route_id"`
	Read      bool          `json:"read" db:"read"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}
