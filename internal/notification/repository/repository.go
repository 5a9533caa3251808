package repository

import (
	"context"

	"diu-events-backend/internal/notification/domain"
)

// NotificationsCollection is the Firestore collection of notification records.
const NotificationsCollection = "user_notifications"

// NotificationRepository stores notification records. FindByID returns
// nil, nil for an unknown record.
type NotificationRepository interface {
	// Create assigns the record's ID and creation time and stores it.
	Create(ctx context.Context, n *domain.Notification) error
	FindByID(ctx context.Context, id string) (*domain.Notification, error)
}
