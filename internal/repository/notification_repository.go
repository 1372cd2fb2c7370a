package repository

import (
	"context"
	"errors"

	"marketplace-be/internal/model"

	"github.com/google/uuid"
)

// ErrNotificationNotFound also covers a notification owned by someone else.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository stores the in-app inbox written by the notifier.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *model.Notification) error
	// GetNotificationsByUserID returns the requested page and the user's total.
	GetNotificationsByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
}
