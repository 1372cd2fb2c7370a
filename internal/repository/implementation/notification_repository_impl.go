package implementation

import (
	"context"
	"time"

	"marketplace-be/internal/model"
	"marketplace-be/internal/repository"
	"marketplace-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) repository.NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

func (r *NotificationRepositoryImpl) inbox(ctx context.Context, specs ...specification.Specification) *gorm.DB {
	return specification.Apply(r.db.WithContext(ctx).Model(&model.Notification{}), specs...)
}

func (r *NotificationRepositoryImpl) CreateNotification(ctx context.Context, notification *model.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// GetNotificationsByUserID returns one page newest first plus the total across all pages.
func (r *NotificationRepositoryImpl) GetNotificationsByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	owner := specification.UserOwnedBy{UserID: userID}

	var total int64
	if err := r.inbox(ctx, owner).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.Notification{}, 0, nil
	}

	var page []model.Notification
	err := r.inbox(ctx,
		owner,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	).Find(&page).Error
	return page, total, err
}

func (r *NotificationRepositoryImpl) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.inbox(ctx, specification.UserOwnedBy{UserID: userID}, specification.Unread{}).Count(&count).Error
	return count, err
}

func (r *NotificationRepositoryImpl) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	affected, err := r.markRead(r.inbox(ctx,
		specification.ByID{ID: notificationID},
		specification.UserOwnedBy{UserID: userID},
	))
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	_, err := r.markRead(r.inbox(ctx, specification.UserOwnedBy{UserID: userID}, specification.Unread{}))
	return err
}

func (r *NotificationRepositoryImpl) markRead(query *gorm.DB) (int64, error) {
	result := query.Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return result.RowsAffected, result.Error
}
