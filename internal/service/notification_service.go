package service

import (
	"context"
	"encoding/json"

	"marketplace-be/internal/dto"
	"marketplace-be/internal/model"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultInboxLimit = 20
	maxInboxLimit     = 100
)

// INotificationService serves the in-app inbox the push channel writes to.
type INotificationService interface {
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) (*dto.NotificationListResponse, error)
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
}

type NotificationService struct {
	repo   repository.NotificationRepository
	logger logger.ILogger
}

func NewNotificationService(repo repository.NotificationRepository, log logger.ILogger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: log,
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) (*dto.NotificationListResponse, error) {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	if limit > maxInboxLimit {
		limit = maxInboxLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, total, err := s.repo.GetNotificationsByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]dto.NotificationResponse, 0, len(rows))
	for _, n := range rows {
		items = append(items, toNotificationResponse(n))
	}

	return &dto.NotificationListResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, userID, notificationID); err != nil {
		s.logger.Warn("NOTIFICATION", "Failed to mark notification read", map[string]interface{}{
			"user_id":         userID,
			"notification_id": notificationID,
			"error":           err.Error(),
		})
		return err
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func toNotificationResponse(n model.Notification) dto.NotificationResponse {
	var meta map[string]interface{}
	if len(n.Metadata) > 0 {
		_ = json.Unmarshal(n.Metadata, &meta)
	}
	return dto.NotificationResponse{
		Id:        n.ID,
		TypeCode:  n.TypeCode,
		Title:     n.Title,
		Message:   n.Message,
		Metadata:  meta,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
