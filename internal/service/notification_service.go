package service

import (
	"context"

	"telegram_rewards/internal/domain"
)

type NotificationStore interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ListNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID int64) error
}

// NotificationService is the inbox behind revenge: an attacked user reads
// the notification and passes its id back as the revenge source.
type NotificationService struct {
	store NotificationStore
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) Unread(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	if _, err := loadActiveUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	list, err := s.store.ListNotifications(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Notification{}
	}
	return list, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if _, err := loadActiveUser(ctx, s.store, userID); err != nil {
		return err
	}
	return s.store.MarkNotificationRead(ctx, userID, notificationID)
}
