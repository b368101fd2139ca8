package repository

import (
	"context"
	"encoding/json"

	"telegram_rewards/internal/domain"
)

type NotificationRepository struct {
	db DB
}

func NewNotificationRepository(db DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// ListUnread returns the newest unread notifications for a user
func (r *NotificationRepository) ListUnread(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, type, message, payload, is_read, created_at
		 FROM notifications
		 WHERE user_id = $1 AND NOT is_read
		 ORDER BY created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var payload []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &payload, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &n.Payload)
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func insertNotification(ctx context.Context, q querier, n *domain.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil || n.Payload == nil {
		payload = []byte("{}")
	}
	return q.QueryRow(ctx,
		`INSERT INTO notifications (user_id, type, message, payload)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		n.UserID, n.Type, n.Message, payload,
	).Scan(&n.ID, &n.CreatedAt)
}

// MarkRead flags one of userID's notifications as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, notificationID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// markRead only touches notifications owned by userID.
func markRead(ctx context.Context, q querier, notificationID, userID int64) error {
	_, err := q.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	return err
}
