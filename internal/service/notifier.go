package service

import (
	"context"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/logger"
)

// Notifier delivers already committed notifications to users and admins.
// Delivery is best effort; the durable copy lives in the notifications table.
type Notifier interface {
	NotifyUser(ctx context.Context, userTgID int64, n domain.Notification)
	NotifyAdminsNewWithdrawal(ctx context.Context, user *domain.User, w *domain.Withdrawal)
}

// LogNotifier is used when the bot is disabled.
type LogNotifier struct{}

func (LogNotifier) NotifyUser(ctx context.Context, userTgID int64, n domain.Notification) {
	logger.WithContext(ctx).Debug("notification", "tg_id", userTgID, "type", n.Type, "message", n.Message)
}

func (LogNotifier) NotifyAdminsNewWithdrawal(ctx context.Context, user *domain.User, w *domain.Withdrawal) {
	logger.WithContext(ctx).Info("new withdrawal awaiting review",
		"withdrawal_id", w.ID, "user_id", user.ID, "amount", w.Amount)
}
