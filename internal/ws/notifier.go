package ws

import (
	"context"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/service"
)

// Notifier pushes user notifications to open WebApp sessions and then hands
// them to next (Telegram or log).
type Notifier struct {
	hub  *Hub
	next service.Notifier
}

func NewNotifier(hub *Hub, next service.Notifier) *Notifier {
	if next == nil {
		next = service.LogNotifier{}
	}
	return &Notifier{hub: hub, next: next}
}

func (n *Notifier) NotifyUser(ctx context.Context, userTgID int64, note domain.Notification) {
	if note.UserID != 0 {
		n.hub.Push(note.UserID, Event{Type: MsgNotification, Notification: &note})
	}
	n.next.NotifyUser(ctx, userTgID, note)
}

func (n *Notifier) NotifyAdminsNewWithdrawal(ctx context.Context, user *domain.User, w *domain.Withdrawal) {
	n.next.NotifyAdminsNewWithdrawal(ctx, user, w)
}
