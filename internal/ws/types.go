package ws

import "telegram_rewards/internal/domain"

const (
	// server - client
	MsgReady        = "ready"
	MsgNotification = "notification"
)

// Event is one frame pushed to a connected client.
type Event struct {
	Type         string               `json:"type"`
	Notification *domain.Notification `json:"notification,omitempty"`
}
