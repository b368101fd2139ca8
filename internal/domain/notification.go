package domain

import "time"

// Notification is written by the economy inside its commits and delivered elsewhere.
type Notification struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Type      string                 `db:"type" json:"type"`
	Message   string                 `db:"message" json:"message"`
	Payload   map[string]interface{} `db:"payload" json:"payload,omitempty"`
	IsRead    bool                   `db:"is_read" json:"is_read"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

const (
	NotificationPvpAttacked       = "pvp_attacked"
	NotificationPvpShielded       = "pvp_shielded"
	NotificationPvpCounterAttack  = "pvp_counter_attack"
	NotificationWithdrawalCreated = "withdrawal_created"
	NotificationWithdrawalDone    = "withdrawal_completed"
	NotificationWithdrawalFailed  = "withdrawal_failed"
)
