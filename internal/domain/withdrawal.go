package domain

import "time"

// WithdrawalStatus represents withdrawal processing status
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "PENDING"
	WithdrawalStatusProcessing WithdrawalStatus = "PROCESSING" // reserved for async settlement
	WithdrawalStatusCompleted  WithdrawalStatus = "COMPLETED"
	WithdrawalStatusFailed     WithdrawalStatus = "FAILED"
)

func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusCompleted || s == WithdrawalStatusFailed
}

// Processable reports whether an admin decision may still be applied. Only
// PENDING qualifies; PROCESSING belongs to settlement.
func (s WithdrawalStatus) Processable() bool {
	return s == WithdrawalStatusPending
}

// Withdrawal represents an outgoing payout request. Balance is debited on creation.
type Withdrawal struct {
	ID            int64            `db:"id" json:"id"`
	UserID        int64            `db:"user_id" json:"user_id"`
	Amount        int64            `db:"amount" json:"amount"`
	WalletAddress string           `db:"wallet_address" json:"wallet_address"`
	TxHash        string           `db:"tx_hash" json:"tx_hash"`
	Status        WithdrawalStatus `db:"status" json:"status"`
	AdminNote     string           `db:"admin_note" json:"admin_note,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	ProcessedAt   *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
}

// WithdrawAction is the admin decision on a pending withdrawal
type WithdrawAction string

const (
	WithdrawApprove WithdrawAction = "APPROVE"
	WithdrawReject  WithdrawAction = "REJECT"
)

// WithdrawalSubmit is the commit script for a new request.
type WithdrawalSubmit struct {
	Withdrawal   Withdrawal
	MaxPending   int
	Notification Notification
}

// WithdrawalDecision is the commit script for processing a request.
type WithdrawalDecision struct {
	WithdrawalID int64
	Action       WithdrawAction
	Note         string
	ProcessedAt  time.Time
	// Notify builds the owner notification once the row is loaded under lock.
	Notify func(w *Withdrawal) Notification
}

// ProcessedWithdrawal is what a committed decision produced. Notification is
// the stored row, nil when the decision carried no Notify.
type ProcessedWithdrawal struct {
	Withdrawal   *Withdrawal
	Notification *Notification
}
