package domain

import "time"

type Transaction struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Type      string                 `db:"type" json:"type"`
	Amount    int64                  `db:"amount" json:"amount"`
	Meta      map[string]interface{} `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Transaction types written alongside every posting
const (
	TxTypeSpin             = "spin"
	TxTypeFarmingClaim     = "farming_claim"
	TxTypeCheckIn          = "checkin"
	TxTypePvpSteal         = "pvp_steal"
	TxTypePvpStolen        = "pvp_stolen"
	TxTypePvpFine          = "pvp_fine"
	TxTypePvpShieldPenalty = "pvp_shield_penalty"
	TxTypePvpCounter       = "pvp_counter"
	TxTypeWithdrawal       = "withdrawal"
	TxTypeWithdrawalRefund = "withdrawal_refund"
)

// Posting is one signed balance change. The store applies it as
// balance = balance + Delta and refuses it if the result would be negative
// or the balance before it is below Require.
type Posting struct {
	UserID  int64
	Delta   int64
	Require int64
	Type    string
	Meta    map[string]interface{}
}

// Floor is the minimum balance the user must hold for the posting to apply.
func (p Posting) Floor() int64 {
	return max(p.Require, -p.Delta, 0)
}
