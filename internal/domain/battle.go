package domain

import "time"

// BattleResult - исход атаки
type BattleResult string

const (
	BattleWin           BattleResult = "WIN"
	BattleLose          BattleResult = "LOSE"
	BattleShielded      BattleResult = "SHIELDED"
	BattleCounterAttack BattleResult = "COUNTER_ATTACK"
)

// BattleLog is an immutable record of one combat resolution.
type BattleLog struct {
	ID         int64        `db:"id" json:"id"`
	AttackerID int64        `db:"attacker_id" json:"attacker_id"`
	DefenderID int64        `db:"defender_id" json:"defender_id"`
	Amount     int64        `db:"amount" json:"amount"`
	Result     BattleResult `db:"result" json:"result"`
	IsRevenge  bool         `db:"is_revenge" json:"is_revenge"`
	Roll       *int         `db:"roll" json:"roll,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// GrantsRevenge reports whether the defender of this log may take revenge on its attacker.
func (r BattleResult) GrantsRevenge() bool {
	return r == BattleWin || r == BattleShielded
}

// BattleRequest identifies the two parties of an attack.
type BattleRequest struct {
	AttackerID           int64
	DefenderID           int64
	Revenge              bool
	SourceNotificationID *int64
}

// BattleState is what the store loads under lock before the outcome is decided.
type BattleState struct {
	Attacker        *User
	Defender        *User
	DefenderItems   Inventory
	HasRevengeRight bool
}

// BattleCommit describes every row a resolved battle touches. The store
// applies all of it in one transaction or nothing.
type BattleCommit struct {
	Log           BattleLog
	Postings      []Posting
	ItemUses      []ItemUse
	HeistAt       time.Time
	Stolen        int64 // counted into attacker's pvp stats when > 0 on a WIN
	Notifications []Notification
	MarkRead      *int64

	AttackerBalance int64
	DefenderName    string
}

// BattleDecider turns locked state into a commit script, or rejects the attack.
type BattleDecider func(state *BattleState) (*BattleCommit, error)
