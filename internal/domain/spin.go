package domain

import "time"

// SpinRecord - запись истории вращения колеса
type SpinRecord struct {
	ID        int64     `db:"id" json:"id"`
	RoundID   string    `db:"round_id" json:"round_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Tier      string    `db:"tier" json:"tier"`
	Draw      int       `db:"draw" json:"draw"`
	Cost      int64     `db:"cost" json:"cost"`
	Reward    int64     `db:"reward" json:"reward"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NetGain is the single delta a spin applies to the balance.
func (s *SpinRecord) NetGain() int64 {
	return s.Reward - s.Cost
}
