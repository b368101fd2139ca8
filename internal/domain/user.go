package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID               int64           `db:"id" json:"id"`
	TgID             int64           `db:"tg_id" json:"tg_id"`
	Username         string          `db:"username" json:"username"`
	FirstName        string          `db:"first_name" json:"first_name"`
	Balance          int64           `db:"balance" json:"balance"`
	IsBanned         bool            `db:"is_banned" json:"is_banned"`
	FarmingStartedAt *time.Time      `db:"farming_started_at" json:"farming_started_at,omitempty"`
	FarmingRate      decimal.Decimal `db:"farming_rate" json:"farming_rate"` // yield per minute
	LastCheckIn      *time.Time      `db:"last_check_in" json:"last_check_in,omitempty"`
	Streak           int             `db:"streak" json:"streak"`
	LastHeistAt      *time.Time      `db:"last_heist_at" json:"last_heist_at,omitempty"`
	PvpWins          int64           `db:"pvp_wins" json:"pvp_wins"`
	PvpTotalStolen   int64           `db:"pvp_total_stolen" json:"pvp_total_stolen"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// DisplayName returns the best human-readable name for notifications and responses.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "player"
}

func (u *User) IsFarming() bool {
	return u.FarmingStartedAt != nil
}
