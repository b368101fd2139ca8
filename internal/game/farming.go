package game

import (
	"time"

	"github.com/shopspring/decimal"
)

// FarmingMaxDuration caps how much time a single farming session accrues.
const FarmingMaxDuration = 8 * time.Hour

var millisPerMinute = decimal.NewFromInt(int64(time.Minute / time.Millisecond))

// FarmingStatus is derived from the stored anchor and the current time on every read.
type FarmingStatus struct {
	IsFarming bool          `json:"is_farming"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
	Elapsed   time.Duration `json:"-"`
	Remaining time.Duration `json:"-"`
	IsFull    bool          `json:"is_full"`
	Accrued   int64         `json:"accrued"`
	Rate      string        `json:"rate"`
}

// FarmingElapsed returns now-startedAt clamped to [0, FarmingMaxDuration].
func FarmingElapsed(startedAt, now time.Time) time.Duration {
	elapsed := now.Sub(startedAt)
	if elapsed < 0 {
		return 0
	}
	if elapsed > FarmingMaxDuration {
		return FarmingMaxDuration
	}
	return elapsed
}

// FarmingReward computes floor(elapsedMinutes * rate).
func FarmingReward(elapsed time.Duration, rate decimal.Decimal) int64 {
	if elapsed <= 0 || !rate.IsPositive() {
		return 0
	}
	minutes := decimal.NewFromInt(elapsed.Milliseconds()).Div(millisPerMinute)
	return minutes.Mul(rate).Floor().IntPart()
}

// FarmingSnapshot derives the current farming state.
func FarmingSnapshot(startedAt *time.Time, rate decimal.Decimal, now time.Time) FarmingStatus {
	st := FarmingStatus{Rate: rate.String()}
	if startedAt == nil {
		return st
	}
	elapsed := FarmingElapsed(*startedAt, now)
	st.IsFarming = true
	st.StartedAt = startedAt
	st.Elapsed = elapsed
	st.Remaining = FarmingMaxDuration - elapsed
	st.IsFull = elapsed >= FarmingMaxDuration
	st.Accrued = FarmingReward(elapsed, rate)
	return st
}
