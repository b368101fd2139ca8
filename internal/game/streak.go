package game

import (
	"errors"
	"time"
)

// CheckInRewards is the canonical 7-day table; day 1 is index 0.
var CheckInRewards = [7]int64{100, 200, 300, 500, 750, 1000, 5000}

// streakGrace is how long after the previous check-in the streak still continues.
const streakGrace = 48 * time.Hour

var ErrAlreadyCheckedIn = errors.New("already claimed today")

// StreakInput is the stored state a check-in decision is made from.
type StreakInput struct {
	LastCheckIn     *time.Time
	Streak          int
	HasStreakShield bool
	Now             time.Time
	Location        *time.Location
}

// StreakDecision is the outcome of a valid check-in.
type StreakDecision struct {
	NewStreak  int   `json:"streak"`
	Day        int   `json:"streak_day"`
	Reward     int64 `json:"reward_amount"`
	ShieldUsed bool  `json:"shield_used"`
}

// DayIndex maps a streak value onto the 1..7 reward cycle.
func DayIndex(streak int) int {
	if streak <= 0 {
		return 1
	}
	return ((streak - 1) % len(CheckInRewards)) + 1
}

func RewardForStreak(streak int) int64 {
	return CheckInRewards[DayIndex(streak)-1]
}

// DecideCheckIn applies the daily transition rule.
//
// Same calendar day is rejected. The streak continues when the previous
// check-in was on the previous calendar day or less than 48h ago; otherwise
// it resets to 1 unless a streak shield is available, which is then consumed.
func DecideCheckIn(in StreakInput) (StreakDecision, error) {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	var d StreakDecision
	switch {
	case in.LastCheckIn == nil:
		d.NewStreak = 1
	default:
		gap := CalendarDaysBetween(*in.LastCheckIn, in.Now, loc)
		if gap <= 0 {
			return StreakDecision{}, ErrAlreadyCheckedIn
		}
		if gap == 1 || in.Now.Sub(*in.LastCheckIn) < streakGrace {
			d.NewStreak = in.Streak + 1
		} else if in.HasStreakShield {
			d.NewStreak = in.Streak + 1
			d.ShieldUsed = true
		} else {
			d.NewStreak = 1
		}
	}

	d.Day = DayIndex(d.NewStreak)
	d.Reward = RewardForStreak(d.NewStreak)
	return d, nil
}

// ClaimedToday reports whether lastCheckIn falls on the same calendar day as now.
func ClaimedToday(lastCheckIn *time.Time, now time.Time, loc *time.Location) bool {
	if lastCheckIn == nil {
		return false
	}
	return CalendarDaysBetween(*lastCheckIn, now, loc) <= 0
}

// StartOfDay is midnight of now's calendar day in loc.
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CalendarDaysBetween counts day boundaries crossed from a to b in loc.
func CalendarDaysBetween(a, b time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / (24 * time.Hour))
}
