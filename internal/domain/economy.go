package domain

import "time"

// FarmingClaim is the commit script for collecting accrued yield.
type FarmingClaim struct {
	UserID    int64
	StartedAt time.Time
	Reward    int64
	Minutes   int64
}

// CheckIn is the commit script for a daily check-in.
type CheckIn struct {
	UserID          int64
	PrevCheckIn     *time.Time
	PrevStreak      int
	Now             time.Time
	NewStreak       int
	Reward          int64
	UseStreakShield bool
}
