package service

import (
	"context"
	"errors"
	"time"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/game"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/metrics"
)

type CheckInStore interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetInventory(ctx context.Context, userID int64) (domain.Inventory, error)
	CommitCheckIn(ctx context.Context, c domain.CheckIn) (int64, error)
}

type CheckInService struct {
	store CheckInStore
	loc   *time.Location
	now   Clock
}

func NewCheckInService(store CheckInStore, loc *time.Location, now Clock) *CheckInService {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &CheckInService{store: store, loc: loc, now: now}
}

type CheckInResult struct {
	game.StreakDecision
	NewBalance int64 `json:"new_balance"`
}

// CheckInStatus is what the client needs to render the 7-day calendar.
type CheckInStatus struct {
	ClaimedToday bool     `json:"claimed_today"`
	Streak       int      `json:"streak"`
	NextDay      int      `json:"next_day"`
	NextReward   int64    `json:"next_reward"`
	Rewards      [7]int64 `json:"rewards"`
}

func (s *CheckInService) Status(ctx context.Context, userID int64) (*CheckInStatus, error) {
	user, err := loadActiveUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	inv, err := s.store.GetInventory(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := &CheckInStatus{
		ClaimedToday: game.ClaimedToday(user.LastCheckIn, s.now(), s.loc),
		Streak:       user.Streak,
		Rewards:      game.CheckInRewards,
	}
	if st.ClaimedToday {
		st.NextDay = game.DayIndex(user.Streak + 1)
		st.NextReward = game.RewardForStreak(user.Streak + 1)
		return st, nil
	}

	d, err := game.DecideCheckIn(s.input(user, inv))
	if err != nil {
		return nil, err
	}
	st.NextDay = d.Day
	st.NextReward = d.Reward
	return st, nil
}

// CheckIn claims today's reward. A lost race with a concurrent check-in
// surfaces as ErrAlreadyCheckedIn, since the winner claimed today.
func (s *CheckInService) CheckIn(ctx context.Context, userID int64) (*CheckInResult, error) {
	user, err := loadActiveUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	inv, err := s.store.GetInventory(ctx, userID)
	if err != nil {
		return nil, err
	}

	in := s.input(user, inv)
	d, err := game.DecideCheckIn(in)
	if err != nil {
		metrics.Action("checkin", "already_checked_in")
		return nil, err
	}

	balance, err := s.store.CommitCheckIn(ctx, domain.CheckIn{
		UserID:          userID,
		PrevCheckIn:     user.LastCheckIn,
		PrevStreak:      user.Streak,
		Now:             in.Now,
		NewStreak:       d.NewStreak,
		Reward:          d.Reward,
		UseStreakShield: d.ShieldUsed,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.Action("checkin", "already_checked_in")
			return nil, ErrAlreadyCheckedIn
		}
		return nil, err
	}

	metrics.Action("checkin", "ok")
	metrics.Minted("checkin", d.Reward)
	logger.WithContext(ctx).Info("check-in",
		"user_id", userID, "streak", d.NewStreak, "reward", d.Reward,
		"shield_used", d.ShieldUsed, "balance", balance)

	return &CheckInResult{StreakDecision: d, NewBalance: balance}, nil
}

func (s *CheckInService) input(user *domain.User, inv domain.Inventory) game.StreakInput {
	return game.StreakInput{
		LastCheckIn:     user.LastCheckIn,
		Streak:          user.Streak,
		HasStreakShield: inv.Has(domain.ItemStreakShield),
		Now:             s.now(),
		Location:        s.loc,
	}
}
