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

type FarmingStore interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	StartFarming(ctx context.Context, userID int64, now time.Time) error
	ClaimFarming(ctx context.Context, c domain.FarmingClaim) (int64, error)
}

type FarmingService struct {
	store FarmingStore
	now   Clock
}

func NewFarmingService(store FarmingStore, now Clock) *FarmingService {
	if now == nil {
		now = time.Now
	}
	return &FarmingService{store: store, now: now}
}

type FarmingClaimResult struct {
	Claimed    int64 `json:"claimed_amount"`
	Minutes    int64 `json:"farming_duration_minutes"`
	NewBalance int64 `json:"new_balance"`
}

func (s *FarmingService) Status(ctx context.Context, userID int64) (game.FarmingStatus, error) {
	user, err := loadActiveUser(ctx, s.store, userID)
	if err != nil {
		return game.FarmingStatus{}, err
	}
	return game.FarmingSnapshot(user.FarmingStartedAt, user.FarmingRate, s.now()), nil
}

// Start begins accrual. Starting while already farming is rejected and never
// resets the anchor.
func (s *FarmingService) Start(ctx context.Context, userID int64) (game.FarmingStatus, error) {
	user, err := loadActiveUser(ctx, s.store, userID)
	if err != nil {
		return game.FarmingStatus{}, err
	}
	if user.IsFarming() {
		metrics.Action("farming_start", "already_farming")
		return game.FarmingStatus{}, domain.ErrAlreadyFarming
	}

	now := s.now()
	if err := s.store.StartFarming(ctx, userID, now); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return game.FarmingStatus{}, ErrUserNotFound
		}
		return game.FarmingStatus{}, err
	}

	metrics.Action("farming_start", "ok")
	logger.WithContext(ctx).Info("farming started", "user_id", userID)
	return game.FarmingSnapshot(&now, user.FarmingRate, now), nil
}

// Claim pays floor(minutes * rate) for up to 8h and returns the user to idle.
func (s *FarmingService) Claim(ctx context.Context, userID int64) (*FarmingClaimResult, error) {
	user, err := loadActiveUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsFarming() {
		metrics.Action("farming_claim", "not_farming")
		return nil, domain.ErrNotFarming
	}

	elapsed := game.FarmingElapsed(*user.FarmingStartedAt, s.now())
	claim := domain.FarmingClaim{
		UserID:    userID,
		StartedAt: *user.FarmingStartedAt,
		Reward:    game.FarmingReward(elapsed, user.FarmingRate),
		Minutes:   int64(elapsed / time.Minute),
	}

	balance, err := s.store.ClaimFarming(ctx, claim)
	if err != nil {
		if errors.Is(err, domain.ErrNotFarming) {
			metrics.Action("farming_claim", "not_farming")
		}
		return nil, err
	}

	metrics.Action("farming_claim", "ok")
	metrics.Minted("farming", claim.Reward)
	logger.WithContext(ctx).Info("farming claimed",
		"user_id", userID, "reward", claim.Reward, "minutes", claim.Minutes, "balance", balance)

	return &FarmingClaimResult{Claimed: claim.Reward, Minutes: claim.Minutes, NewBalance: balance}, nil
}
