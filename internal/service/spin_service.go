package service

import (
	"context"
	"errors"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/game"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/metrics"

	"github.com/google/uuid"
)

type SpinStore interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	CommitSpin(ctx context.Context, rec *domain.SpinRecord) (int64, error)
	ListSpins(ctx context.Context, userID int64, limit int) ([]domain.SpinRecord, error)
}

type SpinService struct {
	store SpinStore
	wheel *game.Wheel
	rng   game.RNG
}

func NewSpinService(store SpinStore, wheel *game.Wheel, rng game.RNG) *SpinService {
	return &SpinService{store: store, wheel: wheel, rng: rng}
}

// SpinResult is what the client animates: the tier index and the new balance.
type SpinResult struct {
	RoundID    string `json:"round_id"`
	Tier       string `json:"result"`
	TierIndex  int    `json:"tier_index"`
	Draw       int    `json:"draw"`
	Cost       int64  `json:"cost"`
	Reward     int64  `json:"reward_amount"`
	NetGain    int64  `json:"net_gain"`
	NewBalance int64  `json:"new_balance"`
}

func (s *SpinService) Wheel() *game.Wheel {
	return s.wheel
}

// Spin charges the cost and pays the drawn reward as one net balance change.
func (s *SpinService) Spin(ctx context.Context, userID int64) (*SpinResult, error) {
	user, err := loadActiveUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	if user.Balance < s.wheel.Cost {
		metrics.Action("spin", "insufficient_balance")
		return nil, &InsufficientBalanceError{Required: s.wheel.Cost, Current: user.Balance}
	}

	tier, draw := s.wheel.Spin(s.rng)
	rec := &domain.SpinRecord{
		RoundID: uuid.NewString(),
		UserID:  userID,
		Tier:    tier.Name,
		Draw:    draw,
		Cost:    s.wheel.Cost,
		Reward:  tier.Reward,
	}

	balance, err := s.store.CommitSpin(ctx, rec)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			metrics.Action("spin", "insufficient_balance")
			return nil, s.refused(ctx, userID)
		}
		return nil, err
	}

	metrics.Action("spin", "ok")
	metrics.SpinTiers.WithLabelValues(tier.Name).Inc()
	metrics.Burned("spin", rec.Cost)
	metrics.Minted("spin", rec.Reward)
	logger.WithContext(ctx).Info("wheel spin",
		"user_id", userID, "round_id", rec.RoundID, "tier", tier.Name,
		"cost", rec.Cost, "reward", rec.Reward, "balance", balance)

	return &SpinResult{
		RoundID:    rec.RoundID,
		Tier:       tier.Name,
		TierIndex:  s.tierIndex(tier.Name),
		Draw:       draw,
		Cost:       rec.Cost,
		Reward:     rec.Reward,
		NetGain:    rec.NetGain(),
		NewBalance: balance,
	}, nil
}

// refused reports the balance as it stood when the commit guard said no.
func (s *SpinService) refused(ctx context.Context, userID int64) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return domain.ErrInsufficientBalance
	}
	return &InsufficientBalanceError{Required: s.wheel.Cost, Current: u.Balance}
}

func (s *SpinService) History(ctx context.Context, userID int64, limit int) ([]domain.SpinRecord, error) {
	return s.store.ListSpins(ctx, userID, limit)
}

func (s *SpinService) tierIndex(name string) int {
	for i, t := range s.wheel.Tiers {
		if t.Name == name {
			return i
		}
	}
	return -1
}
