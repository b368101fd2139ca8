package service

import (
	"context"
	"errors"

	"telegram_rewards/internal/domain"
)

type BalanceStore interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetInventory(ctx context.Context, userID int64) (domain.Inventory, error)
	ListTransactions(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error)
}

// BalanceService serves balance reads and the transaction history
type BalanceService struct {
	store BalanceStore
}

// NewBalanceService creates a new balance service
func NewBalanceService(store BalanceStore) *BalanceService {
	return &BalanceService{store: store}
}

// Profile is the /me payload
type Profile struct {
	ID             int64            `json:"id"`
	TgID           int64            `json:"tg_id"`
	Name           string           `json:"name"`
	Balance        int64            `json:"balance"`
	Streak         int              `json:"streak"`
	FarmingRate    string           `json:"farming_rate"`
	IsFarming      bool             `json:"is_farming"`
	PvpWins        int64            `json:"pvp_wins"`
	PvpTotalStolen int64            `json:"pvp_total_stolen"`
	Items          map[string]int64 `json:"items"`
}

// GetBalance returns user's current balance
func (s *BalanceService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return u.Balance, nil
}

func (s *BalanceService) Profile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := loadActiveUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	inv, err := s.store.GetInventory(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make(map[string]int64, len(inv))
	for kind, qty := range inv {
		items[kind.String()] = qty
	}
	return &Profile{
		ID:             u.ID,
		TgID:           u.TgID,
		Name:           u.DisplayName(),
		Balance:        u.Balance,
		Streak:         u.Streak,
		FarmingRate:    u.FarmingRate.String(),
		IsFarming:      u.IsFarming(),
		PvpWins:        u.PvpWins,
		PvpTotalStolen: u.PvpTotalStolen,
		Items:          items,
	}, nil
}

// History returns the user's ledger, newest first
func (s *BalanceService) History(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	return s.store.ListTransactions(ctx, userID, limit)
}
