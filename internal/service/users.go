package service

import (
	"context"
	"errors"
	"time"

	"telegram_rewards/internal/domain"
)

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

type userGetter interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

func loadActiveUser(ctx context.Context, store userGetter, userID int64) (*domain.User, error) {
	u, err := store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if u.IsBanned {
		return nil, ErrUserBanned
	}
	return u, nil
}
