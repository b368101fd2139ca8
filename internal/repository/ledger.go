package repository

import (
	"context"
	"errors"
	"fmt"

	"telegram_rewards/internal/domain"

	"github.com/jackc/pgx/v5"
)

// applyPosting executes one guarded balance change and records it in the
// transactions ledger. It returns the balance after the change.
func (s *Store) applyPosting(ctx context.Context, tx pgx.Tx, p domain.Posting) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx,
		`UPDATE users SET balance = balance + $1
		 WHERE id = $2 AND balance >= $3
		 RETURNING balance`,
		p.Delta, p.UserID, p.Floor(),
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the user is gone or the guard refused the change
			if err := userExists(ctx, tx, p.UserID); err != nil {
				return 0, err
			}
			return 0, domain.ErrInsufficientBalance
		}
		return 0, fmt.Errorf("apply posting: %w", err)
	}

	if err := s.Transactions.CreateWithTx(ctx, tx, &domain.Transaction{
		UserID: p.UserID,
		Type:   p.Type,
		Amount: p.Delta,
		Meta:   p.Meta,
	}); err != nil {
		return 0, fmt.Errorf("record transaction: %w", err)
	}
	return newBalance, nil
}

// applyPostings runs postings in order and returns the last balance seen per user.
func (s *Store) applyPostings(ctx context.Context, tx pgx.Tx, postings []domain.Posting) (map[int64]int64, error) {
	balances := make(map[int64]int64, len(postings))
	for _, p := range postings {
		if p.Delta == 0 && p.Require == 0 {
			continue
		}
		bal, err := s.applyPosting(ctx, tx, p)
		if err != nil {
			return nil, err
		}
		balances[p.UserID] = bal
	}
	return balances, nil
}
