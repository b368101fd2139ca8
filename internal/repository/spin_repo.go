package repository

import (
	"context"

	"telegram_rewards/internal/domain"
)

type SpinRepository struct {
	db DB
}

func NewSpinRepository(db DB) *SpinRepository {
	return &SpinRepository{db: db}
}

// GetByUserID returns the user's recent spins, newest first
func (r *SpinRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.SpinRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, round_id, user_id, tier, draw, cost, reward, created_at
		 FROM spins
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.SpinRecord
	for rows.Next() {
		var s domain.SpinRecord
		if err := rows.Scan(&s.ID, &s.RoundID, &s.UserID, &s.Tier, &s.Draw, &s.Cost, &s.Reward, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func insertSpin(ctx context.Context, q querier, s *domain.SpinRecord) error {
	return q.QueryRow(ctx,
		`INSERT INTO spins (round_id, user_id, tier, draw, cost, reward)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		s.RoundID, s.UserID, s.Tier, s.Draw, s.Cost, s.Reward,
	).Scan(&s.ID, &s.CreatedAt)
}
