package repository

import (
	"context"

	"telegram_rewards/internal/domain"
)

type BattleRepository struct {
	db DB
}

func NewBattleRepository(db DB) *BattleRepository {
	return &BattleRepository{db: db}
}

// GetByUserID returns battles where the user was either side
func (r *BattleRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.BattleLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, attacker_id, defender_id, amount, result, is_revenge, roll, created_at
		 FROM battle_logs
		 WHERE attacker_id = $1 OR defender_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.BattleLog
	for rows.Next() {
		var b domain.BattleLog
		if err := rows.Scan(&b.ID, &b.AttackerID, &b.DefenderID, &b.Amount, &b.Result, &b.IsRevenge, &b.Roll, &b.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

// hasRevengeRight reports whether victim may strike back at attacker: some
// earlier non-revenge attack by attacker on victim ended WIN or SHIELDED.
func hasRevengeRight(ctx context.Context, q querier, victimID, attackerID int64) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM battle_logs
			WHERE attacker_id = $2 AND defender_id = $1
			  AND NOT is_revenge
			  AND result IN ('WIN', 'SHIELDED')
		)`, victimID, attackerID,
	).Scan(&ok)
	return ok, err
}

func insertBattleLog(ctx context.Context, q querier, b *domain.BattleLog) error {
	return q.QueryRow(ctx,
		`INSERT INTO battle_logs (attacker_id, defender_id, amount, result, is_revenge, roll, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		b.AttackerID, b.DefenderID, b.Amount, b.Result, b.IsRevenge, b.Roll, b.CreatedAt,
	).Scan(&b.ID)
}
