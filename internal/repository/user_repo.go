package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram_rewards/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const userColumns = `id, tg_id, COALESCE(username, ''), COALESCE(first_name, ''), balance, is_banned,
	farming_started_at, farming_rate::text, last_check_in, streak, last_heist_at,
	pvp_wins, pvp_total_stolen, created_at`

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return getUser(ctx, r.db, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	return getUser(ctx, r.db, `SELECT `+userColumns+` FROM users WHERE tg_id = $1`, tgID)
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	// Начальный баланс для новых пользователей
	const initialBalance = 1000

	return r.db.QueryRow(ctx,
		`INSERT INTO users (tg_id, username, first_name, balance)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, balance, created_at`,
		u.TgID, u.Username, u.FirstName, initialBalance,
	).Scan(&u.ID, &u.Balance, &u.CreatedAt)
}

// StartFarming moves a user from idle to farming. It only ever sets the
// anchor when none is stored, so a second start cannot reset it.
func (r *UserRepository) StartFarming(ctx context.Context, userID int64, now time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET farming_started_at = $2
		 WHERE id = $1 AND farming_started_at IS NULL`,
		userID, now,
	)
	if err != nil {
		return fmt.Errorf("start farming: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if err := userExists(ctx, r.db, userID); err != nil {
		return err
	}
	return domain.ErrAlreadyFarming
}

// GetTopRaiders returns users ordered by total stolen
func (r *UserRepository) GetTopRaiders(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE NOT is_banned AND pvp_wins > 0
		 ORDER BY pvp_total_stolen DESC, pvp_wins DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

func getUser(ctx context.Context, q querier, sql string, args ...any) (*domain.User, error) {
	u, err := scanUser(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var rate string
	if err := row.Scan(
		&u.ID,
		&u.TgID,
		&u.Username,
		&u.FirstName,
		&u.Balance,
		&u.IsBanned,
		&u.FarmingStartedAt,
		&rate,
		&u.LastCheckIn,
		&u.Streak,
		&u.LastHeistAt,
		&u.PvpWins,
		&u.PvpTotalStolen,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("parse farming rate %q: %w", rate, err)
	}
	u.FarmingRate = parsed
	return &u, nil
}

func userExists(ctx context.Context, q querier, userID int64) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}
