package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AdminDB is the part of the pool admin queries need
type AdminDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AdminService provides admin statistics and operations
type AdminService struct {
	db  AdminDB
	loc *time.Location
	now Clock
}

// NewAdminService creates a new admin service. "Today" counters follow the
// same calendar as check-ins.
func NewAdminService(db AdminDB, loc *time.Location, now Clock) *AdminService {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &AdminService{db: db, loc: loc, now: now}
}

// Stats represents economy statistics
type Stats struct {
	TotalUsers       int64 `json:"total_users"`
	BannedUsers      int64 `json:"banned_users"`
	CirculatingCoins int64 `json:"circulating_coins"`
	FarmingNow       int64 `json:"farming_now"`
	SpinsToday       int64 `json:"spins_today"`
	BattlesToday     int64 `json:"battles_today"`
	CheckInsToday    int64 `json:"checkins_today"`
	PendingWithdraws int64 `json:"pending_withdraws"`
	PendingAmount    int64 `json:"pending_amount"`
	TotalWithdrawn   int64 `json:"total_withdrawn"`
}

// GetStats returns economy statistics
func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	today := game.StartOfDay(s.now(), s.loc)

	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_banned),
		       COALESCE(SUM(balance), 0),
		       COUNT(*) FILTER (WHERE farming_started_at IS NOT NULL),
		       COUNT(*) FILTER (WHERE last_check_in >= $1)
		FROM users
	`, today).Scan(&stats.TotalUsers, &stats.BannedUsers, &stats.CirculatingCoins, &stats.FarmingNow, &stats.CheckInsToday)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}

	_ = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM spins WHERE created_at >= $1`, today).Scan(&stats.SpinsToday)
	_ = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM battle_logs WHERE created_at >= $1`, today).Scan(&stats.BattlesToday)

	// Pending withdrawals
	_ = s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM withdrawals WHERE status IN ('PENDING', 'PROCESSING')
	`).Scan(&stats.PendingWithdraws, &stats.PendingAmount)

	// Total withdrawn
	_ = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM withdrawals WHERE status = 'COMPLETED'
	`).Scan(&stats.TotalWithdrawn)

	return stats, nil
}

// UserInfo represents user information for admin
type UserInfo struct {
	ID             int64     `json:"id"`
	TgID           int64     `json:"tg_id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	Balance        int64     `json:"balance"`
	IsBanned       bool      `json:"is_banned"`
	Streak         int       `json:"streak"`
	PvpWins        int64     `json:"pvp_wins"`
	PvpTotalStolen int64     `json:"pvp_total_stolen"`
	CreatedAt      time.Time `json:"created_at"`
}

// FindUser returns user info by ID, telegram ID or username
func (s *AdminService) FindUser(ctx context.Context, identifier string) (*UserInfo, error) {
	var u UserInfo
	err := s.db.QueryRow(ctx, `
		SELECT id, tg_id, COALESCE(username, ''), COALESCE(first_name, ''), balance, is_banned,
		       streak, pvp_wins, pvp_total_stolen, created_at
		FROM users
		WHERE id::text = $1 OR tg_id::text = $1 OR LOWER(username) = LOWER($1)
		LIMIT 1
	`, identifier).Scan(&u.ID, &u.TgID, &u.Username, &u.FirstName, &u.Balance, &u.IsBanned,
		&u.Streak, &u.PvpWins, &u.PvpTotalStolen, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// SetBanned bans or unbans a user. Banned users cannot act or be attacked.
func (s *AdminService) SetBanned(ctx context.Context, userID int64, banned bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET is_banned = $2 WHERE id = $1`, userID, banned)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GrantItem adds consumable items to a user's inventory
func (s *AdminService) GrantItem(ctx context.Context, userID int64, code string, qty int64) (int64, error) {
	kind, err := domain.ParseItemKind(code)
	if err != nil {
		return 0, &ValidationError{Code: "invalid_item", Reason: err.Error()}
	}
	if qty <= 0 {
		return 0, &ValidationError{Code: "invalid_quantity", Reason: "quantity must be positive"}
	}

	var total int64
	err = s.db.QueryRow(ctx, `
		INSERT INTO user_items (user_id, item, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item) DO UPDATE SET quantity = user_items.quantity + EXCLUDED.quantity
		RETURNING quantity
	`, userID, kind.String(), qty).Scan(&total)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return total, nil
}
