package repository

import (
	"context"
	"errors"

	"telegram_rewards/internal/domain"

	"github.com/jackc/pgx/v5"
)

const withdrawalColumns = `id, user_id, amount, wallet_address, tx_hash, status,
	COALESCE(admin_note, ''), created_at, processed_at`

type WithdrawalRepository struct {
	db DB
}

func NewWithdrawalRepository(db DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// GetByID retrieves withdrawal by ID
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	return getWithdrawal(ctx, r.db, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id)
}

// GetByUserID retrieves recent withdrawals for a user
func (r *WithdrawalRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWithdrawals(rows)
}

// GetPending retrieves withdrawals awaiting an admin decision, oldest first
func (r *WithdrawalRepository) GetPending(ctx context.Context, limit int) ([]domain.Withdrawal, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals
		 WHERE status IN ('PENDING', 'PROCESSING')
		 ORDER BY created_at ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWithdrawals(rows)
}

func txHashExists(ctx context.Context, q querier, txHash string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM withdrawals WHERE tx_hash = $1)`, txHash).Scan(&exists)
	return exists, err
}

func countActiveWithdrawals(ctx context.Context, q querier, userID int64) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM withdrawals WHERE user_id = $1 AND status IN ('PENDING', 'PROCESSING')`,
		userID).Scan(&n)
	return n, err
}

func insertWithdrawal(ctx context.Context, q querier, w *domain.Withdrawal) error {
	err := q.QueryRow(ctx,
		`INSERT INTO withdrawals (user_id, amount, wallet_address, tx_hash, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		w.UserID, w.Amount, w.WalletAddress, w.TxHash, w.Status,
	).Scan(&w.ID, &w.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateReference
	}
	return err
}

// finishWithdrawal moves a PENDING withdrawal to its final status. It
// fails with ErrAlreadyProcessed if someone else got there first.
func finishWithdrawal(ctx context.Context, q querier, w *domain.Withdrawal) error {
	tag, err := q.Exec(ctx,
		`UPDATE withdrawals SET status = $2, admin_note = NULLIF($3, ''), processed_at = $4
		 WHERE id = $1 AND status = 'PENDING'`,
		w.ID, w.Status, w.AdminNote, w.ProcessedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyProcessed
	}
	return nil
}

func getWithdrawal(ctx context.Context, q querier, sql string, args ...any) (*domain.Withdrawal, error) {
	w, err := scanWithdrawal(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Amount,
		&w.WalletAddress,
		&w.TxHash,
		&w.Status,
		&w.AdminNote,
		&w.CreatedAt,
		&w.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanWithdrawals(rows pgx.Rows) ([]domain.Withdrawal, error) {
	var withdrawals []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, *w)
	}
	return withdrawals, rows.Err()
}
