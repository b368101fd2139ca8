package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram_rewards/internal/domain"

	"github.com/jackc/pgx/v5"
)

// Store bundles the repositories and runs every multi-row economy change
// as a single database transaction.
type Store struct {
	db DB

	Users         *UserRepository
	Items         *ItemRepository
	Spins         *SpinRepository
	Battles       *BattleRepository
	Withdrawals   *WithdrawalRepository
	Notifications *NotificationRepository
	Transactions  *TransactionRepository
}

func NewStore(db DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepository(db),
		Items:         NewItemRepository(db),
		Spins:         NewSpinRepository(db),
		Battles:       NewBattleRepository(db),
		Withdrawals:   NewWithdrawalRepository(db),
		Notifications: NewNotificationRepository(db),
		Transactions:  NewTransactionRepository(db),
	}
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.Users.GetByID(ctx, id)
}

func (s *Store) ListNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	return s.Notifications.ListUnread(ctx, userID, limit)
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	return s.Notifications.MarkRead(ctx, userID, notificationID)
}

func (s *Store) GetInventory(ctx context.Context, userID int64) (domain.Inventory, error) {
	return s.Items.GetInventory(ctx, userID)
}

func (s *Store) ListSpins(ctx context.Context, userID int64, limit int) ([]domain.SpinRecord, error) {
	return s.Spins.GetByUserID(ctx, userID, limit)
}

func (s *Store) ListBattles(ctx context.Context, userID int64, limit int) ([]domain.BattleLog, error) {
	return s.Battles.GetByUserID(ctx, userID, limit)
}

func (s *Store) TopRaiders(ctx context.Context, limit int) ([]domain.User, error) {
	return s.Users.GetTopRaiders(ctx, limit)
}

func (s *Store) ListTransactions(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	return s.Transactions.GetByUserID(ctx, userID, limit)
}

func (s *Store) GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	return s.Withdrawals.GetByID(ctx, id)
}

func (s *Store) ListWithdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	return s.Withdrawals.GetByUserID(ctx, userID, limit)
}

func (s *Store) ListPendingWithdrawals(ctx context.Context, limit int) ([]domain.Withdrawal, error) {
	return s.Withdrawals.GetPending(ctx, limit)
}

func (s *Store) StartFarming(ctx context.Context, userID int64, now time.Time) error {
	return s.Users.StartFarming(ctx, userID, now)
}

// CommitSpin debits the cost and credits the reward as one net posting and
// appends the spin record. The user must hold at least the cost beforehand.
func (s *Store) CommitSpin(ctx context.Context, rec *domain.SpinRecord) (int64, error) {
	var balance int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		balance, err = s.applyPosting(ctx, tx, domain.Posting{
			UserID:  rec.UserID,
			Delta:   rec.NetGain(),
			Require: rec.Cost,
			Type:    domain.TxTypeSpin,
			Meta: map[string]interface{}{
				"round_id": rec.RoundID,
				"tier":     rec.Tier,
				"cost":     rec.Cost,
				"reward":   rec.Reward,
			},
		})
		if err != nil {
			return err
		}
		return insertSpin(ctx, tx, rec)
	})
	return balance, err
}

// ClaimFarming credits accrued yield and clears the anchor. The anchor must
// still equal c.StartedAt, so two concurrent claims cannot both pay out.
func (s *Store) ClaimFarming(ctx context.Context, c domain.FarmingClaim) (int64, error) {
	var balance int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE users SET balance = balance + $1, farming_started_at = NULL
			 WHERE id = $2 AND farming_started_at = $3
			 RETURNING balance`,
			c.Reward, c.UserID, c.StartedAt,
		).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFarming
		}
		if err != nil {
			return fmt.Errorf("claim farming: %w", err)
		}
		if c.Reward == 0 {
			return nil
		}
		return s.Transactions.CreateWithTx(ctx, tx, &domain.Transaction{
			UserID: c.UserID,
			Type:   domain.TxTypeFarmingClaim,
			Amount: c.Reward,
			Meta:   map[string]interface{}{"minutes": c.Minutes},
		})
	})
	return balance, err
}

// CommitCheckIn applies a decided check-in. It only succeeds if the stored
// check-in state still matches what the decision was made from.
func (s *Store) CommitCheckIn(ctx context.Context, c domain.CheckIn) (int64, error) {
	var balance int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if c.UseStreakShield {
			if err := consumeItem(ctx, tx, domain.ItemUse{UserID: c.UserID, Kind: domain.ItemStreakShield}); err != nil {
				if errors.Is(err, domain.ErrItemMissing) {
					return domain.ErrConflict
				}
				return err
			}
		}

		err := tx.QueryRow(ctx,
			`UPDATE users SET balance = balance + $1, streak = $2, last_check_in = $3
			 WHERE id = $4 AND last_check_in IS NOT DISTINCT FROM $5 AND streak = $6
			 RETURNING balance`,
			c.Reward, c.NewStreak, c.Now, c.UserID, c.PrevCheckIn, c.PrevStreak,
		).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("commit check-in: %w", err)
		}

		return s.Transactions.CreateWithTx(ctx, tx, &domain.Transaction{
			UserID: c.UserID,
			Type:   domain.TxTypeCheckIn,
			Amount: c.Reward,
			Meta: map[string]interface{}{
				"streak":      c.NewStreak,
				"shield_used": c.UseStreakShield,
			},
		})
	})
	return balance, err
}

// ResolveBattle locks both users, loads what the outcome depends on, lets
// decide pick the outcome and applies the resulting commit atomically.
func (s *Store) ResolveBattle(ctx context.Context, req domain.BattleRequest, decide domain.BattleDecider) (*domain.BattleCommit, error) {
	var commit *domain.BattleCommit
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		state, err := s.lockBattleState(ctx, tx, req)
		if err != nil {
			return err
		}

		commit, err = decide(state)
		if err != nil {
			return err
		}

		for _, use := range commit.ItemUses {
			if err := consumeItem(ctx, tx, use); err != nil {
				return err
			}
		}

		balances, err := s.applyPostings(ctx, tx, commit.Postings)
		if err != nil {
			return err
		}
		commit.AttackerBalance = state.Attacker.Balance
		if bal, ok := balances[req.AttackerID]; ok {
			commit.AttackerBalance = bal
		}

		var wins int64
		if commit.Log.Result == domain.BattleWin {
			wins = 1
		}
		if _, err := tx.Exec(ctx,
			`UPDATE users SET last_heist_at = $2,
			        pvp_wins = pvp_wins + $3,
			        pvp_total_stolen = pvp_total_stolen + $4
			 WHERE id = $1`,
			req.AttackerID, commit.HeistAt, wins, commit.Stolen,
		); err != nil {
			return fmt.Errorf("update attacker: %w", err)
		}

		if err := insertBattleLog(ctx, tx, &commit.Log); err != nil {
			return fmt.Errorf("insert battle log: %w", err)
		}

		for i := range commit.Notifications {
			if err := insertNotification(ctx, tx, &commit.Notifications[i]); err != nil {
				return fmt.Errorf("insert notification: %w", err)
			}
		}

		if commit.MarkRead != nil {
			if err := markRead(ctx, tx, *commit.MarkRead, req.AttackerID); err != nil {
				return fmt.Errorf("mark notification read: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commit, nil
}

func (s *Store) lockBattleState(ctx context.Context, tx pgx.Tx, req domain.BattleRequest) (*domain.BattleState, error) {
	// Lock rows in id order so two opposing attacks cannot deadlock
	rows, err := tx.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		[]int64{req.AttackerID, req.DefenderID},
	)
	if err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}
	state := &domain.BattleState{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		switch u.ID {
		case req.AttackerID:
			state.Attacker = u
		case req.DefenderID:
			state.Defender = u
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if state.Attacker == nil || state.Defender == nil {
		return nil, domain.ErrNotFound
	}

	state.DefenderItems, err = loadInventory(ctx, tx, req.DefenderID, true)
	if err != nil {
		return nil, fmt.Errorf("load defender items: %w", err)
	}

	if req.Revenge {
		state.HasRevengeRight, err = hasRevengeRight(ctx, tx, req.AttackerID, req.DefenderID)
		if err != nil {
			return nil, fmt.Errorf("check revenge right: %w", err)
		}
	}
	return state, nil
}

// SubmitWithdrawal debits the amount and records a PENDING request. It
// returns the balance after the debit.
func (s *Store) SubmitWithdrawal(ctx context.Context, sub *domain.WithdrawalSubmit) (int64, error) {
	var balance int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		w := &sub.Withdrawal

		// Serialize submissions per user so the pending cap holds
		var locked int64
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, w.UserID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		dup, err := txHashExists(ctx, tx, w.TxHash)
		if err != nil {
			return err
		}
		if dup {
			return domain.ErrDuplicateReference
		}

		active, err := countActiveWithdrawals(ctx, tx, w.UserID)
		if err != nil {
			return err
		}
		if sub.MaxPending > 0 && active >= sub.MaxPending {
			return domain.ErrTooManyPending
		}

		balance, err = s.applyPosting(ctx, tx, domain.Posting{
			UserID: w.UserID,
			Delta:  -w.Amount,
			Type:   domain.TxTypeWithdrawal,
			Meta: map[string]interface{}{
				"tx_hash":        w.TxHash,
				"wallet_address": w.WalletAddress,
			},
		})
		if err != nil {
			return err
		}

		w.Status = domain.WithdrawalStatusPending
		if err := insertWithdrawal(ctx, tx, w); err != nil {
			return err
		}

		n := sub.Notification
		if n.UserID == 0 {
			return nil
		}
		if n.Payload == nil {
			n.Payload = map[string]interface{}{}
		}
		n.Payload["withdrawal_id"] = w.ID
		if err := insertNotification(ctx, tx, &n); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		sub.Notification = n
		return nil
	})
	return balance, err
}

// ProcessWithdrawal finalizes a PENDING withdrawal. A rejection refunds
// the full amount in the same transaction.
func (s *Store) ProcessWithdrawal(ctx context.Context, d domain.WithdrawalDecision) (*domain.ProcessedWithdrawal, error) {
	var w *domain.Withdrawal
	var note *domain.Notification
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		w, err = getWithdrawal(ctx, tx,
			`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, d.WithdrawalID)
		if err != nil {
			return err
		}
		if !w.Status.Processable() {
			return domain.ErrAlreadyProcessed
		}

		processedAt := d.ProcessedAt
		w.ProcessedAt = &processedAt
		w.AdminNote = d.Note
		switch d.Action {
		case domain.WithdrawApprove:
			w.Status = domain.WithdrawalStatusCompleted
		case domain.WithdrawReject:
			w.Status = domain.WithdrawalStatusFailed
		default:
			return fmt.Errorf("unknown withdraw action %q", d.Action)
		}

		if err := finishWithdrawal(ctx, tx, w); err != nil {
			return err
		}

		if w.Status == domain.WithdrawalStatusFailed {
			if _, err := s.applyPosting(ctx, tx, domain.Posting{
				UserID: w.UserID,
				Delta:  w.Amount,
				Type:   domain.TxTypeWithdrawalRefund,
				Meta: map[string]interface{}{
					"withdrawal_id": w.ID,
					"note":          d.Note,
				},
			}); err != nil {
				return fmt.Errorf("refund: %w", err)
			}
		}

		if d.Notify != nil {
			n := d.Notify(w)
			if err := insertNotification(ctx, tx, &n); err != nil {
				return fmt.Errorf("insert notification: %w", err)
			}
			note = &n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &domain.ProcessedWithdrawal{Withdrawal: w, Notification: note}, nil
}
