package repository

import (
	"context"
	"testing"
	"time"

	"telegram_rewards/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func TestStartFarmingSetsAnchorOnlyWhenIdle(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectExec(`UPDATE users SET farming_started_at = \$2\s+WHERE id = \$1 AND farming_started_at IS NULL`).
		WithArgs(int64(7), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.StartFarming(ctx, 7, now))

	mock.ExpectExec(`UPDATE users SET farming_started_at`).
		WithArgs(int64(7), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE id = \$1\)`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	assert.ErrorIs(t, store.StartFarming(ctx, 7, now), domain.ErrAlreadyFarming)

	mock.ExpectExec(`UPDATE users SET farming_started_at`).
		WithArgs(int64(8), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(8)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	assert.ErrorIs(t, store.StartFarming(ctx, 8, now), domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitSpinAppliesNetPostingWithCostFloor(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1\s+WHERE id = \$2 AND balance >= \$3`).
		WithArgs(int64(500), int64(7), int64(500)).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(1500)))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(7), domain.TxTypeSpin, int64(500), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), created))
	mock.ExpectQuery(`INSERT INTO spins`).
		WithArgs("round-1", int64(7), "BIG", 80, int64(500), int64(1000)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))
	mock.ExpectCommit()

	rec := &domain.SpinRecord{RoundID: "round-1", UserID: 7, Tier: "BIG", Draw: 80, Cost: 500, Reward: 1000}
	bal, err := store.CommitSpin(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), bal)
	assert.Equal(t, int64(11), rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitSpinInsufficientRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1`).
		WithArgs(int64(-500), int64(7), int64(500)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := store.CommitSpin(context.Background(), &domain.SpinRecord{UserID: 7, Cost: 500})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimFarmingLostRace(t *testing.T) {
	store, mock := newMockStore(t)
	started := time.Now().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1, farming_started_at = NULL\s+WHERE id = \$2 AND farming_started_at = \$3`).
		WithArgs(int64(60), int64(7), started).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := store.ClaimFarming(context.Background(), domain.FarmingClaim{UserID: 7, StartedAt: started, Reward: 60})
	assert.ErrorIs(t, err, domain.ErrNotFarming)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitCheckInWithShield(t *testing.T) {
	store, mock := newMockStore(t)
	prev := time.Now().Add(-72 * time.Hour)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE user_items SET quantity = quantity - 1\s+WHERE user_id = \$1 AND item = \$2 AND quantity >= 1`).
		WithArgs(int64(7), "streak_shield").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1, streak = \$2, last_check_in = \$3`).
		WithArgs(int64(750), 5, now, int64(7), &prev, 4).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(1750)))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(7), domain.TxTypeCheckIn, int64(750), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), now))
	mock.ExpectCommit()

	bal, err := store.CommitCheckIn(context.Background(), domain.CheckIn{
		UserID: 7, PrevCheckIn: &prev, PrevStreak: 4, Now: now,
		NewStreak: 5, Reward: 750, UseStreakShield: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1750), bal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitCheckInShieldAlreadySpent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE user_items SET quantity = quantity - 1`).
		WithArgs(int64(7), "streak_shield").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := store.CommitCheckIn(context.Background(), domain.CheckIn{UserID: 7, UseStreakShield: true})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitWithdrawalDuplicateReference(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM withdrawals WHERE tx_hash = \$1\)`).
		WithArgs("hash-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := store.SubmitWithdrawal(context.Background(), &domain.WithdrawalSubmit{
		Withdrawal: domain.Withdrawal{UserID: 7, Amount: 10000, TxHash: "hash-1"},
		MaxPending: 3,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitWithdrawalPendingCap(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("hash-2").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM withdrawals WHERE user_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	_, err := store.SubmitWithdrawal(context.Background(), &domain.WithdrawalSubmit{
		Withdrawal: domain.Withdrawal{UserID: 7, Amount: 10000, TxHash: "hash-2"},
		MaxPending: 3,
	})
	assert.ErrorIs(t, err, domain.ErrTooManyPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertWithdrawalMapsUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO withdrawals`).
		WithArgs(int64(7), int64(10000), "0:ab", "hash-3", domain.WithdrawalStatusPending).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = insertWithdrawal(context.Background(), mock, &domain.Withdrawal{
		UserID: 7, Amount: 10000, WalletAddress: "0:ab", TxHash: "hash-3", Status: domain.WithdrawalStatusPending,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateReference)
}

func TestFinishWithdrawalOnlyOnce(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Now()
	w := &domain.Withdrawal{ID: 5, Status: domain.WithdrawalStatusFailed, AdminNote: "fraud", ProcessedAt: &at}

	mock.ExpectExec(`UPDATE withdrawals SET status = \$2, admin_note = NULLIF\(\$3, ''\), processed_at = \$4\s+WHERE id = \$1 AND status = 'PENDING'`).
		WithArgs(int64(5), domain.WithdrawalStatusFailed, "fraud", &at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, finishWithdrawal(context.Background(), mock, w), domain.ErrAlreadyProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasRevengeRight(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT EXISTS \(\s+SELECT 1 FROM battle_logs`).
		WithArgs(int64(2), int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := hasRevengeRight(context.Background(), mock, 2, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMarkNotificationReadOwnedOnly(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE notifications SET is_read = TRUE WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(17), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.MarkNotificationRead(ctx, 3, 17))

	mock.ExpectExec(`UPDATE notifications SET is_read = TRUE`).
		WithArgs(int64(17), int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, store.MarkNotificationRead(ctx, 4, 17), domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

var userCols = []string{"id", "tg_id", "username", "first_name", "balance", "is_banned",
	"farming_started_at", "farming_rate", "last_check_in", "streak", "last_heist_at",
	"pvp_wins", "pvp_total_stolen", "created_at"}

func addUserRow(rows *pgxmock.Rows, id, balance int64) *pgxmock.Rows {
	return rows.AddRow(id, id*100, "u", "", balance, false, nil, "1", nil, 0, nil, int64(0), int64(0), time.Now())
}

func expectBattleLock(mock pgxmock.PgxPoolIface, attacker, defender int64, revenge bool) {
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM users WHERE id = ANY\(\$1\) ORDER BY id FOR UPDATE`).
		WithArgs([]int64{attacker, defender}).
		WillReturnRows(addUserRow(addUserRow(pgxmock.NewRows(userCols), attacker, 1000), defender, 5000))
	mock.ExpectQuery(`SELECT item, quantity FROM user_items WHERE user_id = \$1 AND quantity > 0 FOR UPDATE`).
		WithArgs(defender).
		WillReturnRows(pgxmock.NewRows([]string{"item", "quantity"}).AddRow("shield", int64(1)))
	if revenge {
		mock.ExpectQuery(`SELECT EXISTS \(\s+SELECT 1 FROM battle_logs`).
			WithArgs(attacker, defender).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	}
}

func winCommit(attacker, defender int64, heist time.Time, source *int64) domain.BattleDecider {
	return func(state *domain.BattleState) (*domain.BattleCommit, error) {
		return &domain.BattleCommit{
			Log:     domain.BattleLog{AttackerID: attacker, DefenderID: defender, Amount: 400, Result: domain.BattleWin, IsRevenge: true, CreatedAt: heist},
			HeistAt: heist,
			Stolen:  400,
			Postings: []domain.Posting{
				{UserID: defender, Delta: -400, Type: domain.TxTypePvpStolen},
				{UserID: attacker, Delta: 400, Type: domain.TxTypePvpSteal},
			},
			Notifications: []domain.Notification{{UserID: defender, Type: domain.NotificationPvpAttacked, Message: "robbed"}},
			MarkRead:      source,
		}, nil
	}
}

func TestResolveBattleCommitsEveryRowInOneTx(t *testing.T) {
	store, mock := newMockStore(t)
	heist := time.Now()
	source := int64(17)

	expectBattleLock(mock, 1, 2, true)
	mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1\s+WHERE id = \$2 AND balance >= \$3`).
		WithArgs(int64(-400), int64(2), int64(400)).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(4600)))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(2), domain.TxTypePvpStolen, int64(-400), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), heist))
	mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1`).
		WithArgs(int64(400), int64(1), int64(0)).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(1400)))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(1), domain.TxTypePvpSteal, int64(400), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(2), heist))
	mock.ExpectExec(`UPDATE users SET last_heist_at = \$2`).
		WithArgs(int64(1), heist, int64(1), int64(400)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO battle_logs`).
		WithArgs(int64(1), int64(2), int64(400), domain.BattleWin, true, pgxmock.AnyArg(), heist).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(31)))
	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(int64(2), domain.NotificationPvpAttacked, "robbed", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(41), heist))
	mock.ExpectExec(`UPDATE notifications SET is_read = TRUE WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(17), int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	var seen *domain.BattleState
	decide := winCommit(1, 2, heist, &source)
	commit, err := store.ResolveBattle(context.Background(),
		domain.BattleRequest{AttackerID: 1, DefenderID: 2, Revenge: true, SourceNotificationID: &source},
		func(state *domain.BattleState) (*domain.BattleCommit, error) {
			seen = state
			return decide(state)
		})
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.True(t, seen.HasRevengeRight)
	assert.Equal(t, int64(5000), seen.Defender.Balance)
	assert.Equal(t, int64(1), seen.DefenderItems[domain.ItemShield])
	assert.Equal(t, int64(1400), commit.AttackerBalance)
	assert.Equal(t, int64(31), commit.Log.ID)
	assert.Equal(t, int64(41), commit.Notifications[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveBattleRollsBackWhenSecondPostingRefused(t *testing.T) {
	store, mock := newMockStore(t)
	heist := time.Now()

	expectBattleLock(mock, 1, 2, false)
	mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1`).
		WithArgs(int64(-400), int64(2), int64(400)).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(4600)))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(2), domain.TxTypePvpStolen, int64(-400), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), heist))
	mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1`).
		WithArgs(int64(400), int64(1), int64(0)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE id = \$1\)`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := store.ResolveBattle(context.Background(),
		domain.BattleRequest{AttackerID: 1, DefenderID: 2}, winCommit(1, 2, heist, nil))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var withdrawalCols = []string{"id", "user_id", "amount", "wallet_address", "tx_hash", "status",
	"admin_note", "created_at", "processed_at"}

func expectLockedWithdrawal(mock pgxmock.PgxPoolIface, status domain.WithdrawalStatus) {
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM withdrawals WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(withdrawalCols).
			AddRow(int64(5), int64(7), int64(200000), "0:ab", "hash-5", status, "", time.Now(), nil))
}

func rejectDecision(at time.Time) domain.WithdrawalDecision {
	return domain.WithdrawalDecision{
		WithdrawalID: 5,
		Action:       domain.WithdrawReject,
		Note:         "fraud",
		ProcessedAt:  at,
		Notify: func(w *domain.Withdrawal) domain.Notification {
			return domain.Notification{UserID: w.UserID, Type: domain.NotificationWithdrawalFailed, Message: "rejected"}
		},
	}
}

func TestProcessWithdrawalRejectRefundsInSameTx(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Now()

	expectLockedWithdrawal(mock, domain.WithdrawalStatusPending)
	mock.ExpectExec(`UPDATE withdrawals SET status = \$2`).
		WithArgs(int64(5), domain.WithdrawalStatusFailed, "fraud", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1`).
		WithArgs(int64(200000), int64(7), int64(0)).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(500000)))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(7), domain.TxTypeWithdrawalRefund, int64(200000), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), at))
	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(int64(7), domain.NotificationWithdrawalFailed, "rejected", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(12), at))
	mock.ExpectCommit()

	out, err := store.ProcessWithdrawal(context.Background(), rejectDecision(at))
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusFailed, out.Withdrawal.Status)
	assert.Equal(t, "fraud", out.Withdrawal.AdminNote)
	require.NotNil(t, out.Notification)
	assert.Equal(t, int64(12), out.Notification.ID)
	assert.Equal(t, at, out.Notification.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessWithdrawalRefundFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Now()

	expectLockedWithdrawal(mock, domain.WithdrawalStatusPending)
	mock.ExpectExec(`UPDATE withdrawals SET status = \$2`).
		WithArgs(int64(5), domain.WithdrawalStatusFailed, "fraud", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1`).
		WithArgs(int64(200000), int64(7), int64(0)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE id = \$1\)`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := store.ProcessWithdrawal(context.Background(), rejectDecision(at))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessWithdrawalOnlyFromPending(t *testing.T) {
	store, mock := newMockStore(t)

	expectLockedWithdrawal(mock, domain.WithdrawalStatusProcessing)
	mock.ExpectRollback()

	_, err := store.ProcessWithdrawal(context.Background(), rejectDecision(time.Now()))
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
