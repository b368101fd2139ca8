package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/metrics"
	"telegram_rewards/internal/ton"
)

type WithdrawalStore interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	SubmitWithdrawal(ctx context.Context, sub *domain.WithdrawalSubmit) (int64, error)
	ProcessWithdrawal(ctx context.Context, d domain.WithdrawalDecision) (*domain.ProcessedWithdrawal, error)
	GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error)
	ListWithdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error)
	ListPendingWithdrawals(ctx context.Context, limit int) ([]domain.Withdrawal, error)
}

// WithdrawalLimits bound a single request and the number of open ones.
type WithdrawalLimits struct {
	Min        int64
	Max        int64
	MaxPending int
}

var DefaultWithdrawalLimits = WithdrawalLimits{Min: 10000, Max: 1000000, MaxPending: 3}

type WithdrawalService struct {
	store    WithdrawalStore
	limits   WithdrawalLimits
	now      Clock
	notifier Notifier
}

func NewWithdrawalService(store WithdrawalStore, limits WithdrawalLimits, now Clock, notifier Notifier) *WithdrawalService {
	if now == nil {
		now = time.Now
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &WithdrawalService{store: store, limits: limits, now: now, notifier: notifier}
}

// WithdrawRequest is the user's payout request. TxHash is the external
// reference and must be globally unique.
type WithdrawRequest struct {
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	WalletAddress string `json:"wallet_address" binding:"required,tonaddr"`
	TxHash        string `json:"tx_hash" binding:"required,max=128"`
}

type WithdrawResult struct {
	Withdrawal *domain.Withdrawal `json:"withdrawal"`
	NewBalance int64              `json:"new_balance"`
}

func (s *WithdrawalService) Limits() WithdrawalLimits {
	return s.limits
}

// Submit debits the amount and records a PENDING request atomically.
func (s *WithdrawalService) Submit(ctx context.Context, userID int64, req WithdrawRequest) (*WithdrawResult, error) {
	if verr := s.validate(&req); verr != nil {
		metrics.Action("withdraw", verr.Code)
		return nil, verr
	}

	user, err := loadActiveUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	if user.Balance < req.Amount {
		metrics.Action("withdraw", "insufficient_balance")
		return nil, &InsufficientBalanceError{Required: req.Amount, Current: user.Balance}
	}

	sub := &domain.WithdrawalSubmit{
		Withdrawal: domain.Withdrawal{
			UserID:        userID,
			Amount:        req.Amount,
			WalletAddress: req.WalletAddress,
			TxHash:        req.TxHash,
		},
		MaxPending: s.limits.MaxPending,
		Notification: domain.Notification{
			UserID:  userID,
			Type:    domain.NotificationWithdrawalCreated,
			Message: fmt.Sprintf("Withdrawal of %d coins is pending review", req.Amount),
			Payload: map[string]interface{}{"amount": req.Amount},
		},
	}

	balance, err := s.store.SubmitWithdrawal(ctx, sub)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientBalance):
			metrics.Action("withdraw", "insufficient_balance")
			return nil, &InsufficientBalanceError{Required: req.Amount, Current: user.Balance}
		case errors.Is(err, domain.ErrDuplicateReference):
			metrics.Action("withdraw", "duplicate_reference")
		case errors.Is(err, domain.ErrTooManyPending):
			metrics.Action("withdraw", "too_many_pending")
		case errors.Is(err, domain.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	w := &sub.Withdrawal
	metrics.Action("withdraw", "ok")
	metrics.Withdrawals.WithLabelValues(string(domain.WithdrawalStatusPending)).Inc()
	logger.WithContext(ctx).Info("withdrawal submitted",
		"user_id", userID, "withdrawal_id", w.ID, "amount", w.Amount, "balance", balance)

	s.notifier.NotifyUser(ctx, user.TgID, sub.Notification)
	s.notifier.NotifyAdminsNewWithdrawal(ctx, user, w)

	return &WithdrawResult{Withdrawal: w, NewBalance: balance}, nil
}

// Process applies an admin decision to a PENDING request. Rejection refunds
// the full amount and requires a note. A request is processed at most once.
func (s *WithdrawalService) Process(ctx context.Context, id int64, action domain.WithdrawAction, note string) (*domain.Withdrawal, error) {
	note = strings.TrimSpace(note)
	switch action {
	case domain.WithdrawApprove:
	case domain.WithdrawReject:
		if note == "" {
			return nil, ErrNoteRequired
		}
	default:
		return nil, ErrInvalidAction
	}

	notify := func(w *domain.Withdrawal) domain.Notification {
		if w.Status == domain.WithdrawalStatusCompleted {
			return domain.Notification{
				UserID:  w.UserID,
				Type:    domain.NotificationWithdrawalDone,
				Message: fmt.Sprintf("Withdrawal #%d of %d coins was approved", w.ID, w.Amount),
				Payload: map[string]interface{}{"withdrawal_id": w.ID, "amount": w.Amount},
			}
		}
		return domain.Notification{
			UserID:  w.UserID,
			Type:    domain.NotificationWithdrawalFailed,
			Message: fmt.Sprintf("Withdrawal #%d was rejected: %s. %d coins returned to your balance", w.ID, w.AdminNote, w.Amount),
			Payload: map[string]interface{}{"withdrawal_id": w.ID, "amount": w.Amount, "note": w.AdminNote},
		}
	}

	out, err := s.store.ProcessWithdrawal(ctx, domain.WithdrawalDecision{
		WithdrawalID: id,
		Action:       action,
		Note:         note,
		ProcessedAt:  s.now(),
		Notify:       notify,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, ErrWithdrawalNotFound
		case errors.Is(err, domain.ErrAlreadyProcessed):
			metrics.Action("withdraw_process", "already_processed")
		}
		return nil, err
	}
	w := out.Withdrawal

	metrics.Action("withdraw_process", "ok")
	metrics.Withdrawals.WithLabelValues(string(w.Status)).Inc()
	if w.Status == domain.WithdrawalStatusCompleted {
		metrics.Burned("withdrawal", w.Amount)
	}
	logger.WithContext(ctx).Info("withdrawal processed",
		"withdrawal_id", w.ID, "user_id", w.UserID, "status", w.Status, "amount", w.Amount)

	if out.Notification != nil {
		if owner, err := s.store.GetUser(ctx, w.UserID); err == nil {
			s.notifier.NotifyUser(ctx, owner.TgID, *out.Notification)
		}
	}
	return w, nil
}

func (s *WithdrawalService) Get(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	w, err := s.store.GetWithdrawal(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrWithdrawalNotFound
	}
	return w, err
}

func (s *WithdrawalService) History(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	return s.store.ListWithdrawals(ctx, userID, limit)
}

func (s *WithdrawalService) Pending(ctx context.Context, limit int) ([]domain.Withdrawal, error) {
	return s.store.ListPendingWithdrawals(ctx, limit)
}

func (s *WithdrawalService) validate(req *WithdrawRequest) *ValidationError {
	req.TxHash = strings.TrimSpace(req.TxHash)
	if req.TxHash == "" {
		return &ValidationError{Code: "invalid_reference", Reason: "tx_hash is required"}
	}
	if req.Amount < s.limits.Min || req.Amount > s.limits.Max {
		return &ValidationError{
			Code:   "amount_out_of_range",
			Reason: fmt.Sprintf("amount must be between %d and %d", s.limits.Min, s.limits.Max),
		}
	}
	addr, err := ton.NormalizeAddress(req.WalletAddress)
	if err != nil {
		return &ValidationError{Code: "invalid_address", Reason: "invalid wallet address"}
	}
	req.WalletAddress = addr
	return nil
}
