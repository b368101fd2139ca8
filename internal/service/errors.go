package service

import (
	"errors"
	"fmt"
	"time"

	"telegram_rewards/internal/game"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserBanned         = errors.New("user is banned")
	ErrSelfAttack         = errors.New("cannot attack yourself")
	ErrTargetUnavailable  = errors.New("target unavailable")
	ErrRevengeNotAllowed  = errors.New("no revenge right against this user")
	ErrAlreadyCheckedIn   = game.ErrAlreadyCheckedIn
	ErrNoteRequired       = errors.New("rejection requires a note")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrInvalidAction      = errors.New("invalid action")
)

// InsufficientBalanceError carries what the action needed and what the user had.
type InsufficientBalanceError struct {
	Required int64
	Current  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %d, have %d", e.Required, e.Current)
}

// CooldownError is returned while an attack cooldown is still running.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("on cooldown for %s", e.Remaining.Round(time.Second))
}

// ValidationError wraps request input problems. Code is the machine-readable tag.
type ValidationError struct {
	Code   string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
