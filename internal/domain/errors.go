package domain

import "errors"

// Store-level outcomes shared by every store implementation.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConflict            = errors.New("concurrent update, retry")
	ErrAlreadyFarming      = errors.New("already farming")
	ErrNotFarming          = errors.New("not farming")
	ErrItemMissing         = errors.New("item not owned")
	ErrDuplicateReference  = errors.New("duplicate external reference")
	ErrTooManyPending      = errors.New("too many pending withdrawals")
	ErrAlreadyProcessed    = errors.New("withdrawal already processed")
)
