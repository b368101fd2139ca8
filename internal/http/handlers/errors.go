package handlers

import (
	"errors"
	"net/http"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var businessErrors = []errorMapping{
	{service.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{service.ErrUserBanned, http.StatusForbidden, "user_banned"},
	{service.ErrSelfAttack, http.StatusBadRequest, "target_unavailable"},
	{service.ErrTargetUnavailable, http.StatusBadRequest, "target_unavailable"},
	{service.ErrRevengeNotAllowed, http.StatusForbidden, "revenge_not_allowed"},
	{service.ErrAlreadyCheckedIn, http.StatusConflict, "already_checked_in"},
	{service.ErrNoteRequired, http.StatusBadRequest, "note_required"},
	{service.ErrWithdrawalNotFound, http.StatusNotFound, "withdrawal_not_found"},
	{service.ErrInvalidAction, http.StatusBadRequest, "invalid_action"},
	{domain.ErrNotFarming, http.StatusConflict, "not_farming"},
	{domain.ErrAlreadyFarming, http.StatusConflict, "already_farming"},
	{domain.ErrDuplicateReference, http.StatusConflict, "duplicate_reference"},
	{domain.ErrTooManyPending, http.StatusConflict, "too_many_pending"},
	{domain.ErrAlreadyProcessed, http.StatusConflict, "already_processed"},
	{domain.ErrInsufficientBalance, http.StatusBadRequest, "insufficient_balance"},
	{domain.ErrConflict, http.StatusConflict, "conflict"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
}

// respondError renders a business error as {error, code, ...context}.
// Anything unrecognised is logged and hidden behind 500 internal.
func respondError(c *gin.Context, err error) {
	var insufficient *service.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "insufficient balance",
			"code":     "insufficient_balance",
			"required": insufficient.Required,
			"current":  insufficient.Current,
		})
		return
	}

	var cooldown *service.CooldownError
	if errors.As(err, &cooldown) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":                 cooldown.Error(),
			"code":                  "cooldown",
			"cooldown_remaining_ms": cooldown.Remaining.Milliseconds(),
		})
		return
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Reason, "code": verr.Code})
		return
	}

	for _, m := range businessErrors {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": m.err.Error(), "code": m.code})
			return
		}
	}

	logger.WithContext(c.Request.Context()).Error("request failed",
		"path", c.FullPath(),
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
}

// bindJSON decodes the body and reports binding failures as 400. A failed
// tonaddr rule is reported as invalid_address.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "tonaddr" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address", "code": "invalid_address"})
				return false
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": verrs[0].Field() + " failed " + verrs[0].Tag(), "code": "invalid_request"})
		return false
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "bad request", "code": "invalid_request"})
	return false
}
