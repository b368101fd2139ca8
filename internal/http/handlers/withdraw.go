package handlers

import (
	"net/http"
	"strings"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Withdraw(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.WithdrawRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Withdrawals.Submit(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"withdrawal_id": res.Withdrawal.ID,
		"status":        res.Withdrawal.Status,
		"new_balance":   res.NewBalance,
		"withdrawal":    res.Withdrawal,
	})
}

func (h *Handler) WithdrawalHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.Withdrawals.History(c.Request.Context(), userID, listLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	limits := h.Withdrawals.Limits()
	c.JSON(http.StatusOK, gin.H{
		"withdrawals": list,
		"limits": gin.H{
			"min":         limits.Min,
			"max":         limits.Max,
			"max_pending": limits.MaxPending,
		},
	})
}

type ProcessRequest struct {
	Action string `json:"action" binding:"required"`
	Note   string `json:"note" binding:"max=500"`
}

// ProcessWithdrawal is the admin decision endpoint.
func (h *Handler) ProcessWithdrawal(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ProcessRequest
	if !bindJSON(c, &req) {
		return
	}
	action := domain.WithdrawAction(strings.ToUpper(strings.TrimSpace(req.Action)))
	w, err := h.Withdrawals.Process(c.Request.Context(), id, action, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     w.Status,
		"refunded":   w.Status == domain.WithdrawalStatusFailed,
		"withdrawal": w,
	})
}

func (h *Handler) PendingWithdrawals(c *gin.Context) {
	list, err := h.Withdrawals.Pending(c.Request.Context(), listLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.Stats.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
