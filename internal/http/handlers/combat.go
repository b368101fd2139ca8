package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type AttackRequest struct {
	TargetID int64 `json:"target_id" binding:"required,gt=0"`
}

type RevengeRequest struct {
	TargetID             int64  `json:"target_id" binding:"required,gt=0"`
	SourceNotificationID *int64 `json:"source_notification_id" binding:"omitempty,gt=0"`
}

func (h *Handler) Attack(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req AttackRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Combat.Attack(c.Request.Context(), userID, req.TargetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Revenge(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req RevengeRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Combat.Revenge(c.Request.Context(), userID, req.TargetID, req.SourceNotificationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Battles(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	logs, err := h.Combat.History(c.Request.Context(), userID, listLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"battles": logs})
}

func (h *Handler) PvpLeaderboard(c *gin.Context) {
	entries, err := h.Combat.Leaderboard(c.Request.Context(), listLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
