package handlers

import (
	"errors"
	"net/http"
	"time"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/service"
	"telegram_rewards/internal/telegram"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData string `json:"init_data" binding:"required,max=4096"`
}

// Auth exchanges signed WebApp init data for a bearer token, creating the
// user on first login.
func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if !bindJSON(c, &req) {
		return
	}

	values, err := telegram.ValidateInitData(req.InitData, h.BotToken, time.Now())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or stale telegram data", "code": "unauthorized"})
		return
	}
	tgUser, err := telegram.ParseUser(values)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user", "code": "invalid_request"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.Accounts.GetByTgID(ctx, tgUser.ID)
	if errors.Is(err, domain.ErrNotFound) {
		user = &domain.User{
			TgID:      tgUser.ID,
			Username:  tgUser.Username,
			FirstName: tgUser.FirstName,
		}
		if err = h.Accounts.Create(ctx, user); err == nil {
			logger.WithContext(ctx).Info("user registered", "user_id", user.ID, "tg_id", user.TgID)
		}
	}
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := service.GenerateJWT(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":         user.ID,
			"tg_id":      user.TgID,
			"username":   user.Username,
			"first_name": user.FirstName,
			"balance":    user.Balance,
		},
	})
}
