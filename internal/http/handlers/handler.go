package handlers

import (
	"context"
	"net/http"
	"strconv"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/game"
	"telegram_rewards/internal/http/middleware"
	"telegram_rewards/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type Accounts interface {
	GetByTgID(ctx context.Context, tgID int64) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

type Profiles interface {
	Profile(ctx context.Context, userID int64) (*service.Profile, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	History(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error)
}

type Spinner interface {
	Spin(ctx context.Context, userID int64) (*service.SpinResult, error)
	Wheel() *game.Wheel
	History(ctx context.Context, userID int64, limit int) ([]domain.SpinRecord, error)
}

type Farmer interface {
	Status(ctx context.Context, userID int64) (game.FarmingStatus, error)
	Start(ctx context.Context, userID int64) (game.FarmingStatus, error)
	Claim(ctx context.Context, userID int64) (*service.FarmingClaimResult, error)
}

type CheckIns interface {
	Status(ctx context.Context, userID int64) (*service.CheckInStatus, error)
	CheckIn(ctx context.Context, userID int64) (*service.CheckInResult, error)
}

type Fighter interface {
	Attack(ctx context.Context, attackerID, targetID int64) (*service.AttackResult, error)
	Revenge(ctx context.Context, attackerID, targetID int64, sourceNotificationID *int64) (*service.AttackResult, error)
	History(ctx context.Context, userID int64, limit int) ([]domain.BattleLog, error)
	Leaderboard(ctx context.Context, limit int) ([]service.LeaderboardEntry, error)
}

type Withdrawals interface {
	Submit(ctx context.Context, userID int64, req service.WithdrawRequest) (*service.WithdrawResult, error)
	Process(ctx context.Context, id int64, action domain.WithdrawAction, note string) (*domain.Withdrawal, error)
	History(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error)
	Pending(ctx context.Context, limit int) ([]domain.Withdrawal, error)
	Limits() service.WithdrawalLimits
}

type Inbox interface {
	Unread(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
}

type StatsSource interface {
	GetStats(ctx context.Context) (*service.Stats, error)
}

// Handler serves the user-facing economy API.
type Handler struct {
	BotToken    string
	Accounts    Accounts
	Profiles    Profiles
	Spins       Spinner
	Farming     Farmer
	CheckIns    CheckIns
	Combat      Fighter
	Withdrawals Withdrawals
	Inbox       Inbox
	Stats       StatsSource
}

// currentUser returns the id set by middleware.JWT or writes 401.
func currentUser(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
		return 0, false
	}
	return id, true
}

// listLimit reads ?limit= clamped to [1, maxListLimit].
func listLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return min(n, maxListLimit)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "code": "invalid_request"})
		return 0, false
	}
	return id, true
}
