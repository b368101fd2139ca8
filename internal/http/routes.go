package http

import (
	"time"

	"telegram_rewards/internal/config"
	"telegram_rewards/internal/http/handlers"
	"telegram_rewards/internal/http/middleware"
	"telegram_rewards/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the engine with the shared middleware chain.
func NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.Metrics())
	return r
}

// RegisterRoutes mounts the API. A nil hub leaves /ws unregistered.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, hub *ws.Hub, cfg *config.Config) {
	// Health checks (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiWindow := time.Duration(cfg.APIRateWindow) * time.Second
	gameWindow := time.Duration(cfg.GameRateWindow) * time.Second

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, apiWindow))

	v1.POST("/auth", h.Auth)
	v1.GET("/wheel", h.WheelInfo)
	v1.GET("/leaderboard/pvp", h.PvpLeaderboard)

	auth := v1.Group("", middleware.JWT())
	auth.GET("/me", h.Me)
	auth.GET("/balance", h.Balance)
	auth.GET("/transactions", h.Transactions)
	auth.GET("/spins", h.SpinHistory)
	auth.GET("/farming", h.FarmingStatus)
	auth.GET("/checkin", h.CheckInStatus)
	auth.GET("/battles", h.Battles)
	auth.GET("/withdrawals", h.WithdrawalHistory)
	auth.GET("/notifications", h.Notifications)
	auth.POST("/notifications/:id/read", h.MarkNotificationRead)

	// state-changing economy actions, limited per user
	gameRL := middleware.GameRateLimit(cfg.GameRateLimit, gameWindow)
	auth.POST("/spin", gameRL, h.Spin)
	auth.POST("/farming", gameRL, h.FarmingAction)
	auth.POST("/checkin", gameRL, h.CheckIn)
	auth.POST("/attack", gameRL, middleware.GameRateLimitByType("attack", 10, time.Minute), h.Attack)
	auth.POST("/revenge", gameRL, middleware.GameRateLimitByType("attack", 10, time.Minute), h.Revenge)
	auth.POST("/withdraw", middleware.GameRateLimitByType("withdraw", 5, time.Hour), h.Withdraw)

	// live notification stream for the WebApp
	if hub != nil {
		r.GET("/ws", ws.HandleWS(hub, cfg.AllowedOrigin))
	}

	admin := v1.Group("/admin", middleware.AdminKey(cfg.AdminAPIKey))
	admin.GET("/stats", h.AdminStats)
	admin.GET("/withdrawals/pending", h.PendingWithdrawals)
	admin.POST("/withdrawals/:id/process", h.ProcessWithdrawal)
}
