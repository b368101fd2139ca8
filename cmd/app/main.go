package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"telegram_rewards/internal/bot"
	"telegram_rewards/internal/config"
	"telegram_rewards/internal/db"
	"telegram_rewards/internal/game"
	httpServer "telegram_rewards/internal/http"
	"telegram_rewards/internal/http/handlers"
	"telegram_rewards/internal/http/middleware"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/repository"
	"telegram_rewards/internal/service"
	"telegram_rewards/internal/ws"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	if cfg.AutoMigrate {
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal("migrations failed", "error", err)
		}
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", "error", err)
	}
	defer pool.Close()

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer middleware.CloseRedis()

	if err := handlers.RegisterValidators(); err != nil {
		logger.Fatal("validator registration failed", "error", err)
	}

	store := repository.NewStore(pool)
	adminService := service.NewAdminService(pool, cfg.Location, nil)

	var notifier service.Notifier = service.LogNotifier{}
	var api *tgbotapi.BotAPI
	var tgNotifier *bot.Notifier
	if cfg.BotToken != "" {
		api, err = bot.NewAPI(cfg.BotToken)
		if err != nil {
			logger.Error("telegram bot unavailable, notifications go to log", "error", err)
		} else {
			tgNotifier = bot.NewNotifier(api, cfg.AdminTelegramIDs)
			notifier = tgNotifier
		}
	}

	hub := ws.NewHub()
	notifier = ws.NewNotifier(hub, notifier)

	rng := game.CryptoRNG{}
	withdrawals := service.NewWithdrawalService(store, service.WithdrawalLimits{
		Min:        cfg.WithdrawMin,
		Max:        cfg.WithdrawMax,
		MaxPending: cfg.WithdrawMaxPending,
	}, nil, notifier)

	h := &handlers.Handler{
		BotToken:    cfg.BotToken,
		Accounts:    store.Users,
		Profiles:    service.NewBalanceService(store),
		Spins:       service.NewSpinService(store, game.NewWheel(cfg.SpinCost), rng),
		Farming:     service.NewFarmingService(store, nil),
		CheckIns:    service.NewCheckInService(store, cfg.Location, nil),
		Combat:      service.NewCombatService(store, rng, nil, notifier),
		Withdrawals: withdrawals,
		Inbox:       service.NewNotificationService(store),
		Stats:       adminService,
	}

	var adminBot *bot.AdminBot
	if cfg.AdminBotEnabled && api != nil {
		adminBot = bot.NewAdminBot(api, adminService, withdrawals, cfg.AdminTelegramIDs)
		go adminBot.Start()
	}

	gin.SetMode(gin.ReleaseMode)
	r := httpServer.NewRouter()
	r.Use(cors())
	health := handlers.NewHealthHandler(pool, version,
		handlers.Check{Name: "rate_limiter", Optional: true, Probe: middleware.RateLimitBackend},
		handlers.Check{Name: "websocket", Optional: true, Probe: func(context.Context) (string, error) {
			return strconv.Itoa(hub.Connections()) + " connections", nil
		}},
		handlers.PendingWithdrawalsCheck(withdrawals),
	)
	httpServer.RegisterRoutes(r, h, health, hub, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	if adminBot != nil {
		adminBot.Stop()
	}
	if tgNotifier != nil && !tgNotifier.Wait(5*time.Second) {
		logger.Warn("some telegram notifications were not delivered before exit")
	}

	logger.Info("server exited")
}

// cors reflects the request origin; the WebApp frontend is served from another domain.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
