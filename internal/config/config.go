package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"telegram_rewards/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string
	LogLevel    string
	LogJSON     bool
	AutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Per-IP API limit and per-user limit on economy actions
	APIRateLimit   int
	APIRateWindow  int
	GameRateLimit  int
	GameRateWindow int

	BotToken         string
	AdminTelegramIDs []int64 // добавить в env tg id админов бота
	AdminBotEnabled  bool
	AdminAPIKey      string
	AllowedOrigin    string

	// Economy
	Location           *time.Location
	WithdrawMin        int64
	WithdrawMax        int64
	WithdrawMaxPending int
	SpinCost           int64
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse(os.Getenv)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// Parse builds a Config from an env lookup function.
func Parse(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		AppPort:            or(getenv("APP_PORT"), "8080"),
		DatabaseURL:        getenv("DATABASE_URL"),
		JWTSecret:          getenv("JWT_SECRET"),
		LogLevel:           or(getenv("LOG_LEVEL"), "info"),
		LogJSON:            getenv("LOG_JSON") == "true",
		AutoMigrate:        getenv("AUTO_MIGRATE") == "true",
		RedisAddr:          getenv("REDIS_ADDR"),
		RedisPassword:      getenv("REDIS_PASSWORD"),
		RedisDB:            positiveInt(getenv("REDIS_DB"), 0),
		APIRateLimit:       positiveInt(getenv("API_RATE_LIMIT"), 60),
		APIRateWindow:      positiveInt(getenv("API_RATE_WINDOW_SECONDS"), 60),
		GameRateLimit:      positiveInt(getenv("GAME_RATE_LIMIT"), 30), // макс действий за ->
		GameRateWindow:     positiveInt(getenv("GAME_RATE_WINDOW"), 60), // -> 60 секунд
		BotToken:           getenv("BOT_TOKEN"),
		AdminBotEnabled:    getenv("ADMIN_BOT_ENABLED") == "true",
		AdminAPIKey:        getenv("ADMIN_API_KEY"),
		AllowedOrigin:      getenv("ALLOWED_ORIGIN"),
		WithdrawMin:        positiveInt64(getenv("WITHDRAW_MIN"), 10000),
		WithdrawMax:        positiveInt64(getenv("WITHDRAW_MAX"), 1000000),
		WithdrawMaxPending: positiveInt(getenv("WITHDRAW_MAX_PENDING"), 3),
		SpinCost:           positiveInt64(getenv("SPIN_COST"), 500),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if cfg.AdminBotEnabled && cfg.BotToken == "" {
		return nil, errors.New("ADMIN_BOT_ENABLED requires BOT_TOKEN")
	}
	if cfg.WithdrawMin > cfg.WithdrawMax {
		return nil, fmt.Errorf("WITHDRAW_MIN %d exceeds WITHDRAW_MAX %d", cfg.WithdrawMin, cfg.WithdrawMax)
	}

	loc, err := time.LoadLocation(or(getenv("ECONOMY_TIMEZONE"), "UTC"))
	if err != nil {
		return nil, fmt.Errorf("ECONOMY_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	// Проверка тг id админов !! ЧЕРЕЗ ЗАПЯТУЮ В ENV !!
	if s := getenv("ADMIN_TELEGRAM_IDS"); s != "" {
		for _, idStr := range strings.Split(s, ",") {
			idStr = strings.TrimSpace(idStr)
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
				cfg.AdminTelegramIDs = append(cfg.AdminTelegramIDs, id)
			}
		}
	}

	return cfg, nil
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func positiveInt(v string, def int) int {
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return def
}

func positiveInt64(v string, def int64) int64 {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
		return n
	}
	return def
}
