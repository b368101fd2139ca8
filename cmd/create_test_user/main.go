package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"telegram_rewards/internal/db"
	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/repository"
	"telegram_rewards/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	tgID := flag.Int64("tg", 1234567890, "telegram id of the test user")
	username := flag.String("username", "testuser", "username for a new user")
	shields := flag.Int64("shields", 1, "shields to grant")
	bombs := flag.Int64("bombs", 1, "logic bombs to grant")
	flag.Parse()

	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		logger.Fatal("connect failed", "error", err)
	}
	defer pool.Close()

	store := repository.NewStore(pool)

	u, err := store.Users.GetByTgID(ctx, *tgID)
	switch {
	case err == nil:
		logger.Info("user already exists", "id", u.ID)
	case errors.Is(err, domain.ErrNotFound):
		u = &domain.User{TgID: *tgID, Username: *username, FirstName: "Tester"}
		if err := store.Users.Create(ctx, u); err != nil {
			logger.Fatal("create user failed", "error", err)
		}
		logger.Info("user created", "id", u.ID)
	default:
		logger.Fatal("lookup failed", "error", err)
	}

	for kind, qty := range map[domain.ItemKind]int64{domain.ItemShield: *shields, domain.ItemLogicBomb: *bombs} {
		if qty <= 0 {
			continue
		}
		if err := store.Items.Grant(ctx, u.ID, kind, qty); err != nil {
			logger.Fatal("grant failed", "item", kind.String(), "error", err)
		}
	}

	service.InitJWT(secret)
	token, err := service.GenerateJWT(u.ID)
	if err != nil {
		logger.Fatal("failed to generate token", "error", err)
	}
	fmt.Println(token)
}
