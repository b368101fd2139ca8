package main

import (
	"flag"
	"os"

	"telegram_rewards/internal/db"
	"telegram_rewards/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	down := flag.Int("down", 0, "roll back N migrations instead of applying")
	flag.Parse()

	_ = godotenv.Load()
	logger.Init(os.Getenv("LOG_LEVEL"), false)

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	if *down > 0 {
		if err := db.RollbackMigrations(dsn, *down); err != nil {
			logger.Fatal("rollback failed", "error", err)
		}
		return
	}

	if err := db.RunMigrations(dsn); err != nil {
		logger.Fatal("migration failed", "error", err)
	}
}
