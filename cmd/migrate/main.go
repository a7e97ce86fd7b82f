package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"goldledger/internal/auth"
	"goldledger/internal/config"
	"goldledger/internal/db"
	"goldledger/internal/logging"
	"goldledger/internal/validator"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|reset|seed-user")
	dir := flag.String("dir", "", "goose migrations directory (defaults to MIGRATIONS_DIR)")
	userID := flag.String("user", "", "4-digit business user id (seed-user)")
	pin := flag.String("pin", "", "PIN for the business user (seed-user)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, cleanup, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()
	if *dir == "" {
		*dir = cfg.MigrationsDir
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	if *cmd == "seed-user" {
		if err := seedUser(ctx, database, *userID, *pin); err != nil {
			logger.Fatal("seed user failed", zap.Error(err))
		}
		logger.Info("business user saved", zap.String("user_id", *userID))
		return
	}

	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatal("set goose dialect", zap.Error(err))
	}
	if err := goose.RunContext(ctx, *cmd, database.DB, *dir, flag.Args()...); err != nil {
		logger.Fatal("goose command failed", zap.String("cmd", *cmd), zap.String("dir", *dir), zap.Error(err))
	}
	logger.Info("migrations done", zap.String("cmd", *cmd), zap.String("dir", *dir))
}

func seedUser(ctx context.Context, database *sqlx.DB, userID, pin string) error {
	if err := validator.ValidateUserID(userID); err != nil {
		return err
	}
	if err := validator.ValidatePIN(pin); err != nil {
		return err
	}
	hash, err := auth.HashPIN(pin)
	if err != nil {
		return err
	}
	_, err = database.ExecContext(ctx, `
		INSERT INTO custom_users (user_id, pin_hash) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET pin_hash = EXCLUDED.pin_hash
	`, userID, hash)
	return err
}
