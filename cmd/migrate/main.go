package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/gurkanbulca/streamline/internal/config"
	"github.com/gurkanbulca/streamline/internal/database"
)

func main() {
	timeout := flag.Duration("timeout", time.Minute, "migration timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Log, os.Stdout)

	db, err := database.Open(cfg.ToDatabaseConfig(), logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger.Info("running database migrations")
	if err := database.Migrate(ctx, db); err != nil {
		logger.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("migrations completed")
}
