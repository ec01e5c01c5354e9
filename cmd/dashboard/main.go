package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/config"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/repository"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/server"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting dashboard...")

	cfgPath := "configs/config.yml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repository.MigrateDB(db, logger)

	events := repository.NewProcessedEventRepository(db, logger)
	logs := repository.NewIngestionLogRepository(db, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.NewServer(events, logs, logger)
	if err := srv.Run(ctx, cfg.Dashboard.Port); err != nil {
		logger.Fatal("Dashboard server failed", zap.Error(err))
	}

	logger.Info("Dashboard stopped.")
}
