package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/equinor/fusion-app-resources-sub003/internal/config"
	"github.com/equinor/fusion-app-resources-sub003/internal/lineorg"
	"github.com/equinor/fusion-app-resources-sub003/internal/notifications"
	"github.com/equinor/fusion-app-resources-sub003/internal/reports"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Reporting reads go through sqlx; the notification log still uses gorm.
	sqlxDB, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer sqlxDB.Close()

	gormDB, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	lineorgClient := lineorg.NewHTTPClient(cfg.LineOrg.BaseURL, cfg.LineOrg.Token, logger)

	var sender notifications.Sender
	if cfg.SMTP.Host != "" {
		sender = notifications.NewSMTPSender(notifications.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	notifier := notifications.NewService(gormDB, sender, logger)

	readModel := reports.NewReadModel(sqlxDB)
	service := reports.NewService(readModel, lineorgClient, notifier, cfg.Reports.OutputDir, logger)
	scheduler := reports.NewScheduler(service, logger)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("Report scheduler failed", zap.Error(err))
	}
}
