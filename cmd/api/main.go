package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	v1 "github.com/equinor/fusion-app-resources-sub003/api/v1"
	"github.com/equinor/fusion-app-resources-sub003/internal/config"
	"github.com/equinor/fusion-app-resources-sub003/internal/lineorg"
	"github.com/equinor/fusion-app-resources-sub003/internal/notifications"
	"github.com/equinor/fusion-app-resources-sub003/internal/orgchart"
	"github.com/equinor/fusion-app-resources-sub003/internal/people"
	"github.com/equinor/fusion-app-resources-sub003/internal/requests"
)

func main() {
	// .env is optional, real deployments use environment variables.
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	repo := requests.NewGormRepository(db)
	if err := repo.Migrate(); err != nil {
		logger.Fatal("Failed to migrate request tables", zap.Error(err))
	}

	orgClient := orgchart.NewHTTPClient(cfg.OrgChart.BaseURL, cfg.OrgChart.Token, logger)
	peopleClient := people.NewHTTPClient(cfg.People.BaseURL, cfg.People.Token, logger)
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
	notifier := notifications.NewService(db, sender, logger)
	if err := notifier.Migrate(); err != nil {
		logger.Fatal("Failed to migrate notification tables", zap.Error(err))
	}

	service := requests.NewService(repo, orgClient, peopleClient, lineorgClient, notifier, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	v1.Register(router, &v1.API{
		Requests:      requests.NewHandler(service, repo, logger),
		Notifications: notifications.NewHandler(notifier),
		JWTSecret:     cfg.Security.JWTSecret,
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()
	logger.Info("Server started", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exiting")
}
