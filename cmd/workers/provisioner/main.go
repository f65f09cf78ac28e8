package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/equinor/fusion-app-resources-sub003/internal/config"
	"github.com/equinor/fusion-app-resources-sub003/internal/lineorg"
	"github.com/equinor/fusion-app-resources-sub003/internal/notifications"
	"github.com/equinor/fusion-app-resources-sub003/internal/orgchart"
	"github.com/equinor/fusion-app-resources-sub003/internal/people"
	"github.com/equinor/fusion-app-resources-sub003/internal/provisioning"
	"github.com/equinor/fusion-app-resources-sub003/internal/requests"
	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

func main() {
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
	orgClient := orgchart.NewHTTPClient(cfg.OrgChart.BaseURL, cfg.OrgChart.Token, logger)
	peopleClient := people.NewHTTPClient(cfg.People.BaseURL, cfg.People.Token, logger)
	lineorgClient := lineorg.NewHTTPClient(cfg.LineOrg.BaseURL, cfg.LineOrg.Token, logger)
	notifier := notifications.NewService(db, nil, logger)

	reqService := requests.NewService(repo, orgClient, peopleClient, lineorgClient, notifier, logger)

	actorID, err := uuid.Parse(cfg.ServiceActor.ID)
	if err != nil {
		logger.Fatal("SERVICE_ACTOR_ID must be a uuid", zap.Error(err))
	}
	serviceActor := workflow.Actor{ID: actorID, Name: cfg.ServiceActor.Name}

	provService := provisioning.NewService(orgClient, reqService, repo, serviceActor, logger)
	worker := provisioning.NewWorker(provService, repo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	worker.Run(ctx)
}
