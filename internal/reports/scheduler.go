package reports

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Weekly schedule: Monday 06:00 UTC.
const weeklySchedule = "0 6 * * 1"

// Scheduler triggers the weekly report on a cron schedule.
type Scheduler struct {
	service *Service
	logger  *zap.Logger
	cron    *cron.Cron
}

func NewScheduler(service *Service, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		service: service,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start registers the weekly job and starts the cron loop. Stops when the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(weeklySchedule, func() {
		if err := s.service.RunWeekly(ctx); err != nil {
			s.logger.Error("Weekly report run failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Report scheduler started", zap.String("schedule", weeklySchedule))

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("Report scheduler stopped")
	return nil
}
