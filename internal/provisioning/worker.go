package provisioning

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/equinor/fusion-app-resources-sub003/internal/requests"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultConcurrency  = 4
	pollBatchSize       = 50
)

// Worker drains the provisioning job queue. Jobs run concurrently up to the
// configured limit; each job's outcome is written back to its queue row.
type Worker struct {
	service     *Service
	repo        requests.Repository
	logger      *zap.Logger
	interval    time.Duration
	concurrency int
}

func NewWorker(service *Service, repo requests.Repository, logger *zap.Logger) *Worker {
	return &Worker{
		service:     service,
		repo:        repo,
		logger:      logger,
		interval:    defaultPollInterval,
		concurrency: defaultConcurrency,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Provisioning worker started",
		zap.Duration("interval", w.interval),
		zap.Int("concurrency", w.concurrency))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Provisioning worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	jobs, err := w.repo.PendingProvisioningJobs(ctx, pollBatchSize)
	if err != nil {
		w.logger.Error("Failed to poll provisioning queue", zap.Error(err))
		return
	}
	if len(jobs) == 0 {
		return
	}

	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup
	for _, job := range jobs {
		if err := w.repo.MarkJob(ctx, job.ID, requests.JobProcessing, ""); err != nil {
			w.logger.Error("Failed to claim provisioning job",
				zap.String("jobId", job.ID.String()), zap.Error(err))
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(job requests.ProvisioningJob) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := w.service.Provision(ctx, job); err != nil {
				if markErr := w.repo.MarkJob(ctx, job.ID, requests.JobFailed, err.Error()); markErr != nil {
					w.logger.Error("Failed to mark provisioning job failed",
						zap.String("jobId", job.ID.String()), zap.Error(markErr))
				}
				return
			}
			if err := w.repo.MarkJob(ctx, job.ID, requests.JobCompleted, ""); err != nil {
				w.logger.Error("Failed to mark provisioning job completed",
					zap.String("jobId", job.ID.String()), zap.Error(err))
			}
		}(job)
	}
	wg.Wait()
}
