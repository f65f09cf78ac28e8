package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/equinor/fusion-app-resources-sub003/internal/lineorg"
	"github.com/equinor/fusion-app-resources-sub003/internal/requests"
	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

const summaryFanout = 10

// Service assembles the weekly department summaries, renders the workbook and
// notifies resource owners.
type Service struct {
	readModel *ReadModel
	lineorg   lineorg.Client
	notifier  requests.Notifier
	logger    *zap.Logger
	outputDir string
}

func NewService(readModel *ReadModel, lineorgClient lineorg.Client, notifier requests.Notifier, outputDir string, logger *zap.Logger) *Service {
	return &Service{
		readModel: readModel,
		lineorg:   lineorgClient,
		notifier:  notifier,
		logger:    logger,
		outputDir: outputDir,
	}
}

// RunWeekly builds the summary for the week ending now, writes the workbook
// and notifies each department's resource owner. Department summaries are
// computed concurrently; one failing department does not abort the run.
func (s *Service) RunWeekly(ctx context.Context) error {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -7)

	summaries, err := s.BuildSummaries(ctx, start, end)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		s.logger.Info("No departments with request activity, skipping weekly report")
		return nil
	}

	path, err := s.writeWorkbook(summaries, end)
	if err != nil {
		return err
	}
	s.logger.Info("Weekly summary workbook written",
		zap.String("path", path),
		zap.Int("departments", len(summaries)))

	for _, summary := range summaries {
		s.notifyOwner(ctx, summary)
	}
	return nil
}

// BuildSummaries aggregates every active department for the given period,
// fanning out with bounded concurrency.
func (s *Service) BuildSummaries(ctx context.Context, start, end time.Time) ([]*DepartmentSummary, error) {
	departments, err := s.readModel.ActiveDepartments(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		summaries []*DepartmentSummary
	)
	sem := make(chan struct{}, summaryFanout)
	for _, dept := range departments {
		wg.Add(1)
		sem <- struct{}{}
		go func(dept string) {
			defer wg.Done()
			defer func() { <-sem }()

			summary, err := s.readModel.Summarize(ctx, dept, start, end)
			if err != nil {
				s.logger.Error("Failed to summarize department",
					zap.String("department", dept), zap.Error(err))
				return
			}
			mu.Lock()
			summaries = append(summaries, summary)
			mu.Unlock()
		}(dept)
	}
	wg.Wait()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Department < summaries[j].Department
	})
	return summaries, nil
}

// Workbook renders the summaries as a spreadsheet, one row per department.
func Workbook(summaries []*DepartmentSummary) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Summary"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Department", "New", "Pending", "Approved", "Rejected",
		"Completed", "Provisioning errors", "Expiring within 90 days", "Active workload",
	}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, summary := range summaries {
		values := []any{
			summary.Department,
			summary.NewRequests,
			summary.PendingRequests,
			summary.ApprovedRequests,
			summary.RejectedRequests,
			summary.CompletedRequests,
			summary.ProvisioningErrors,
			summary.ExpiringInstances,
			summary.TotalWorkload,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func (s *Service) writeWorkbook(summaries []*DepartmentSummary, end time.Time) (string, error) {
	f, err := Workbook(summaries)
	if err != nil {
		return "", fmt.Errorf("failed to build summary workbook: %w", err)
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(s.outputDir, fmt.Sprintf("department-summary-%s.xlsx", end.Format("2006-01-02")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to write summary workbook: %w", err)
	}
	return path, nil
}

func (s *Service) notifyOwner(ctx context.Context, summary *DepartmentSummary) {
	owner, err := s.lineorg.GetResourceOwner(ctx, summary.Department)
	if err != nil {
		s.logger.Warn("Failed to resolve resource owner for weekly report",
			zap.String("department", summary.Department), zap.Error(err))
		return
	}
	if owner == nil {
		return
	}
	message := fmt.Sprintf(
		"Weekly summary for %s: %d new, %d pending, %d approved, %d completed, %d provisioning errors.",
		summary.Department, summary.NewRequests, summary.PendingRequests,
		summary.ApprovedRequests, summary.CompletedRequests, summary.ProvisioningErrors)
	s.notifier.Notify(ctx,
		workflow.Actor{ID: owner.AzureUniqueID, Name: owner.Name, Mail: owner.Mail},
		"Weekly personnel request summary", message, "WEEKLY_SUMMARY")
}
