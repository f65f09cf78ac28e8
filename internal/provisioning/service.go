package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/equinor/fusion-app-resources-sub003/internal/orgchart"
	"github.com/equinor/fusion-app-resources-sub003/internal/requests"
	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

// Service writes approved request outcomes back into the org chart. Every run
// re-reads the live position before computing changes, so a retry after a
// transient failure reconciles against current truth instead of replaying a
// stale patch.
type Service struct {
	org      orgchart.Client
	requests *requests.Service
	repo     requests.Repository
	logger   *zap.Logger

	// serviceActor completes the provisioning workflow step; it must resolve
	// to an application account in the profile service.
	serviceActor workflow.Actor
}

func NewService(org orgchart.Client, reqService *requests.Service, repo requests.Repository, serviceActor workflow.Actor, logger *zap.Logger) *Service {
	return &Service{
		org:          org,
		requests:     reqService,
		repo:         repo,
		logger:       logger,
		serviceActor: serviceActor,
	}
}

// Provision reconciles one queued request. Failures are recorded on the
// request's provisioning status for operator diagnosis and returned to the
// worker.
func (s *Service) Provision(ctx context.Context, job requests.ProvisioningJob) error {
	var err error
	if job.Family == requests.FamilyContractor {
		err = s.provisionContractor(ctx, job)
	} else {
		err = s.provisionAllocation(ctx, job)
	}
	if err != nil {
		s.recordFailure(ctx, job, err)
		return err
	}
	return nil
}

func (s *Service) provisionAllocation(ctx context.Context, job requests.ProvisioningJob) error {
	req, err := s.repo.GetAllocation(ctx, job.RequestID)
	if err != nil {
		return err
	}
	switch req.Subtype {
	case requests.SubtypeAdjustment, requests.SubtypeChangeResource, requests.SubtypeRemoveResource:
		if err := s.ProvisionResourceOwnerRequest(ctx, req); err != nil {
			return err
		}
	default:
		if err := s.ProvisionAllocationRequest(ctx, req); err != nil {
			return err
		}
	}
	return s.requests.MarkProvisioned(ctx, requests.FamilyAllocation, req.ID, req.PositionID, s.serviceActor)
}

func (s *Service) provisionContractor(ctx context.Context, job requests.ProvisioningJob) error {
	req, err := s.repo.GetContractor(ctx, job.RequestID)
	if err != nil {
		return err
	}
	changes := map[string]any(req.ProposedChanges)
	person := &orgchart.PersonRef{AzureUniqueID: &req.PersonID}
	if err := s.applyDraft(ctx, req.ProjectID, req.PositionID, req.Instance.InstanceID, req.ID.String(), changes, person); err != nil {
		return err
	}
	return s.requests.MarkProvisioned(ctx, requests.FamilyContractor, req.ID, req.PositionID, s.serviceActor)
}

func (s *Service) recordFailure(ctx context.Context, job requests.ProvisioningJob, cause error) {
	var payload []byte
	var apiErr *orgchart.APIError
	if errors.As(cause, &apiErr) {
		payload, _ = json.Marshal(map[string]any{
			"status": apiErr.StatusCode,
			"body":   apiErr.Body,
		})
	}
	if err := s.requests.MarkProvisioningFailed(ctx, job.Family, job.RequestID, cause.Error(), payload); err != nil {
		s.logger.Error("Failed to record provisioning failure",
			zap.String("requestId", job.RequestID.String()),
			zap.Error(err))
	}
	s.logger.Error("Provisioning failed",
		zap.String("requestId", job.RequestID.String()),
		zap.String("family", string(job.Family)),
		zap.Error(cause))
}

func provisionError(stage string, err error) error {
	return fmt.Errorf("provisioning %s failed: %w", stage, err)
}
