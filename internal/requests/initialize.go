package requests

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

// InitializeAllocation starts the workflow for a drafted allocation request:
// the subtype is resolved when unset, subtype-specific rules are validated,
// and variants without a human step between creation and provisioning are
// queued for provisioning immediately.
func (s *Service) InitializeAllocation(ctx context.Context, id uuid.UUID, actor workflow.Actor) (*ResourceAllocationRequest, error) {
	req, err := s.repo.GetAllocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetWorkflow(ctx, id); err == nil && existing != nil {
		return nil, validationError("state", "the request workflow has already been started")
	} else if err != nil {
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	pos, err := s.org.GetPosition(ctx, req.ProjectID, req.PositionID)
	if err != nil {
		return nil, orgNotFound(err, "position", req.PositionID)
	}
	if req.Subtype == "" {
		req.Subtype = resolveAllocationSubtype(pos)
	}

	now := time.Now().UTC()
	if req.Instance.AppliesTo.Before(now) {
		return nil, validationError("instance.appliesTo", "the targeted position instance has expired")
	}
	if err := validateOwnerChangeRules(req, now); err != nil {
		return nil, err
	}

	kind := KindForRequest(FamilyAllocation, req.Category, req.Subtype)
	def, err := workflow.New(kind, actor)
	if err != nil {
		return nil, err
	}

	enqueue := false
	switch kind {
	case workflow.KindAllocationEnterprise:
		// No human gate: the chain goes straight to provisioning.
		enqueue = true
	case workflow.KindAllocationJointVenture:
		owner, err := s.lineorg.GetResourceOwner(ctx, pos.Department)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			def.SkipApproval("No resource owner resolved for the joint venture department.")
			enqueue = true
		}
	}

	req.State = workflow.StateCreated
	req.IsDraft = false
	req.LastActivity = now
	req.UpdatedByID = &actor.ID
	req.UpdatedByName = actor.Name

	expected := req.Version
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.SaveAllocation(ctx, req, expected); err != nil {
			return err
		}
		if err := tx.CreateWorkflow(ctx, NewWorkflowRow(req.ID, def)); err != nil {
			return err
		}
		if enqueue {
			return tx.EnqueueProvisioning(ctx, &ProvisioningJob{
				ID:        uuid.New(),
				RequestID: req.ID,
				Family:    FamilyAllocation,
				Status:    JobPending,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Allocation workflow started",
		zap.String("requestId", req.ID.String()),
		zap.String("kind", string(kind)),
		zap.Bool("provisioningQueued", enqueue))
	s.notify(ctx, workflow.Actor{ID: req.CreatedByID, Name: req.CreatedByName},
		"Request workflow started",
		"The workflow for your request has been started.",
		NotifyWorkflowStarted)
	return req, nil
}

// InitializeContractor starts the contractor personnel workflow. When the
// actor is an external company representative of the contract, the contractor
// approval step is skipped and the request is submitted to the company
// directly.
func (s *Service) InitializeContractor(ctx context.Context, id uuid.UUID, actor workflow.Actor) (*ContractorRequest, error) {
	req, err := s.repo.GetContractor(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetWorkflow(ctx, id); err == nil && existing != nil {
		return nil, validationError("state", "the request workflow has already been started")
	} else if err != nil {
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	person, err := s.people.ResolvePerson(ctx, req.PersonID.String())
	if err != nil {
		return nil, err
	}
	if person == nil {
		return nil, validationError("person", "the person could not be resolved")
	}

	now := time.Now().UTC()
	if req.Instance.AppliesTo.Before(now) {
		return nil, validationError("instance.appliesTo", "the targeted position instance has expired")
	}

	def, err := workflow.New(workflow.KindContractorPersonnel, actor)
	if err != nil {
		return nil, err
	}

	req.State = workflow.StateCreated
	external, err := s.org.IsExternalContractRep(ctx, req.ProjectID, req.ContractID, actor.ID)
	if err != nil {
		return nil, err
	}
	if external {
		def.SubmitDirectlyToCompany(actor)
		req.State = workflow.StateSubmittedToCompany
	}

	req.IsDraft = false
	req.LastActivity = now
	req.UpdatedByID = &actor.ID
	req.UpdatedByName = actor.Name

	expected := req.Version
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.SaveContractor(ctx, req, expected); err != nil {
			return err
		}
		return tx.CreateWorkflow(ctx, NewWorkflowRow(req.ID, def))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Contractor workflow started",
		zap.String("requestId", req.ID.String()),
		zap.Bool("submittedDirectly", external))
	s.notify(ctx, workflow.Actor{ID: req.CreatedByID, Name: req.CreatedByName},
		"Request workflow started",
		"The workflow for your request has been started.",
		NotifyWorkflowStarted)
	return req, nil
}

// validateOwnerChangeRules enforces the preconditions specific to the
// resource-owner change subtypes.
func validateOwnerChangeRules(req *ResourceAllocationRequest, now time.Time) error {
	if req.Proposal.ChangeFrom != nil && req.Proposal.ChangeTo != nil &&
		req.Proposal.ChangeTo.Before(*req.Proposal.ChangeFrom) {
		return validationError("proposalParameters.changeDateTo", "the change window cannot end before it starts")
	}
	switch req.Subtype {
	case SubtypeAdjustment, SubtypeChangeResource:
		if !req.ProposedPerson.HasValue() && len(req.ProposedChanges) == 0 {
			return validationError("proposedChanges", "either a proposed person or proposed changes are required")
		}
		active := !now.Before(req.Instance.AppliesFrom) && !now.After(req.Instance.AppliesTo)
		if active && req.Proposal.ChangeFrom == nil {
			return validationError("proposalParameters.changeDateFrom", "a change date is required when the targeted instance is currently active")
		}
	case SubtypeRemoveResource:
		if req.Instance.AssignedPersonID == nil {
			return validationError("instance.assignedPerson", "the targeted instance has no assigned person to remove")
		}
	}
	return nil
}
