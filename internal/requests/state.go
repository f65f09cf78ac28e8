package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

// approveTargets maps the current step to the state an Approve command
// requests; rejectTargets likewise for Reject.
var approveTargets = map[string]workflow.RequestState{
	workflow.StepProposal:           workflow.StateProposed,
	workflow.StepApproval:           workflow.StateApproved,
	workflow.StepAcceptance:         workflow.StateAccepted,
	workflow.StepContractorApproval: workflow.StateSubmittedToCompany,
	workflow.StepCompanyApproval:    workflow.StateApprovedByCompany,
}

var rejectTargets = map[string]workflow.RequestState{
	workflow.StepContractorApproval: workflow.StateRejectedByContractor,
	workflow.StepCompanyApproval:    workflow.StateRejectedByCompany,
}

func isRejection(state workflow.RequestState) bool {
	switch state {
	case workflow.StateRejected, workflow.StateRejectedByCompany, workflow.StateRejectedByContractor:
		return true
	}
	return false
}

// SetAllocationState drives one workflow transition on an allocation request.
// The access gate is evaluated against the step being completed before any
// mutation; the request row, workflow rows and provisioning job commit in one
// transaction, and notifications go out only after commit.
func (s *Service) SetAllocationState(ctx context.Context, id uuid.UUID, target workflow.RequestState, actor workflow.Actor, reason string) (*ResourceAllocationRequest, error) {
	return s.setAllocationState(ctx, id, target, actor, reason, nil)
}

// setAllocationState additionally applies mutate to the request inside the
// same transaction as the workflow transition, so callers recording extra
// state (provisioning status) cannot end up half committed.
func (s *Service) setAllocationState(ctx context.Context, id uuid.UUID, target workflow.RequestState, actor workflow.Actor, reason string, mutate func(*RequestCore)) (*ResourceAllocationRequest, error) {
	req, err := s.repo.GetAllocation(ctx, id)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	def, err := row.ToDefinition()
	if err != nil {
		return nil, err
	}
	current := def.Current()
	if current == nil {
		from := string(req.State)
		return nil, &workflow.IllegalStateChangeError{From: from, To: string(target)}
	}

	if err := s.checkAccess(ctx, def.Kind, current.ID, actor, accessSubject{
		projectID:  req.ProjectID,
		positionID: req.PositionID,
		contractID: req.ContractID,
		creatorID:  req.CreatedByID,
	}); err != nil {
		return nil, err
	}

	if isRejection(target) && reason == "" {
		return nil, validationError("reason", "a reason is required when rejecting a request")
	}

	newStep, err := def.CompleteCurrentStep(target, actor)
	if err != nil {
		return nil, err
	}
	if isRejection(target) {
		current.SetReason(reason)
	}
	req.State = target

	// A direct allocation with nothing changed needs no separate approval;
	// the proposal doubles as the decision.
	if def.Kind == workflow.KindAllocationDirect &&
		target == workflow.StateProposed &&
		len(req.ProposedChanges) == 0 && !req.ProposedPerson.HasValue() {
		newStep = def.AutoApproveUnchangedRequest(actor)
		req.State = workflow.StateApproved
	}

	req.LastActivity = time.Now().UTC()
	req.UpdatedByID = &actor.ID
	req.UpdatedByName = actor.Name
	if mutate != nil {
		mutate(&req.RequestCore)
	}
	row.ApplyDefinition(def)

	expected := req.Version
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.SaveAllocation(ctx, req, expected); err != nil {
			return err
		}
		if err := tx.SaveWorkflow(ctx, row); err != nil {
			return err
		}
		if newStep != nil && newStep.ID == workflow.StepProvisioning {
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

	s.logger.Info("Allocation request state changed",
		zap.String("requestId", req.ID.String()),
		zap.String("state", string(req.State)),
		zap.String("actor", actor.Name))
	s.notifyStateChange(ctx, &req.RequestCore, req.State)
	return req, nil
}

// SetContractorState drives one workflow transition on a contractor request.
func (s *Service) SetContractorState(ctx context.Context, id uuid.UUID, target workflow.RequestState, actor workflow.Actor, reason string) (*ContractorRequest, error) {
	return s.setContractorState(ctx, id, target, actor, reason, nil)
}

func (s *Service) setContractorState(ctx context.Context, id uuid.UUID, target workflow.RequestState, actor workflow.Actor, reason string, mutate func(*RequestCore)) (*ContractorRequest, error) {
	req, err := s.repo.GetContractor(ctx, id)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	def, err := row.ToDefinition()
	if err != nil {
		return nil, err
	}
	current := def.Current()
	if current == nil {
		return nil, &workflow.IllegalStateChangeError{From: string(req.State), To: string(target)}
	}

	contractID := req.ContractID
	if err := s.checkAccess(ctx, def.Kind, current.ID, actor, accessSubject{
		projectID:  req.ProjectID,
		positionID: req.PositionID,
		contractID: &contractID,
		creatorID:  req.CreatedByID,
	}); err != nil {
		return nil, err
	}

	if isRejection(target) && reason == "" {
		return nil, validationError("reason", "a reason is required when rejecting a request")
	}

	newStep, err := def.CompleteCurrentStep(target, actor)
	if err != nil {
		return nil, err
	}
	if isRejection(target) {
		current.SetReason(reason)
	}

	req.State = target
	req.LastActivity = time.Now().UTC()
	req.UpdatedByID = &actor.ID
	req.UpdatedByName = actor.Name
	if mutate != nil {
		mutate(&req.RequestCore)
	}
	row.ApplyDefinition(def)

	expected := req.Version
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.SaveContractor(ctx, req, expected); err != nil {
			return err
		}
		if err := tx.SaveWorkflow(ctx, row); err != nil {
			return err
		}
		if newStep != nil && newStep.ID == workflow.StepProvisioning {
			return tx.EnqueueProvisioning(ctx, &ProvisioningJob{
				ID:        uuid.New(),
				RequestID: req.ID,
				Family:    FamilyContractor,
				Status:    JobPending,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Contractor request state changed",
		zap.String("requestId", req.ID.String()),
		zap.String("state", string(req.State)),
		zap.String("actor", actor.Name))
	s.notifyStateChange(ctx, &req.RequestCore, req.State)
	return req, nil
}

// Approve completes the current step positively; the target state follows
// from which step is running.
func (s *Service) Approve(ctx context.Context, family RequestFamily, id uuid.UUID, actor workflow.Actor) error {
	target, err := s.resolveTarget(ctx, id, approveTargets, workflow.RequestState(""))
	if err != nil {
		return err
	}
	return s.applyState(ctx, family, id, target, actor, "")
}

// Reject completes the current step negatively. A non-empty reason is
// required.
func (s *Service) Reject(ctx context.Context, family RequestFamily, id uuid.UUID, actor workflow.Actor, reason string) error {
	target, err := s.resolveTarget(ctx, id, rejectTargets, workflow.StateRejected)
	if err != nil {
		return err
	}
	return s.applyState(ctx, family, id, target, actor, reason)
}

func (s *Service) applyState(ctx context.Context, family RequestFamily, id uuid.UUID, target workflow.RequestState, actor workflow.Actor, reason string) error {
	var err error
	if family == FamilyContractor {
		_, err = s.SetContractorState(ctx, id, target, actor, reason)
	} else {
		_, err = s.SetAllocationState(ctx, id, target, actor, reason)
	}
	return err
}

func (s *Service) resolveTarget(ctx context.Context, id uuid.UUID, table map[string]workflow.RequestState, fallback workflow.RequestState) (workflow.RequestState, error) {
	row, err := s.repo.GetWorkflow(ctx, id)
	if err != nil {
		return "", err
	}
	def, err := row.ToDefinition()
	if err != nil {
		return "", err
	}
	current := def.Current()
	if current == nil {
		return "", &workflow.IllegalStateChangeError{From: "", To: "completed"}
	}
	if target, ok := table[current.ID]; ok {
		return target, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("step %q has no approval outcome", current.ID)
}

// MarkProvisioned records a successful provisioning run: the provisioning
// step completes, the request reaches its terminal Completed state and the
// provisioning status commits in the same transaction as the transition.
func (s *Service) MarkProvisioned(ctx context.Context, family RequestFamily, id uuid.UUID, positionID uuid.UUID, actor workflow.Actor) error {
	now := time.Now().UTC()
	update := func(core *RequestCore) {
		core.Provisioning.State = ProvisioningProvisioned
		core.Provisioning.PositionID = &positionID
		core.Provisioning.Provisioned = &now
		core.Provisioning.ErrorMessage = ""
		core.Provisioning.ErrorPayload = nil
	}
	if family == FamilyContractor {
		_, err := s.setContractorState(ctx, id, workflow.StateCompleted, actor, "", update)
		return err
	}
	_, err := s.setAllocationState(ctx, id, workflow.StateCompleted, actor, "", update)
	return err
}

// MarkProvisioningFailed records a failed provisioning run on the request so
// the failure survives the worker process. The workflow stays on the
// provisioning step; retry re-runs the reconciler.
func (s *Service) MarkProvisioningFailed(ctx context.Context, family RequestFamily, id uuid.UUID, message string, payload []byte) error {
	if family == FamilyContractor {
		req, err := s.repo.GetContractor(ctx, id)
		if err != nil {
			return err
		}
		req.Provisioning.State = ProvisioningError
		req.Provisioning.ErrorMessage = message
		req.Provisioning.ErrorPayload = payload
		return s.repo.SaveContractor(ctx, req, req.Version)
	}
	req, err := s.repo.GetAllocation(ctx, id)
	if err != nil {
		return err
	}
	req.Provisioning.State = ProvisioningError
	req.Provisioning.ErrorMessage = message
	req.Provisioning.ErrorPayload = payload
	return s.repo.SaveAllocation(ctx, req, req.Version)
}

func (s *Service) notifyStateChange(ctx context.Context, core *RequestCore, target workflow.RequestState) {
	category := NotifyStateChanged
	message := fmt.Sprintf("The request is now %s.", target)
	if isRejection(target) {
		category = NotifyRequestRejected
		message = "The request has been rejected."
	}
	s.notify(ctx, workflow.Actor{ID: core.CreatedByID, Name: core.CreatedByName},
		"Request state changed", message, category)
	if core.ProposedPerson.HasValue() {
		s.notify(ctx, workflow.Actor{ID: *core.ProposedPerson.PersonID, Name: core.ProposedPerson.Name},
			"Request state changed", message, category)
	}
}
