package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/equinor/fusion-app-resources-sub003/internal/orgchart"
	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

// CreateAllocationCommand carries the caller-supplied fields for a new
// resource allocation request.
type CreateAllocationCommand struct {
	ProjectID          uuid.UUID
	ContractID         *uuid.UUID
	Category           RequestCategory
	Subtype            string
	PositionID         uuid.UUID
	InstanceID         uuid.UUID
	OriginalPositionID *uuid.UUID
	ProposedPersonID   *uuid.UUID
	ProposedChanges    map[string]any
	Proposal           ProposalParameters
	IsDraft            bool
}

// CreateContractorCommand carries the caller-supplied fields for a new
// contractor personnel request.
type CreateContractorCommand struct {
	ProjectID        uuid.UUID
	ContractID       uuid.UUID
	Category         RequestCategory
	PositionID       uuid.UUID
	InstanceID       uuid.UUID
	PersonIdentifier string
	ProposedChanges  map[string]any
	IsDraft          bool
}

// CreateAllocation validates references against the org chart and persists a
// new request in the Created state. The workflow itself is attached by
// Initialize, so drafts can be edited before any step starts.
func (s *Service) CreateAllocation(ctx context.Context, cmd CreateAllocationCommand, actor workflow.Actor) (*ResourceAllocationRequest, error) {
	if _, err := s.org.GetProject(ctx, cmd.ProjectID); err != nil {
		return nil, orgNotFound(err, "project", cmd.ProjectID)
	}
	if cmd.ContractID != nil {
		if _, err := s.org.GetContract(ctx, cmd.ProjectID, *cmd.ContractID); err != nil {
			return nil, orgNotFound(err, "contract", *cmd.ContractID)
		}
	}

	pos, err := s.org.GetPosition(ctx, cmd.ProjectID, cmd.PositionID)
	if err != nil {
		return nil, orgNotFound(err, "position", cmd.PositionID)
	}
	instance := pos.Instance(cmd.InstanceID)
	if instance == nil {
		return nil, validationError("instanceId", "the position has no instance with the given id")
	}

	if cmd.Category == CategoryChangeRequest {
		if cmd.OriginalPositionID == nil {
			return nil, validationError("originalPositionId", "a change request must reference the original position")
		}
		active, err := s.repo.ActiveAllocationForPosition(ctx, *cmd.OriginalPositionID)
		if err != nil {
			return nil, err
		}
		if active != nil {
			return nil, validationError("originalPositionId", "an active request already targets this position")
		}
	}

	req := &ResourceAllocationRequest{
		RequestCore: newCore(cmd.ProjectID, cmd.Category, cmd.Subtype, cmd.PositionID, instance, actor),
		ContractID:  cmd.ContractID,
	}
	req.Department = pos.Department
	req.OriginalPositionID = cmd.OriginalPositionID
	req.ProposedChanges = datatypes.JSONMap(cmd.ProposedChanges)
	req.Proposal = cmd.Proposal
	req.IsDraft = cmd.IsDraft
	if cmd.ProposedPersonID != nil {
		now := time.Now().UTC()
		req.ProposedPerson = ProposedPerson{PersonID: cmd.ProposedPersonID, ProposedAt: &now}
	}

	if err := s.repo.CreateAllocation(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info("Allocation request created",
		zap.String("requestId", req.ID.String()),
		zap.String("projectId", cmd.ProjectID.String()),
		zap.String("category", string(cmd.Category)))
	return req, nil
}

// CreateContractor validates that the person exists and is registered on the
// contract, then persists a new contractor personnel request.
func (s *Service) CreateContractor(ctx context.Context, cmd CreateContractorCommand, actor workflow.Actor) (*ContractorRequest, error) {
	if _, err := s.org.GetProject(ctx, cmd.ProjectID); err != nil {
		return nil, orgNotFound(err, "project", cmd.ProjectID)
	}
	if _, err := s.org.GetContract(ctx, cmd.ProjectID, cmd.ContractID); err != nil {
		return nil, orgNotFound(err, "contract", cmd.ContractID)
	}

	person, err := s.people.ResolvePerson(ctx, cmd.PersonIdentifier)
	if err != nil {
		return nil, err
	}
	if person == nil {
		return nil, validationError("person", "the person could not be resolved")
	}
	onContract, err := s.org.IsPersonOnContract(ctx, cmd.ProjectID, cmd.ContractID, person.AzureUniqueID)
	if err != nil {
		return nil, err
	}
	if !onContract {
		return nil, validationError("person", "the person is not registered on the contract")
	}

	pos, err := s.org.GetPosition(ctx, cmd.ProjectID, cmd.PositionID)
	if err != nil {
		return nil, orgNotFound(err, "position", cmd.PositionID)
	}
	instance := pos.Instance(cmd.InstanceID)
	if instance == nil {
		return nil, validationError("instanceId", "the position has no instance with the given id")
	}

	req := &ContractorRequest{
		RequestCore: newCore(cmd.ProjectID, cmd.Category, "", cmd.PositionID, instance, actor),
		ContractID:  cmd.ContractID,
		PersonID:    person.AzureUniqueID,
	}
	req.Department = pos.Department
	req.ProposedChanges = datatypes.JSONMap(cmd.ProposedChanges)
	req.IsDraft = cmd.IsDraft

	if err := s.repo.CreateContractor(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info("Contractor request created",
		zap.String("requestId", req.ID.String()),
		zap.String("contractId", cmd.ContractID.String()))
	return req, nil
}

func newCore(projectID uuid.UUID, category RequestCategory, subtype string, positionID uuid.UUID, instance *orgchart.PositionInstance, actor workflow.Actor) RequestCore {
	now := time.Now().UTC()
	snapshot := InstanceSnapshot{
		InstanceID:  instance.ID,
		AppliesFrom: instance.AppliesFrom,
		AppliesTo:   instance.AppliesTo,
		Workload:    instance.Workload,
		Obs:         instance.Obs,
		RotationID:  instance.RotationID,
	}
	if instance.AssignedPerson != nil {
		snapshot.AssignedPersonID = instance.AssignedPerson.AzureUniqueID
	}
	return RequestCore{
		ID:            uuid.New(),
		ProjectID:     projectID,
		Category:      category,
		Subtype:       subtype,
		State:         workflow.StateCreated,
		PositionID:    positionID,
		Instance:      snapshot,
		Provisioning:  ProvisioningStatus{State: ProvisioningNotProvisioned},
		CreatedByID:   actor.ID,
		CreatedByName: actor.Name,
		LastActivity:  now,
	}
}
