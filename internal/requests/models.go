package requests

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

// RequestCategory separates brand-new allocations from changes to an existing
// position instance.
type RequestCategory string

const (
	CategoryNewRequest    RequestCategory = "NewRequest"
	CategoryChangeRequest RequestCategory = "ChangeRequest"
)

// Subtype values select the concrete workflow variant and access-rule table.
const (
	SubtypeNormal         = "normal"
	SubtypeDirect         = "direct"
	SubtypeJointVenture   = "jointVenture"
	SubtypeEnterprise     = "enterprise"
	SubtypeAdjustment     = "adjustment"
	SubtypeChangeResource = "changeResource"
	SubtypeRemoveResource = "removeResource"
)

// RequestFamily discriminates the two structurally analogous request tables.
type RequestFamily string

const (
	FamilyAllocation RequestFamily = "allocation"
	FamilyContractor RequestFamily = "contractor"
)

// ProvisioningState tracks whether the approved outcome has been written to
// the org chart.
type ProvisioningState string

const (
	ProvisioningNotProvisioned ProvisioningState = "NotProvisioned"
	ProvisioningProvisioned    ProvisioningState = "Provisioned"
	ProvisioningError          ProvisioningState = "Error"
)

// InstanceSnapshot is a point-in-time copy of the targeted org position
// instance, taken at request creation. It is deliberately not live data; the
// provisioning reconciler re-reads the org chart before applying changes.
type InstanceSnapshot struct {
	InstanceID       uuid.UUID  `gorm:"type:uuid" json:"instanceId"`
	AppliesFrom      time.Time  `json:"appliesFrom"`
	AppliesTo        time.Time  `json:"appliesTo"`
	Workload         float64    `json:"workload"`
	AssignedPersonID *uuid.UUID `gorm:"type:uuid" json:"assignedPersonId,omitempty"`
	Obs              string     `json:"obs,omitempty"`
	RotationID       *string    `json:"rotationId,omitempty"`
}

// ProposedPerson is the candidate put forward during the proposal step.
type ProposedPerson struct {
	PersonID   *uuid.UUID `gorm:"type:uuid" json:"personId,omitempty"`
	Mail       string     `json:"mail,omitempty"`
	Name       string     `json:"name,omitempty"`
	ProposedAt *time.Time `json:"proposedAt,omitempty"`
	Notified   bool       `json:"notified"`
}

// HasValue reports whether a person has been proposed.
func (p ProposedPerson) HasValue() bool {
	return p.PersonID != nil
}

// ProposalParameters bound when a proposed change takes effect.
type ProposalParameters struct {
	ChangeFrom *time.Time `json:"changeDateFrom,omitempty"`
	ChangeTo   *time.Time `json:"changeDateTo,omitempty"`
	Scope      string     `json:"scope,omitempty"`
}

// ProvisioningStatus is durably recorded on the request so failed
// provisioning runs remain visible to operators after the triggering process
// has exited. Retry means re-invoking Provision.
type ProvisioningStatus struct {
	State        ProvisioningState `json:"state"`
	PositionID   *uuid.UUID        `gorm:"type:uuid" json:"positionId,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	ErrorPayload datatypes.JSON    `json:"errorPayload,omitempty"`
	Provisioned  *time.Time        `json:"provisioned,omitempty"`
}

// RequestCore carries the fields shared by both request families.
type RequestCore struct {
	ID                 uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID          uuid.UUID             `gorm:"type:uuid;index" json:"projectId"`
	Category           RequestCategory       `json:"category"`
	Subtype            string                `json:"subtype,omitempty"`
	State              workflow.RequestState `gorm:"index" json:"state"`
	PositionID         uuid.UUID             `gorm:"type:uuid;index" json:"positionId"`
	Department         string                `gorm:"index" json:"department,omitempty"`
	OriginalPositionID *uuid.UUID            `gorm:"type:uuid;index" json:"originalPositionId,omitempty"`
	Instance           InstanceSnapshot      `gorm:"embedded;embeddedPrefix:instance_" json:"instance"`
	ProposedPerson     ProposedPerson        `gorm:"embedded;embeddedPrefix:proposed_" json:"proposedPerson"`
	ProposedChanges    datatypes.JSONMap     `json:"proposedChanges,omitempty"`
	Proposal           ProposalParameters    `gorm:"embedded;embeddedPrefix:proposal_" json:"proposalParameters"`
	Provisioning       ProvisioningStatus    `gorm:"embedded;embeddedPrefix:provisioning_" json:"provisioningStatus"`
	IsDraft            bool                  `json:"isDraft"`
	Version            int                   `json:"-"`
	CreatedByID        uuid.UUID             `gorm:"type:uuid" json:"createdById"`
	CreatedByName      string                `json:"createdByName"`
	UpdatedByID        *uuid.UUID            `gorm:"type:uuid" json:"updatedById,omitempty"`
	UpdatedByName      string                `json:"updatedByName,omitempty"`
	LastActivity       time.Time             `json:"lastActivity"`
	CreatedAt          time.Time             `json:"created"`
	UpdatedAt          time.Time             `json:"updated"`
}

// IsTerminal reports whether the request has reached a final state.
func (c *RequestCore) IsTerminal() bool {
	switch c.State {
	case workflow.StateCompleted, workflow.StateRejected,
		workflow.StateRejectedByCompany, workflow.StateRejectedByContractor:
		return true
	}
	return false
}

// ResourceAllocationRequest is a request to allocate, change or remove
// personnel on a project position.
type ResourceAllocationRequest struct {
	RequestCore
	ContractID *uuid.UUID `gorm:"type:uuid" json:"contractId,omitempty"`
}

func (ResourceAllocationRequest) TableName() string { return "resource_allocation_requests" }

// ContractorRequest is a request concerning contractor personnel registered
// on a contract.
type ContractorRequest struct {
	RequestCore
	ContractID uuid.UUID `gorm:"type:uuid;index" json:"contractId"`
	PersonID   uuid.UUID `gorm:"type:uuid" json:"personId"`
}

func (ContractorRequest) TableName() string { return "contractor_requests" }

// WorkflowRow persists a request's workflow header.
type WorkflowRow struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RequestID   uuid.UUID  `gorm:"type:uuid;uniqueIndex"`
	Kind        string
	Version     string
	Completed   bool
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Steps []WorkflowStepRow `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE"`
}

func (WorkflowRow) TableName() string { return "request_workflows" }

// WorkflowStepRow persists one workflow step instance.
type WorkflowStepRow struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	WorkflowID      uuid.UUID  `gorm:"type:uuid;index"`
	StepID          string
	Name            string
	Description     string
	PreviousStepID  string
	NextStepID      string
	State           string
	StartedAt       *time.Time
	CompletedAt     *time.Time
	CompletedByID   *uuid.UUID `gorm:"type:uuid"`
	CompletedByName string
	CompletedByMail string
	Reason          string
	Sequence        int
}

func (WorkflowStepRow) TableName() string { return "request_workflow_steps" }

// ProvisioningJob queues reconciler work so provisioning runs out of band
// from the approval transaction. Polled by the provisioning worker.
type ProvisioningJob struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey"`
	RequestID uuid.UUID     `gorm:"type:uuid;index"`
	Family    RequestFamily `gorm:"index"`
	Status    string        `gorm:"index"`
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProvisioningJob) TableName() string { return "provisioning_jobs" }

const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// KindForRequest resolves the workflow variant from category and subtype.
func KindForRequest(family RequestFamily, category RequestCategory, subtype string) workflow.Kind {
	if family == FamilyContractor {
		return workflow.KindContractorPersonnel
	}
	switch subtype {
	case SubtypeAdjustment, SubtypeChangeResource, SubtypeRemoveResource:
		return workflow.KindResourceOwnerChange
	case SubtypeDirect:
		return workflow.KindAllocationDirect
	case SubtypeJointVenture:
		return workflow.KindAllocationJointVenture
	case SubtypeEnterprise:
		return workflow.KindAllocationEnterprise
	default:
		return workflow.KindAllocationNormal
	}
}

// ToDefinition rehydrates the persisted workflow into its in-memory form.
func (w *WorkflowRow) ToDefinition() (*workflow.Definition, error) {
	steps := make([]*workflow.Step, len(w.Steps))
	for i := range w.Steps {
		r := &w.Steps[i]
		step := &workflow.Step{
			ID:             r.StepID,
			Name:           r.Name,
			Description:    r.Description,
			PreviousStepID: r.PreviousStepID,
			NextStepID:     r.NextStepID,
			State:          workflow.StepState(r.State),
			StartedAt:      r.StartedAt,
			CompletedAt:    r.CompletedAt,
			Reason:         r.Reason,
		}
		if r.CompletedByID != nil {
			step.CompletedBy = &workflow.Actor{ID: *r.CompletedByID, Name: r.CompletedByName, Mail: r.CompletedByMail}
		}
		steps[i] = step
	}
	return workflow.Rehydrate(workflow.Kind(w.Kind), steps, w.Completed)
}

// ApplyDefinition writes the in-memory workflow back onto the persisted rows,
// preserving row ids by step id.
func (w *WorkflowRow) ApplyDefinition(d *workflow.Definition) {
	existing := make(map[string]*WorkflowStepRow, len(w.Steps))
	for i := range w.Steps {
		existing[w.Steps[i].StepID] = &w.Steps[i]
	}

	rows := make([]WorkflowStepRow, len(d.Steps))
	for i, s := range d.Steps {
		row := WorkflowStepRow{
			ID:         uuid.New(),
			WorkflowID: w.ID,
		}
		if prev, ok := existing[s.ID]; ok {
			row.ID = prev.ID
		}
		row.StepID = s.ID
		row.Name = s.Name
		row.Description = s.Description
		row.PreviousStepID = s.PreviousStepID
		row.NextStepID = s.NextStepID
		row.State = string(s.State)
		row.StartedAt = s.StartedAt
		row.CompletedAt = s.CompletedAt
		row.Reason = s.Reason
		row.Sequence = i
		if s.CompletedBy != nil {
			id := s.CompletedBy.ID
			row.CompletedByID = &id
			row.CompletedByName = s.CompletedBy.Name
			row.CompletedByMail = s.CompletedBy.Mail
		}
		rows[i] = row
	}

	w.Kind = string(d.Kind)
	w.Version = d.Version
	w.Completed = d.Completed
	w.CompletedAt = d.CompletedAt
	w.Steps = rows
}

// NewWorkflowRow persists a freshly created workflow for a request.
func NewWorkflowRow(requestID uuid.UUID, d *workflow.Definition) *WorkflowRow {
	row := &WorkflowRow{
		ID:        uuid.New(),
		RequestID: requestID,
	}
	row.ApplyDefinition(d)
	return row
}
