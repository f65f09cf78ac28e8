package workflow

import (
	"fmt"
	"time"
)

// Kind discriminates the concrete workflow variant governing a request.
type Kind string

const (
	KindAllocationDirect       Kind = "allocationDirect"
	KindAllocationNormal       Kind = "allocationNormal"
	KindAllocationJointVenture Kind = "allocationJointVenture"
	KindAllocationEnterprise   Kind = "allocationEnterprise"
	KindContractorPersonnel    Kind = "contractorPersonnel"
	KindResourceOwnerChange    Kind = "resourceOwnerChange"
	KindTaskOwnerChange        Kind = "taskOwnerChange"
)

// Step ids shared across variants. Every chain terminates in StepProvisioning.
const (
	StepCreated            = "created"
	StepProposal           = "proposal"
	StepApproval           = "approval"
	StepAcceptance         = "acceptance"
	StepContractorApproval = "contractorApproval"
	StepCompanyApproval    = "companyApproval"
	StepProvisioning       = "provisioning"
)

// RequestState is the denormalized request state driven by workflow
// transitions. SetState maps (current state, requested state) pairs onto the
// named transitions of the request's variant.
type RequestState string

const (
	StateCreated              RequestState = "Created"
	StateProposed             RequestState = "Proposed"
	StateApproved             RequestState = "Approved"
	StateRejected             RequestState = "Rejected"
	StateAccepted             RequestState = "Accepted"
	StateSubmittedToCompany   RequestState = "SubmittedToCompany"
	StateApprovedByCompany    RequestState = "ApprovedByCompany"
	StateRejectedByCompany    RequestState = "RejectedByCompany"
	StateRejectedByContractor RequestState = "RejectedByContractor"
	StateCompleted            RequestState = "Completed"
)

// variant binds a workflow kind to its step templates and transition
// function. Modeled as a strategy table rather than subclass dispatch; each
// variant file contributes one entry.
type variant struct {
	name      string
	version   string
	templates func() []*Step
	advance   func(d *Definition, target RequestState, actor Actor) (*Step, error)
}

var variants = map[Kind]variant{
	KindAllocationDirect: {
		name:      "Direct allocation",
		version:   "v1",
		templates: allocationDirectSteps,
		advance:   allocationProposalAdvance,
	},
	KindAllocationNormal: {
		name:      "Allocation",
		version:   "v1",
		templates: allocationNormalSteps,
		advance:   allocationProposalAdvance,
	},
	KindAllocationJointVenture: {
		name:      "Joint venture allocation",
		version:   "v1",
		templates: allocationJointVentureSteps,
		advance:   allocationApprovalAdvance,
	},
	KindAllocationEnterprise: {
		name:      "Enterprise allocation",
		version:   "v1",
		templates: allocationEnterpriseSteps,
		advance:   allocationEnterpriseAdvance,
	},
	KindContractorPersonnel: {
		name:      "Contractor personnel",
		version:   "v1",
		templates: contractorPersonnelSteps,
		advance:   contractorPersonnelAdvance,
	},
	KindResourceOwnerChange: {
		name:      "Resource owner change",
		version:   "v1",
		templates: ownerChangeSteps,
		advance:   ownerChangeAdvance,
	},
	KindTaskOwnerChange: {
		name:      "Task owner change",
		version:   "v1",
		templates: ownerChangeSteps,
		advance:   ownerChangeAdvance,
	},
}

// Definition is a per-request workflow instance. It is owned exclusively by
// the command invocation that loaded it and is reconstructed fresh from
// persisted state on every command.
type Definition struct {
	Kind        Kind
	Version     string
	Name        string
	Steps       []*Step
	Completed   bool
	CompletedAt *time.Time
}

// New builds a workflow for a brand-new request: the "created" step is
// completed immediately and the next step started.
func New(kind Kind, createdBy Actor) (*Definition, error) {
	v, ok := variants[kind]
	if !ok {
		return nil, fmt.Errorf("unknown workflow kind %q", kind)
	}
	d := &Definition{
		Kind:    kind,
		Version: v.version,
		Name:    v.name,
		Steps:   v.templates(),
	}
	created := d.Step(StepCreated)
	created.Start()
	created.Complete(createdBy, true)
	created.Description = fmt.Sprintf("Request created by %s.", createdBy.Name)
	d.StartNext(created)
	return d, nil
}

// Rehydrate rebuilds an in-flight workflow from persisted step state.
func Rehydrate(kind Kind, steps []*Step, completed bool) (*Definition, error) {
	v, ok := variants[kind]
	if !ok {
		return nil, fmt.Errorf("unknown workflow kind %q", kind)
	}
	ids := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		if _, dup := ids[s.ID]; dup {
			return nil, fmt.Errorf("duplicate step id %q in persisted workflow", s.ID)
		}
		ids[s.ID] = struct{}{}
	}
	return &Definition{
		Kind:      kind,
		Version:   v.version,
		Name:      v.name,
		Steps:     steps,
		Completed: completed,
	}, nil
}

// Step locates a step by id. An unknown id indicates a caller bug for this
// variant and panics rather than returning a recoverable error.
func (d *Definition) Step(id string) *Step {
	for _, s := range d.Steps {
		if s.ID == id {
			return s
		}
	}
	panic(fmt.Sprintf("workflow %s: unknown step id %q", d.Kind, id))
}

// Current returns the single Running step, or nil before the first step
// starts or after the workflow completes.
func (d *Definition) Current() *Step {
	for _, s := range d.Steps {
		if s.State == StepRunning {
			return s
		}
	}
	return nil
}

// StartNext starts the step the given completed step links to. No-op at the
// end of the chain.
func (d *Definition) StartNext(from *Step) *Step {
	if from.NextStepID == "" {
		return nil
	}
	next := d.Step(from.NextStepID)
	next.Start()
	return next
}

// SkipRest skips every remaining step from current to terminal. Used on
// rejection to short-circuit the chain.
func (d *Definition) SkipRest(by *Actor) {
	for _, s := range d.Steps {
		if s.State == StepNotStarted || s.State == StepRunning {
			s.Skip(by)
		}
	}
}

// CompleteWorkflow marks the whole workflow terminal.
func (d *Definition) CompleteWorkflow() {
	now := time.Now()
	d.Completed = true
	d.CompletedAt = &now
}

// IsCompleted reports whether the workflow has reached a terminal state.
func (d *Definition) IsCompleted() bool {
	return d.Completed
}

// CompleteCurrentStep dispatches the requested state onto the variant's named
// transition for the current step. It returns the new current step, or nil
// when the workflow has no further programmatic step. Transitions not defined
// for the current step fail with IllegalStateChangeError.
func (d *Definition) CompleteCurrentStep(target RequestState, actor Actor) (*Step, error) {
	if d.Completed {
		cur := ""
		if c := d.Current(); c != nil {
			cur = c.ID
		}
		return nil, &IllegalStateChangeError{From: cur, To: string(target)}
	}
	return variants[d.Kind].advance(d, target, actor)
}
