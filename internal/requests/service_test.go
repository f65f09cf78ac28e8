package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/equinor/fusion-app-resources-sub003/internal/orgchart"
	"github.com/equinor/fusion-app-resources-sub003/internal/people"
	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

type serviceMocks struct {
	repo     *MockRepository
	org      *MockOrgClient
	people   *MockPeopleClient
	lineorg  *MockLineOrgClient
	notifier *MockNotifier
}

func newTestService() (*Service, *serviceMocks) {
	m := &serviceMocks{
		repo:     new(MockRepository),
		org:      new(MockOrgClient),
		people:   new(MockPeopleClient),
		lineorg:  new(MockLineOrgClient),
		notifier: new(MockNotifier),
	}
	m.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	svc := NewService(m.repo, m.org, m.people, m.lineorg, m.notifier, zap.NewNop())
	return svc, m
}

func testActor() workflow.Actor {
	return workflow.Actor{ID: uuid.New(), Name: "Jo Tester", Mail: "jo@example.com"}
}

func privilegedPerson(actor workflow.Actor) *people.Person {
	return &people.Person{
		AzureUniqueID: actor.ID,
		Name:          actor.Name,
		AccountType:   people.AccountTypeEmployee,
		Roles:         []string{RoleResourcesFullControl},
	}
}

func futureInstance() InstanceSnapshot {
	return InstanceSnapshot{
		InstanceID:  uuid.New(),
		AppliesFrom: time.Now().AddDate(0, 1, 0),
		AppliesTo:   time.Now().AddDate(1, 0, 0),
		Workload:    100,
	}
}

func testPosition(dept string) *orgchart.Position {
	return &orgchart.Position{
		ID:         uuid.New(),
		Name:       "Lead Engineer",
		Department: dept,
	}
}

func TestInitializeContractorByExternalRepSubmitsDirectly(t *testing.T) {
	svc, m := newTestService()
	actor := testActor()

	req := &ContractorRequest{
		RequestCore: RequestCore{
			ID:          uuid.New(),
			ProjectID:   uuid.New(),
			PositionID:  uuid.New(),
			Category:    CategoryNewRequest,
			State:       workflow.StateCreated,
			Instance:    futureInstance(),
			CreatedByID: actor.ID,
		},
		ContractID: uuid.New(),
		PersonID:   uuid.New(),
	}

	m.repo.On("GetContractor", mock.Anything, req.ID).Return(req, nil)
	m.repo.On("GetWorkflow", mock.Anything, req.ID).
		Return(nil, &NotFoundError{Entity: "workflow", ID: req.ID.String()})
	m.people.On("ResolvePerson", mock.Anything, req.PersonID.String()).
		Return(&people.Person{AzureUniqueID: req.PersonID, Name: "Contractor"}, nil)
	m.org.On("IsExternalContractRep", mock.Anything, req.ProjectID, req.ContractID, actor.ID).
		Return(true, nil)
	m.repo.On("Transaction", mock.Anything, mock.Anything).Return(nil)
	m.repo.On("SaveContractor", mock.Anything, req, 0).Return(nil)

	var savedRow *WorkflowRow
	m.repo.On("CreateWorkflow", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { savedRow = args.Get(1).(*WorkflowRow) }).
		Return(nil)

	out, err := svc.InitializeContractor(context.Background(), req.ID, actor)

	assert.NoError(t, err)
	assert.Equal(t, workflow.StateSubmittedToCompany, out.State)
	if assert.NotNil(t, savedRow) {
		assert.Equal(t, string(workflow.StepSkipped), stepState(savedRow, workflow.StepContractorApproval))
		assert.Equal(t, string(workflow.StepRunning), stepState(savedRow, workflow.StepCompanyApproval))
	}
}

func TestProposalWithoutChangesIsAutoApproved(t *testing.T) {
	svc, m := newTestService()
	actor := testActor()

	req := &ResourceAllocationRequest{
		RequestCore: RequestCore{
			ID:            uuid.New(),
			ProjectID:     uuid.New(),
			PositionID:    uuid.New(),
			Category:      CategoryNewRequest,
			Subtype:       SubtypeDirect,
			State:         workflow.StateCreated,
			Instance:      futureInstance(),
			CreatedByID:   actor.ID,
			CreatedByName: actor.Name,
		},
	}
	def, err := workflow.New(workflow.KindAllocationDirect, actor)
	assert.NoError(t, err)
	row := NewWorkflowRow(req.ID, def)

	m.repo.On("GetAllocation", mock.Anything, req.ID).Return(req, nil)
	m.repo.On("GetWorkflow", mock.Anything, req.ID).Return(row, nil)
	m.people.On("ResolvePerson", mock.Anything, actor.ID.String()).
		Return(privilegedPerson(actor), nil)
	m.repo.On("Transaction", mock.Anything, mock.Anything).Return(nil)
	m.repo.On("SaveAllocation", mock.Anything, req, 0).Return(nil)
	m.repo.On("SaveWorkflow", mock.Anything, row).Return(nil)
	m.repo.On("EnqueueProvisioning", mock.Anything, mock.Anything).Return(nil)

	out, err := svc.SetAllocationState(context.Background(), req.ID, workflow.StateProposed, actor, "")

	assert.NoError(t, err)
	assert.Equal(t, workflow.StateApproved, out.State)
	assert.Equal(t, string(workflow.StepSkipped), stepState(row, workflow.StepApproval))
	assert.Contains(t, stepDescription(row, workflow.StepProposal), "auto approved")
	assert.Equal(t, string(workflow.StepRunning), stepState(row, workflow.StepProvisioning))
	m.repo.AssertCalled(t, "EnqueueProvisioning", mock.Anything, mock.Anything)

	// The notification reflects the auto-approved outcome, not the requested
	// proposal state.
	var messages []string
	for _, call := range m.notifier.Calls {
		messages = append(messages, call.Arguments.String(3))
	}
	assert.Contains(t, messages, "The request is now Approved.")
}

func TestInitializeRemoveResourceWithoutAssignedPerson(t *testing.T) {
	svc, m := newTestService()
	actor := testActor()

	req := &ResourceAllocationRequest{
		RequestCore: RequestCore{
			ID:         uuid.New(),
			ProjectID:  uuid.New(),
			PositionID: uuid.New(),
			Category:   CategoryChangeRequest,
			Subtype:    SubtypeRemoveResource,
			State:      workflow.StateCreated,
			Instance:   futureInstance(),
		},
	}

	m.repo.On("GetAllocation", mock.Anything, req.ID).Return(req, nil)
	m.repo.On("GetWorkflow", mock.Anything, req.ID).
		Return(nil, &NotFoundError{Entity: "workflow", ID: req.ID.String()})
	m.org.On("GetPosition", mock.Anything, req.ProjectID, req.PositionID).
		Return(testPosition("TDI EDT DEV"), nil)

	_, err := svc.InitializeAllocation(context.Background(), req.ID, actor)

	var validation ValidationErrors
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, "instance.assignedPerson", validation[0].Field)
	m.repo.AssertNotCalled(t, "CreateWorkflow", mock.Anything, mock.Anything)
}

func TestAdjustmentOnActiveInstanceRequiresChangeDate(t *testing.T) {
	svc, m := newTestService()
	actor := testActor()

	instance := futureInstance()
	instance.AppliesFrom = time.Now().AddDate(0, -1, 0)
	req := &ResourceAllocationRequest{
		RequestCore: RequestCore{
			ID:              uuid.New(),
			ProjectID:       uuid.New(),
			PositionID:      uuid.New(),
			Category:        CategoryChangeRequest,
			Subtype:         SubtypeAdjustment,
			State:           workflow.StateCreated,
			Instance:        instance,
			ProposedChanges: map[string]any{"workload": 50.0},
		},
	}

	m.repo.On("GetAllocation", mock.Anything, req.ID).Return(req, nil)
	m.repo.On("GetWorkflow", mock.Anything, req.ID).
		Return(nil, &NotFoundError{Entity: "workflow", ID: req.ID.String()})
	m.org.On("GetPosition", mock.Anything, req.ProjectID, req.PositionID).
		Return(testPosition("TDI EDT DEV"), nil)

	_, err := svc.InitializeAllocation(context.Background(), req.ID, actor)

	var validation ValidationErrors
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, "proposalParameters.changeDateFrom", validation[0].Field)
}

func TestConcurrentSetStateLoserGetsConflict(t *testing.T) {
	svc, m := newTestService()
	actor := testActor()

	req := &ResourceAllocationRequest{
		RequestCore: RequestCore{
			ID:         uuid.New(),
			ProjectID:  uuid.New(),
			PositionID: uuid.New(),
			Subtype:    SubtypeNormal,
			State:      workflow.StateCreated,
			Instance:   futureInstance(),
		},
	}
	def, err := workflow.New(workflow.KindAllocationNormal, actor)
	assert.NoError(t, err)
	row := NewWorkflowRow(req.ID, def)

	m.repo.On("GetAllocation", mock.Anything, req.ID).Return(req, nil)
	m.repo.On("GetWorkflow", mock.Anything, req.ID).Return(row, nil)
	m.people.On("ResolvePerson", mock.Anything, actor.ID.String()).
		Return(privilegedPerson(actor), nil)
	m.repo.On("Transaction", mock.Anything, mock.Anything).Return(nil)
	m.repo.On("SaveAllocation", mock.Anything, req, 0).
		Return(&ConflictError{Entity: "request", ID: req.ID.String()})

	_, err = svc.SetAllocationState(context.Background(), req.ID, workflow.StateProposed, actor, "")

	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestStaleTargetStateFailsCleanly(t *testing.T) {
	svc, m := newTestService()
	actor := testActor()

	req := &ResourceAllocationRequest{
		RequestCore: RequestCore{
			ID:         uuid.New(),
			ProjectID:  uuid.New(),
			PositionID: uuid.New(),
			Subtype:    SubtypeNormal,
			State:      workflow.StateProposed,
			Instance:   futureInstance(),
		},
	}
	// Workflow has already advanced past the proposal step.
	def, err := workflow.New(workflow.KindAllocationNormal, actor)
	assert.NoError(t, err)
	_, err = def.CompleteCurrentStep(workflow.StateProposed, actor)
	assert.NoError(t, err)
	row := NewWorkflowRow(req.ID, def)

	m.repo.On("GetAllocation", mock.Anything, req.ID).Return(req, nil)
	m.repo.On("GetWorkflow", mock.Anything, req.ID).Return(row, nil)
	m.people.On("ResolvePerson", mock.Anything, actor.ID.String()).
		Return(privilegedPerson(actor), nil)

	_, err = svc.SetAllocationState(context.Background(), req.ID, workflow.StateProposed, actor, "")

	var illegal *workflow.IllegalStateChangeError
	assert.ErrorAs(t, err, &illegal)
	m.repo.AssertNotCalled(t, "SaveAllocation", mock.Anything, mock.Anything, mock.Anything)
}

func TestRejectRequiresReason(t *testing.T) {
	svc, m := newTestService()
	actor := testActor()

	req := &ResourceAllocationRequest{
		RequestCore: RequestCore{
			ID:         uuid.New(),
			ProjectID:  uuid.New(),
			PositionID: uuid.New(),
			Subtype:    SubtypeNormal,
			State:      workflow.StateCreated,
			Instance:   futureInstance(),
		},
	}
	def, err := workflow.New(workflow.KindAllocationNormal, actor)
	assert.NoError(t, err)
	row := NewWorkflowRow(req.ID, def)

	m.repo.On("GetAllocation", mock.Anything, req.ID).Return(req, nil)
	m.repo.On("GetWorkflow", mock.Anything, req.ID).Return(row, nil)
	m.people.On("ResolvePerson", mock.Anything, actor.ID.String()).
		Return(privilegedPerson(actor), nil)

	_, err = svc.SetAllocationState(context.Background(), req.ID, workflow.StateRejected, actor, "")

	var validation ValidationErrors
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, "reason", validation[0].Field)
}

func TestCreateChangeRequestRejectsSecondActiveRequest(t *testing.T) {
	svc, m := newTestService()
	actor := testActor()

	projectID := uuid.New()
	positionID := uuid.New()
	originalID := uuid.New()
	instanceID := uuid.New()

	pos := testPosition("TDI EDT DEV")
	pos.ID = positionID
	pos.Instances = []orgchart.PositionInstance{{
		ID:          instanceID,
		AppliesFrom: time.Now().AddDate(0, -1, 0),
		AppliesTo:   time.Now().AddDate(1, 0, 0),
		Workload:    100,
	}}

	m.org.On("GetProject", mock.Anything, projectID).
		Return(&orgchart.Project{ID: projectID, Name: "Test project"}, nil)
	m.org.On("GetPosition", mock.Anything, projectID, positionID).Return(pos, nil)
	m.repo.On("ActiveAllocationForPosition", mock.Anything, originalID).
		Return(&ResourceAllocationRequest{RequestCore: RequestCore{ID: uuid.New()}}, nil)

	_, err := svc.CreateAllocation(context.Background(), CreateAllocationCommand{
		ProjectID:          projectID,
		Category:           CategoryChangeRequest,
		Subtype:            SubtypeAdjustment,
		PositionID:         positionID,
		InstanceID:         instanceID,
		OriginalPositionID: &originalID,
	}, actor)

	var validation ValidationErrors
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, "originalPositionId", validation[0].Field)
	m.repo.AssertNotCalled(t, "CreateAllocation", mock.Anything, mock.Anything)
}

func TestInitializeExpiredInstanceIsRejected(t *testing.T) {
	svc, m := newTestService()
	actor := testActor()

	instance := futureInstance()
	instance.AppliesFrom = time.Now().AddDate(-1, 0, 0)
	instance.AppliesTo = time.Now().AddDate(0, 0, -1)
	req := &ResourceAllocationRequest{
		RequestCore: RequestCore{
			ID:         uuid.New(),
			ProjectID:  uuid.New(),
			PositionID: uuid.New(),
			Category:   CategoryNewRequest,
			Subtype:    SubtypeNormal,
			State:      workflow.StateCreated,
			Instance:   instance,
		},
	}

	m.repo.On("GetAllocation", mock.Anything, req.ID).Return(req, nil)
	m.repo.On("GetWorkflow", mock.Anything, req.ID).
		Return(nil, &NotFoundError{Entity: "workflow", ID: req.ID.String()})
	m.org.On("GetPosition", mock.Anything, req.ProjectID, req.PositionID).
		Return(testPosition("TDI EDT DEV"), nil)

	_, err := svc.InitializeAllocation(context.Background(), req.ID, actor)

	var validation ValidationErrors
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, "instance.appliesTo", validation[0].Field)
}

func TestInitializeEnterpriseQueuesProvisioningImmediately(t *testing.T) {
	svc, m := newTestService()
	actor := testActor()

	req := &ResourceAllocationRequest{
		RequestCore: RequestCore{
			ID:         uuid.New(),
			ProjectID:  uuid.New(),
			PositionID: uuid.New(),
			Category:   CategoryNewRequest,
			Subtype:    SubtypeEnterprise,
			State:      workflow.StateCreated,
			Instance:   futureInstance(),
		},
	}

	m.repo.On("GetAllocation", mock.Anything, req.ID).Return(req, nil)
	m.repo.On("GetWorkflow", mock.Anything, req.ID).
		Return(nil, &NotFoundError{Entity: "workflow", ID: req.ID.String()})
	m.org.On("GetPosition", mock.Anything, req.ProjectID, req.PositionID).
		Return(testPosition("TDI EDT DEV"), nil)
	m.repo.On("Transaction", mock.Anything, mock.Anything).Return(nil)
	m.repo.On("SaveAllocation", mock.Anything, req, 0).Return(nil)
	m.repo.On("CreateWorkflow", mock.Anything, mock.Anything).Return(nil)

	var job *ProvisioningJob
	m.repo.On("EnqueueProvisioning", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { job = args.Get(1).(*ProvisioningJob) }).
		Return(nil)

	_, err := svc.InitializeAllocation(context.Background(), req.ID, actor)

	assert.NoError(t, err)
	if assert.NotNil(t, job) {
		assert.Equal(t, req.ID, job.RequestID)
		assert.Equal(t, FamilyAllocation, job.Family)
		assert.Equal(t, JobPending, job.Status)
	}
}

func TestInitializeRejectsInvertedChangeWindow(t *testing.T) {
	svc, m := newTestService()
	actor := testActor()

	changeFrom := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	changeTo := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	req := &ResourceAllocationRequest{
		RequestCore: RequestCore{
			ID:              uuid.New(),
			ProjectID:       uuid.New(),
			PositionID:      uuid.New(),
			Category:        CategoryChangeRequest,
			Subtype:         SubtypeAdjustment,
			State:           workflow.StateCreated,
			Instance:        futureInstance(),
			ProposedChanges: map[string]any{"workload": 50.0},
			Proposal:        ProposalParameters{ChangeFrom: &changeFrom, ChangeTo: &changeTo},
		},
	}

	m.repo.On("GetAllocation", mock.Anything, req.ID).Return(req, nil)
	m.repo.On("GetWorkflow", mock.Anything, req.ID).
		Return(nil, &NotFoundError{Entity: "workflow", ID: req.ID.String()})
	m.org.On("GetPosition", mock.Anything, req.ProjectID, req.PositionID).
		Return(testPosition("TDI EDT DEV"), nil)

	_, err := svc.InitializeAllocation(context.Background(), req.ID, actor)

	var validation ValidationErrors
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, "proposalParameters.changeDateTo", validation[0].Field)
	m.repo.AssertNotCalled(t, "CreateWorkflow", mock.Anything, mock.Anything)
}

func TestMarkProvisionedCommitsStatusWithTransition(t *testing.T) {
	svc, m := newTestService()
	actor := testActor()

	req := &ResourceAllocationRequest{
		RequestCore: RequestCore{
			ID:            uuid.New(),
			ProjectID:     uuid.New(),
			PositionID:    uuid.New(),
			Subtype:       SubtypeDirect,
			State:         workflow.StateApproved,
			Instance:      futureInstance(),
			CreatedByID:   actor.ID,
			CreatedByName: actor.Name,
		},
	}
	def, err := workflow.New(workflow.KindAllocationDirect, actor)
	assert.NoError(t, err)
	_, err = def.CompleteCurrentStep(workflow.StateProposed, actor)
	assert.NoError(t, err)
	_, err = def.CompleteCurrentStep(workflow.StateApproved, actor)
	assert.NoError(t, err)
	row := NewWorkflowRow(req.ID, def)

	m.repo.On("GetAllocation", mock.Anything, req.ID).Return(req, nil)
	m.repo.On("GetWorkflow", mock.Anything, req.ID).Return(row, nil)
	m.people.On("ResolvePerson", mock.Anything, actor.ID.String()).
		Return(privilegedPerson(actor), nil)
	m.repo.On("Transaction", mock.Anything, mock.Anything).Return(nil)

	var saved *ResourceAllocationRequest
	m.repo.On("SaveAllocation", mock.Anything, req, 0).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*ResourceAllocationRequest) }).
		Return(nil)
	m.repo.On("SaveWorkflow", mock.Anything, row).Return(nil)

	err = svc.MarkProvisioned(context.Background(), FamilyAllocation, req.ID, req.PositionID, actor)

	assert.NoError(t, err)
	// One save: the transition and the provisioning status commit together.
	m.repo.AssertNumberOfCalls(t, "SaveAllocation", 1)
	if assert.NotNil(t, saved) {
		assert.Equal(t, workflow.StateCompleted, saved.State)
		assert.Equal(t, ProvisioningProvisioned, saved.Provisioning.State)
		assert.Equal(t, req.PositionID, *saved.Provisioning.PositionID)
		assert.NotNil(t, saved.Provisioning.Provisioned)
	}
	assert.True(t, row.Completed)
}

func stepState(row *WorkflowRow, stepID string) string {
	for _, s := range row.Steps {
		if s.StepID == stepID {
			return s.State
		}
	}
	return ""
}

func stepDescription(row *WorkflowRow, stepID string) string {
	for _, s := range row.Steps {
		if s.StepID == stepID {
			return s.Description
		}
	}
	return ""
}
