package requests

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/equinor/fusion-app-resources-sub003/internal/lineorg"
	"github.com/equinor/fusion-app-resources-sub003/internal/orgchart"
	"github.com/equinor/fusion-app-resources-sub003/internal/people"
	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(m)
}

func (m *MockRepository) CreateAllocation(ctx context.Context, r *ResourceAllocationRequest) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRepository) GetAllocation(ctx context.Context, id uuid.UUID) (*ResourceAllocationRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ResourceAllocationRequest), args.Error(1)
}

func (m *MockRepository) SaveAllocation(ctx context.Context, r *ResourceAllocationRequest, expectedVersion int) error {
	args := m.Called(ctx, r, expectedVersion)
	return args.Error(0)
}

func (m *MockRepository) ActiveAllocationForPosition(ctx context.Context, originalPositionID uuid.UUID) (*ResourceAllocationRequest, error) {
	args := m.Called(ctx, originalPositionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ResourceAllocationRequest), args.Error(1)
}

func (m *MockRepository) ListAllocationsByProject(ctx context.Context, projectID uuid.UUID) ([]ResourceAllocationRequest, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]ResourceAllocationRequest), args.Error(1)
}

func (m *MockRepository) CreateContractor(ctx context.Context, r *ContractorRequest) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRepository) GetContractor(ctx context.Context, id uuid.UUID) (*ContractorRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ContractorRequest), args.Error(1)
}

func (m *MockRepository) SaveContractor(ctx context.Context, r *ContractorRequest, expectedVersion int) error {
	args := m.Called(ctx, r, expectedVersion)
	return args.Error(0)
}

func (m *MockRepository) ListContractorsByContract(ctx context.Context, contractID uuid.UUID) ([]ContractorRequest, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).([]ContractorRequest), args.Error(1)
}

func (m *MockRepository) CreateWorkflow(ctx context.Context, w *WorkflowRow) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockRepository) GetWorkflow(ctx context.Context, requestID uuid.UUID) (*WorkflowRow, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WorkflowRow), args.Error(1)
}

func (m *MockRepository) SaveWorkflow(ctx context.Context, w *WorkflowRow) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockRepository) EnqueueProvisioning(ctx context.Context, job *ProvisioningJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockRepository) PendingProvisioningJobs(ctx context.Context, limit int) ([]ProvisioningJob, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]ProvisioningJob), args.Error(1)
}

func (m *MockRepository) MarkJob(ctx context.Context, id uuid.UUID, status, lastError string) error {
	args := m.Called(ctx, id, status, lastError)
	return args.Error(0)
}

// MockOrgClient is a mock implementation of the org chart client
type MockOrgClient struct {
	mock.Mock
}

func (m *MockOrgClient) GetProject(ctx context.Context, projectID uuid.UUID) (*orgchart.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orgchart.Project), args.Error(1)
}

func (m *MockOrgClient) GetContract(ctx context.Context, projectID, contractID uuid.UUID) (*orgchart.Contract, error) {
	args := m.Called(ctx, projectID, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orgchart.Contract), args.Error(1)
}

func (m *MockOrgClient) IsPersonOnContract(ctx context.Context, projectID, contractID, personID uuid.UUID) (bool, error) {
	args := m.Called(ctx, projectID, contractID, personID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrgClient) IsExternalContractRep(ctx context.Context, projectID, contractID, personID uuid.UUID) (bool, error) {
	args := m.Called(ctx, projectID, contractID, personID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrgClient) HasWriteAccess(ctx context.Context, projectID, personID uuid.UUID) (bool, error) {
	args := m.Called(ctx, projectID, personID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrgClient) GetPosition(ctx context.Context, projectID, positionID uuid.UUID) (*orgchart.Position, error) {
	args := m.Called(ctx, projectID, positionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orgchart.Position), args.Error(1)
}

func (m *MockOrgClient) GetPositionRaw(ctx context.Context, projectID, positionID uuid.UUID) (map[string]any, error) {
	args := m.Called(ctx, projectID, positionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockOrgClient) PutPositionRaw(ctx context.Context, projectID, positionID uuid.UUID, payload map[string]any) error {
	args := m.Called(ctx, projectID, positionID, payload)
	return args.Error(0)
}

func (m *MockOrgClient) PatchPositionInstance(ctx context.Context, projectID, positionID, instanceID uuid.UUID, patch map[string]any) error {
	args := m.Called(ctx, projectID, positionID, instanceID, patch)
	return args.Error(0)
}

func (m *MockOrgClient) CreateDraft(ctx context.Context, projectID uuid.UUID, name string) (*orgchart.Draft, error) {
	args := m.Called(ctx, projectID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orgchart.Draft), args.Error(1)
}

func (m *MockOrgClient) GetDraft(ctx context.Context, projectID, draftID uuid.UUID) (*orgchart.Draft, error) {
	args := m.Called(ctx, projectID, draftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orgchart.Draft), args.Error(1)
}

func (m *MockOrgClient) PatchPosition(ctx context.Context, projectID, draftID, positionID uuid.UUID, patch map[string]any) error {
	args := m.Called(ctx, projectID, draftID, positionID, patch)
	return args.Error(0)
}

func (m *MockOrgClient) PatchInstance(ctx context.Context, projectID, draftID, positionID, instanceID uuid.UUID, patch map[string]any) error {
	args := m.Called(ctx, projectID, draftID, positionID, instanceID, patch)
	return args.Error(0)
}

func (m *MockOrgClient) PublishDraft(ctx context.Context, projectID, draftID uuid.UUID) error {
	args := m.Called(ctx, projectID, draftID)
	return args.Error(0)
}

func (m *MockOrgClient) DeleteDraft(ctx context.Context, projectID, draftID uuid.UUID) error {
	args := m.Called(ctx, projectID, draftID)
	return args.Error(0)
}

// MockPeopleClient is a mock implementation of the profile client
type MockPeopleClient struct {
	mock.Mock
}

func (m *MockPeopleClient) ResolvePerson(ctx context.Context, identifier string) (*people.Person, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*people.Person), args.Error(1)
}

// MockLineOrgClient is a mock implementation of the line org client
type MockLineOrgClient struct {
	mock.Mock
}

func (m *MockLineOrgClient) GetDepartment(ctx context.Context, path string) (*lineorg.Department, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lineorg.Department), args.Error(1)
}

func (m *MockLineOrgClient) GetResourceOwner(ctx context.Context, department string) (*people.Person, error) {
	args := m.Called(ctx, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*people.Person), args.Error(1)
}

func (m *MockLineOrgClient) ListDepartments(ctx context.Context) ([]lineorg.Department, error) {
	args := m.Called(ctx)
	return args.Get(0).([]lineorg.Department), args.Error(1)
}

// MockNotifier records dispatched notifications.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, recipient workflow.Actor, title, message, category string) {
	m.Called(ctx, recipient, title, message, category)
}
