package provisioning

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/equinor/fusion-app-resources-sub003/internal/orgchart"
)

// mockOrgClient is a mock implementation of the org chart client
type mockOrgClient struct {
	mock.Mock
}

func (m *mockOrgClient) GetProject(ctx context.Context, projectID uuid.UUID) (*orgchart.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orgchart.Project), args.Error(1)
}

func (m *mockOrgClient) GetContract(ctx context.Context, projectID, contractID uuid.UUID) (*orgchart.Contract, error) {
	args := m.Called(ctx, projectID, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orgchart.Contract), args.Error(1)
}

func (m *mockOrgClient) IsPersonOnContract(ctx context.Context, projectID, contractID, personID uuid.UUID) (bool, error) {
	args := m.Called(ctx, projectID, contractID, personID)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrgClient) IsExternalContractRep(ctx context.Context, projectID, contractID, personID uuid.UUID) (bool, error) {
	args := m.Called(ctx, projectID, contractID, personID)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrgClient) HasWriteAccess(ctx context.Context, projectID, personID uuid.UUID) (bool, error) {
	args := m.Called(ctx, projectID, personID)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrgClient) GetPosition(ctx context.Context, projectID, positionID uuid.UUID) (*orgchart.Position, error) {
	args := m.Called(ctx, projectID, positionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orgchart.Position), args.Error(1)
}

func (m *mockOrgClient) GetPositionRaw(ctx context.Context, projectID, positionID uuid.UUID) (map[string]any, error) {
	args := m.Called(ctx, projectID, positionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *mockOrgClient) PutPositionRaw(ctx context.Context, projectID, positionID uuid.UUID, payload map[string]any) error {
	args := m.Called(ctx, projectID, positionID, payload)
	return args.Error(0)
}

func (m *mockOrgClient) PatchPositionInstance(ctx context.Context, projectID, positionID, instanceID uuid.UUID, patch map[string]any) error {
	args := m.Called(ctx, projectID, positionID, instanceID, patch)
	return args.Error(0)
}

func (m *mockOrgClient) CreateDraft(ctx context.Context, projectID uuid.UUID, name string) (*orgchart.Draft, error) {
	args := m.Called(ctx, projectID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orgchart.Draft), args.Error(1)
}

func (m *mockOrgClient) GetDraft(ctx context.Context, projectID, draftID uuid.UUID) (*orgchart.Draft, error) {
	args := m.Called(ctx, projectID, draftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orgchart.Draft), args.Error(1)
}

func (m *mockOrgClient) PatchPosition(ctx context.Context, projectID, draftID, positionID uuid.UUID, patch map[string]any) error {
	args := m.Called(ctx, projectID, draftID, positionID, patch)
	return args.Error(0)
}

func (m *mockOrgClient) PatchInstance(ctx context.Context, projectID, draftID, positionID, instanceID uuid.UUID, patch map[string]any) error {
	args := m.Called(ctx, projectID, draftID, positionID, instanceID, patch)
	return args.Error(0)
}

func (m *mockOrgClient) PublishDraft(ctx context.Context, projectID, draftID uuid.UUID) error {
	args := m.Called(ctx, projectID, draftID)
	return args.Error(0)
}

func (m *mockOrgClient) DeleteDraft(ctx context.Context, projectID, draftID uuid.UUID) error {
	args := m.Called(ctx, projectID, draftID)
	return args.Error(0)
}
