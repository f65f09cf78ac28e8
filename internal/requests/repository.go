package requests

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

// Repository is the persistence boundary for requests, workflows and
// provisioning jobs. Commands load, mutate and save within one transaction.
type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	CreateAllocation(ctx context.Context, r *ResourceAllocationRequest) error
	GetAllocation(ctx context.Context, id uuid.UUID) (*ResourceAllocationRequest, error)
	SaveAllocation(ctx context.Context, r *ResourceAllocationRequest, expectedVersion int) error
	ActiveAllocationForPosition(ctx context.Context, originalPositionID uuid.UUID) (*ResourceAllocationRequest, error)
	ListAllocationsByProject(ctx context.Context, projectID uuid.UUID) ([]ResourceAllocationRequest, error)

	CreateContractor(ctx context.Context, r *ContractorRequest) error
	GetContractor(ctx context.Context, id uuid.UUID) (*ContractorRequest, error)
	SaveContractor(ctx context.Context, r *ContractorRequest, expectedVersion int) error
	ListContractorsByContract(ctx context.Context, contractID uuid.UUID) ([]ContractorRequest, error)

	CreateWorkflow(ctx context.Context, w *WorkflowRow) error
	GetWorkflow(ctx context.Context, requestID uuid.UUID) (*WorkflowRow, error)
	SaveWorkflow(ctx context.Context, w *WorkflowRow) error

	EnqueueProvisioning(ctx context.Context, job *ProvisioningJob) error
	PendingProvisioningJobs(ctx context.Context, limit int) ([]ProvisioningJob, error)
	MarkJob(ctx context.Context, id uuid.UUID, status, lastError string) error
}

// GormRepository implements Repository on PostgreSQL via gorm.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates the request tables.
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(
		&ResourceAllocationRequest{},
		&ContractorRequest{},
		&WorkflowRow{},
		&WorkflowStepRow{},
		&ProvisioningJob{},
	)
}

func (r *GormRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx})
	})
}

func (r *GormRepository) CreateAllocation(ctx context.Context, req *ResourceAllocationRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create allocation request: %w", err)
	}
	return nil
}

func (r *GormRepository) GetAllocation(ctx context.Context, id uuid.UUID) (*ResourceAllocationRequest, error) {
	var req ResourceAllocationRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "request", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load allocation request: %w", err)
	}
	return &req, nil
}

// SaveAllocation writes the request guarded by an optimistic version check;
// a concurrent writer surfaces as ConflictError.
func (r *GormRepository) SaveAllocation(ctx context.Context, req *ResourceAllocationRequest, expectedVersion int) error {
	req.Version = expectedVersion + 1
	res := r.db.WithContext(ctx).
		Model(&ResourceAllocationRequest{}).
		Where("id = ? AND version = ?", req.ID, expectedVersion).
		Select("*").
		Updates(req)
	if res.Error != nil {
		return fmt.Errorf("failed to save allocation request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &ConflictError{Entity: "request", ID: req.ID.String()}
	}
	return nil
}

func (r *GormRepository) ActiveAllocationForPosition(ctx context.Context, originalPositionID uuid.UUID) (*ResourceAllocationRequest, error) {
	var req ResourceAllocationRequest
	err := r.db.WithContext(ctx).
		Where("original_position_id = ? AND state NOT IN ?", originalPositionID, terminalStates()).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active requests for position: %w", err)
	}
	return &req, nil
}

func (r *GormRepository) ListAllocationsByProject(ctx context.Context, projectID uuid.UUID) ([]ResourceAllocationRequest, error) {
	var out []ResourceAllocationRequest
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list allocation requests: %w", err)
	}
	return out, nil
}

func (r *GormRepository) CreateContractor(ctx context.Context, req *ContractorRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create contractor request: %w", err)
	}
	return nil
}

func (r *GormRepository) GetContractor(ctx context.Context, id uuid.UUID) (*ContractorRequest, error) {
	var req ContractorRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "request", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contractor request: %w", err)
	}
	return &req, nil
}

func (r *GormRepository) SaveContractor(ctx context.Context, req *ContractorRequest, expectedVersion int) error {
	req.Version = expectedVersion + 1
	res := r.db.WithContext(ctx).
		Model(&ContractorRequest{}).
		Where("id = ? AND version = ?", req.ID, expectedVersion).
		Select("*").
		Updates(req)
	if res.Error != nil {
		return fmt.Errorf("failed to save contractor request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &ConflictError{Entity: "request", ID: req.ID.String()}
	}
	return nil
}

func (r *GormRepository) ListContractorsByContract(ctx context.Context, contractID uuid.UUID) ([]ContractorRequest, error) {
	var out []ContractorRequest
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contractor requests: %w", err)
	}
	return out, nil
}

func (r *GormRepository) CreateWorkflow(ctx context.Context, w *WorkflowRow) error {
	if err := r.db.WithContext(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	return nil
}

func (r *GormRepository) GetWorkflow(ctx context.Context, requestID uuid.UUID) (*WorkflowRow, error) {
	var w WorkflowRow
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		First(&w, "request_id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "workflow", ID: requestID.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	return &w, nil
}

func (r *GormRepository) SaveWorkflow(ctx context.Context, w *WorkflowRow) error {
	if err := r.db.WithContext(ctx).Save(w).Error; err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}
	for i := range w.Steps {
		if err := r.db.WithContext(ctx).Save(&w.Steps[i]).Error; err != nil {
			return fmt.Errorf("failed to save workflow step %s: %w", w.Steps[i].StepID, err)
		}
	}
	return nil
}

func (r *GormRepository) EnqueueProvisioning(ctx context.Context, job *ProvisioningJob) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to enqueue provisioning job: %w", err)
	}
	return nil
}

func (r *GormRepository) PendingProvisioningJobs(ctx context.Context, limit int) ([]ProvisioningJob, error) {
	var jobs []ProvisioningJob
	err := r.db.WithContext(ctx).
		Where("status = ?", JobPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query pending provisioning jobs: %w", err)
	}
	return jobs, nil
}

func (r *GormRepository) MarkJob(ctx context.Context, id uuid.UUID, status, lastError string) error {
	res := r.db.WithContext(ctx).
		Model(&ProvisioningJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"last_error": lastError,
			"attempts":   gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update provisioning job: %w", res.Error)
	}
	return nil
}

func terminalStates() []string {
	return []string{
		string(workflow.StateCompleted),
		string(workflow.StateRejected),
		string(workflow.StateRejectedByCompany),
		string(workflow.StateRejectedByContractor),
	}
}
