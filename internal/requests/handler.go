package requests

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/equinor/fusion-app-resources-sub003/internal/auth"
	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

// Handler exposes the request lifecycle over HTTP.
type Handler struct {
	service *Service
	repo    Repository
	logger  *zap.Logger
}

func NewHandler(service *Service, repo Repository, logger *zap.Logger) *Handler {
	return &Handler{service: service, repo: repo, logger: logger}
}

// RegisterRoutes registers request routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	projects := r.Group("/projects/:projectId")
	{
		projects.POST("/requests", h.CreateAllocation)
		projects.GET("/requests", h.ListAllocations)
		projects.POST("/contracts/:contractId/requests", h.CreateContractor)
		projects.GET("/contracts/:contractId/requests", h.ListContractors)
	}
	requests := r.Group("/requests/:requestId")
	{
		requests.GET("", h.GetRequest)
		requests.POST("/initialize", h.Initialize)
		requests.POST("/approve", h.ApproveRequest)
		requests.POST("/reject", h.RejectRequest)
		requests.POST("/state", h.SetState)
		requests.POST("/provision", h.RetryProvisioning)
		requests.GET("/workflow", h.GetWorkflow)
	}
}

type createAllocationBody struct {
	ContractID         *uuid.UUID         `json:"contractId"`
	Category           RequestCategory    `json:"category" binding:"required"`
	Subtype            string             `json:"subtype"`
	PositionID         uuid.UUID          `json:"positionId" binding:"required"`
	InstanceID         uuid.UUID          `json:"instanceId" binding:"required"`
	OriginalPositionID *uuid.UUID         `json:"originalPositionId"`
	ProposedPersonID   *uuid.UUID         `json:"proposedPersonId"`
	ProposedChanges    map[string]any     `json:"proposedChanges"`
	Proposal           ProposalParameters `json:"proposalParameters"`
	IsDraft            bool               `json:"isDraft"`
}

func (h *Handler) CreateAllocation(c *gin.Context) {
	projectID, ok := pathUUID(c, "projectId")
	if !ok {
		return
	}
	var body createAllocationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.service.CreateAllocation(c.Request.Context(), CreateAllocationCommand{
		ProjectID:          projectID,
		ContractID:         body.ContractID,
		Category:           body.Category,
		Subtype:            body.Subtype,
		PositionID:         body.PositionID,
		InstanceID:         body.InstanceID,
		OriginalPositionID: body.OriginalPositionID,
		ProposedPersonID:   body.ProposedPersonID,
		ProposedChanges:    body.ProposedChanges,
		Proposal:           body.Proposal,
		IsDraft:            body.IsDraft,
	}, auth.ActorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

type createContractorBody struct {
	Category        RequestCategory `json:"category" binding:"required"`
	PositionID      uuid.UUID       `json:"positionId" binding:"required"`
	InstanceID      uuid.UUID       `json:"instanceId" binding:"required"`
	Person          string          `json:"person" binding:"required"`
	ProposedChanges map[string]any  `json:"proposedChanges"`
	IsDraft         bool            `json:"isDraft"`
}

func (h *Handler) CreateContractor(c *gin.Context) {
	projectID, ok := pathUUID(c, "projectId")
	if !ok {
		return
	}
	contractID, ok := pathUUID(c, "contractId")
	if !ok {
		return
	}
	var body createContractorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.service.CreateContractor(c.Request.Context(), CreateContractorCommand{
		ProjectID:        projectID,
		ContractID:       contractID,
		Category:         body.Category,
		PositionID:       body.PositionID,
		InstanceID:       body.InstanceID,
		PersonIdentifier: body.Person,
		ProposedChanges:  body.ProposedChanges,
		IsDraft:          body.IsDraft,
	}, auth.ActorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *Handler) Initialize(c *gin.Context) {
	id, ok := pathUUID(c, "requestId")
	if !ok {
		return
	}
	actor := auth.ActorFrom(c)

	family, err := h.familyOf(c, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if family == FamilyContractor {
		req, err := h.service.InitializeContractor(c.Request.Context(), id, actor)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, req)
		return
	}
	req, err := h.service.InitializeAllocation(c.Request.Context(), id, actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) ApproveRequest(c *gin.Context) {
	id, ok := pathUUID(c, "requestId")
	if !ok {
		return
	}
	family, err := h.familyOf(c, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.service.Approve(c.Request.Context(), family, id, auth.ActorFrom(c)); err != nil {
		h.writeError(c, err)
		return
	}
	h.writeRequest(c, family, id)
}

type rejectBody struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectRequest(c *gin.Context) {
	id, ok := pathUUID(c, "requestId")
	if !ok {
		return
	}
	var body rejectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	family, err := h.familyOf(c, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.service.Reject(c.Request.Context(), family, id, auth.ActorFrom(c), body.Reason); err != nil {
		h.writeError(c, err)
		return
	}
	h.writeRequest(c, family, id)
}

type setStateBody struct {
	State  workflow.RequestState `json:"state" binding:"required"`
	Reason string                `json:"reason"`
}

func (h *Handler) SetState(c *gin.Context) {
	id, ok := pathUUID(c, "requestId")
	if !ok {
		return
	}
	var body setStateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	family, err := h.familyOf(c, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	actor := auth.ActorFrom(c)
	if family == FamilyContractor {
		req, err := h.service.SetContractorState(c.Request.Context(), id, body.State, actor, body.Reason)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, req)
		return
	}
	req, err := h.service.SetAllocationState(c.Request.Context(), id, body.State, actor, body.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// RetryProvisioning re-enqueues a request whose provisioning run failed.
func (h *Handler) RetryProvisioning(c *gin.Context) {
	id, ok := pathUUID(c, "requestId")
	if !ok {
		return
	}
	family, err := h.familyOf(c, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	job := &ProvisioningJob{
		ID:        uuid.New(),
		RequestID: id,
		Family:    family,
		Status:    JobPending,
	}
	if err := h.repo.EnqueueProvisioning(c.Request.Context(), job); err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("Provisioning retry queued",
		zap.String("requestId", id.String()),
		zap.String("actor", auth.ActorFrom(c).Name))
	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID})
}

func (h *Handler) GetRequest(c *gin.Context) {
	id, ok := pathUUID(c, "requestId")
	if !ok {
		return
	}
	family, err := h.familyOf(c, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeRequest(c, family, id)
}

func (h *Handler) GetWorkflow(c *gin.Context) {
	id, ok := pathUUID(c, "requestId")
	if !ok {
		return
	}
	row, err := h.repo.GetWorkflow(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, workflowView(row))
}

func (h *Handler) ListAllocations(c *gin.Context) {
	projectID, ok := pathUUID(c, "projectId")
	if !ok {
		return
	}
	out, err := h.repo.ListAllocationsByProject(c.Request.Context(), projectID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": out})
}

func (h *Handler) ListContractors(c *gin.Context) {
	contractID, ok := pathUUID(c, "contractId")
	if !ok {
		return
	}
	out, err := h.repo.ListContractorsByContract(c.Request.Context(), contractID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": out})
}

// familyOf resolves which request table holds the id.
func (h *Handler) familyOf(c *gin.Context, id uuid.UUID) (RequestFamily, error) {
	if _, err := h.repo.GetAllocation(c.Request.Context(), id); err == nil {
		return FamilyAllocation, nil
	} else {
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			return "", err
		}
	}
	if _, err := h.repo.GetContractor(c.Request.Context(), id); err != nil {
		return "", err
	}
	return FamilyContractor, nil
}

func (h *Handler) writeRequest(c *gin.Context, family RequestFamily, id uuid.UUID) {
	if family == FamilyContractor {
		req, err := h.repo.GetContractor(c.Request.Context(), id)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, req)
		return
	}
	req, err := h.repo.GetAllocation(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		validation ValidationErrors
		notFound   *NotFoundError
		forbidden  *UnauthorizedError
		conflict   *ConflictError
		illegal    *workflow.IllegalStateChangeError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": validation})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": forbidden.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case errors.As(err, &illegal):
		c.JSON(http.StatusConflict, gin.H{"error": illegal.Error()})
	default:
		h.logger.Error("Request handler failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a uuid"})
		return uuid.Nil, false
	}
	return id, true
}

// workflowView shapes the persisted workflow for API consumers.
func workflowView(row *WorkflowRow) gin.H {
	steps := make([]gin.H, len(row.Steps))
	for i, s := range row.Steps {
		step := gin.H{
			"id":          s.StepID,
			"name":        s.Name,
			"description": s.Description,
			"state":       s.State,
			"started":     s.StartedAt,
			"completed":   s.CompletedAt,
			"reason":      s.Reason,
		}
		if s.CompletedByID != nil {
			step["completedBy"] = gin.H{
				"id":   s.CompletedByID,
				"name": s.CompletedByName,
				"mail": s.CompletedByMail,
			}
		}
		steps[i] = step
	}
	var completedAt *time.Time
	if row.CompletedAt != nil {
		completedAt = row.CompletedAt
	}
	return gin.H{
		"requestId":   row.RequestID,
		"kind":        row.Kind,
		"version":     row.Version,
		"completed":   row.Completed,
		"completedAt": completedAt,
		"steps":       steps,
	}
}
