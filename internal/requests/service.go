package requests

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/equinor/fusion-app-resources-sub003/internal/lineorg"
	"github.com/equinor/fusion-app-resources-sub003/internal/orgchart"
	"github.com/equinor/fusion-app-resources-sub003/internal/people"
	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

// Notifier dispatches a rendered notification to a person. Implementations
// are fire and forget: failures are logged, never propagated into the command
// transaction, and notifications are published only after commit.
type Notifier interface {
	Notify(ctx context.Context, recipient workflow.Actor, title, message, category string)
}

// Notification categories.
const (
	NotifyWorkflowStarted = "WORKFLOW_STARTED"
	NotifyStateChanged    = "STATE_CHANGED"
	NotifyRequestRejected = "REQUEST_REJECTED"
)

// Service orchestrates the request lifecycle commands. Each command is one
// load-mutate-save unit of work; no state is shared across invocations.
type Service struct {
	repo     Repository
	org      orgchart.Client
	people   people.Client
	lineorg  lineorg.Client
	notifier Notifier
	logger   *zap.Logger
}

func NewService(
	repo Repository,
	org orgchart.Client,
	peopleClient people.Client,
	lineorgClient lineorg.Client,
	notifier Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:     repo,
		org:      org,
		people:   peopleClient,
		lineorg:  lineorgClient,
		notifier: notifier,
		logger:   logger,
	}
}

// notify hands off to the sink, tolerating a nil sink in tests.
func (s *Service) notify(ctx context.Context, recipient workflow.Actor, title, message, category string) {
	if s.notifier == nil || recipient.ID == uuid.Nil {
		return
	}
	s.notifier.Notify(ctx, recipient, title, message, category)
}

// orgNotFound converts an org chart 404 into a NotFoundError for the given
// entity; other errors pass through unchanged.
func orgNotFound(err error, entity string, id uuid.UUID) error {
	var apiErr *orgchart.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return &NotFoundError{Entity: entity, ID: id.String()}
	}
	return err
}

// resolveAllocationSubtype derives the workflow subtype from the org chart
// position when the request did not name one explicitly.
func resolveAllocationSubtype(pos *orgchart.Position) string {
	if v, ok := pos.Properties["isJointVenture"].(bool); ok && v {
		return SubtypeJointVenture
	}
	switch strings.ToLower(pos.BasePosition.ProjectType) {
	case "jointventure":
		return SubtypeJointVenture
	case "enterprise":
		return SubtypeEnterprise
	case "direct":
		return SubtypeDirect
	default:
		return SubtypeNormal
	}
}
