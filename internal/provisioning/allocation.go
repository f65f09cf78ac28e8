package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/equinor/fusion-app-resources-sub003/internal/orgchart"
	"github.com/equinor/fusion-app-resources-sub003/internal/requests"
)

const (
	draftReadyAttempts = 3
	draftReadyBackoff  = time.Second
)

// ProvisionAllocationRequest realizes an approved allocation through the org
// chart's draft-and-publish flow: create a draft, wait for it to initialize,
// patch the position and the targeted instance, then publish. A failure after
// draft creation deletes the draft so no orphan blocks later runs.
func (s *Service) ProvisionAllocationRequest(ctx context.Context, req *requests.ResourceAllocationRequest) error {
	changes := map[string]any(req.ProposedChanges)
	var person *orgchart.PersonRef
	if req.ProposedPerson.HasValue() {
		id := *req.ProposedPerson.PersonID
		person = &orgchart.PersonRef{
			AzureUniqueID: &id,
			Mail:          req.ProposedPerson.Mail,
			Name:          req.ProposedPerson.Name,
		}
	}
	return s.applyDraft(ctx, req.ProjectID, req.PositionID, req.Instance.InstanceID,
		req.ID.String(), changes, person)
}

func (s *Service) applyDraft(ctx context.Context, projectID, positionID, instanceID uuid.UUID, requestID string, changes map[string]any, person *orgchart.PersonRef) error {
	draft, err := s.org.CreateDraft(ctx, projectID, "Resource request "+requestID)
	if err != nil {
		return provisionError("draft creation", err)
	}
	if err := s.awaitDraftReady(ctx, projectID, draft.ID); err != nil {
		s.cleanupDraft(ctx, projectID, draft.ID)
		return err
	}

	positionPatch, instancePatch := splitPatches(changes)
	if person != nil {
		instancePatch["assignedPerson"] = person
	}

	if len(positionPatch) > 0 {
		if err := s.org.PatchPosition(ctx, projectID, draft.ID, positionID, positionPatch); err != nil {
			s.cleanupDraft(ctx, projectID, draft.ID)
			return provisionError("position patch", err)
		}
	}
	if len(instancePatch) > 0 {
		if err := s.org.PatchInstance(ctx, projectID, draft.ID, positionID, instanceID, instancePatch); err != nil {
			s.cleanupDraft(ctx, projectID, draft.ID)
			return provisionError("instance patch", err)
		}
	}

	if err := s.org.PublishDraft(ctx, projectID, draft.ID); err != nil {
		s.cleanupDraft(ctx, projectID, draft.ID)
		return provisionError("draft publish", err)
	}
	s.logger.Info("Draft published",
		zap.String("projectId", projectID.String()),
		zap.String("draftId", draft.ID.String()),
		zap.String("positionId", positionID.String()))
	return nil
}

// awaitDraftReady polls the asynchronously initialized draft. A draft that is
// still initializing after the final attempt aborts the run.
func (s *Service) awaitDraftReady(ctx context.Context, projectID, draftID uuid.UUID) error {
	for attempt := 1; attempt <= draftReadyAttempts; attempt++ {
		draft, err := s.org.GetDraft(ctx, projectID, draftID)
		if err != nil {
			return provisionError("draft lookup", err)
		}
		if draft.Status == orgchart.DraftReady {
			return nil
		}
		if attempt == draftReadyAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(draftReadyBackoff):
		}
	}
	s.logger.Error("Draft never became ready",
		zap.String("projectId", projectID.String()),
		zap.String("draftId", draftID.String()),
		zap.Int("attempts", draftReadyAttempts))
	return fmt.Errorf("draft %s did not become ready after %d attempts", draftID, draftReadyAttempts)
}

// cleanupDraft deletes a draft left behind by a failed run. Best effort: a
// cleanup failure is logged, the original error still propagates.
func (s *Service) cleanupDraft(ctx context.Context, projectID, draftID uuid.UUID) {
	if err := s.org.DeleteDraft(ctx, projectID, draftID); err != nil {
		s.logger.Warn("Failed to delete orphaned draft",
			zap.String("projectId", projectID.String()),
			zap.String("draftId", draftID.String()),
			zap.Error(err))
	}
}

// splitPatches separates proposed changes into position-level and
// instance-level patches. Everything except the known position fields applies
// to the instance.
func splitPatches(changes map[string]any) (position, instance map[string]any) {
	position = map[string]any{}
	instance = map[string]any{}
	for key, value := range changes {
		switch key {
		case "basePosition", "name", "parentPositionId":
			position[key] = value
		default:
			instance[key] = value
		}
	}
	return position, instance
}
