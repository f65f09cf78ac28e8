package requests

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/equinor/fusion-app-resources-sub003/internal/people"
	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

// Roles that bypass the per-step access table.
const (
	RoleResourcesFullControl = "Resources.FullControl"
	RoleResourcesAdmin       = "Resources.Admin"
	RoleOrgAdmin             = "Org.Admin"
)

// accessSubject carries the request context an access predicate may need.
type accessSubject struct {
	projectID  uuid.UUID
	positionID uuid.UUID
	contractID *uuid.UUID
	creatorID  uuid.UUID
}

// accessCheck is one predicate an actor may satisfy to complete a step.
// Predicates are OR-ed; the first match grants access.
type accessCheck func(ctx context.Context, s *Service, actor *people.Person, sub accessSubject) (bool, error)

// accessRules names, per workflow kind and step, who may complete the step.
// Steps absent from the table (created, provisioning) accept only privileged
// roles and service accounts.
var accessRules = map[workflow.Kind]map[string][]accessCheck{
	workflow.KindAllocationNormal: {
		workflow.StepProposal: {isResourceOwner, isParentResourceOwner, isSiblingResourceOwner},
		workflow.StepApproval: {isTaskOwner, hasOrgChartWrite, isCreator},
	},
	workflow.KindAllocationDirect: {
		workflow.StepProposal: {isResourceOwner, isParentResourceOwner, isSiblingResourceOwner},
		workflow.StepApproval: {isTaskOwner, hasOrgChartWrite, isCreator},
	},
	workflow.KindAllocationJointVenture: {
		workflow.StepApproval: {isResourceOwner, isParentResourceOwner, isTaskOwner, hasOrgChartWrite},
	},
	workflow.KindResourceOwnerChange: {
		workflow.StepAcceptance: {isTaskOwner, hasOrgChartWrite, isCreator},
	},
	workflow.KindTaskOwnerChange: {
		workflow.StepAcceptance: {isResourceOwner, isParentResourceOwner, isSiblingResourceOwner},
	},
	workflow.KindContractorPersonnel: {
		workflow.StepContractorApproval: {isExternalContractRep, isCreator},
		workflow.StepCompanyApproval:    {isCompanyContractRep, hasOrgChartWrite},
	},
}

// checkAccess verifies that the actor may complete the named step. Service
// accounts and holders of a privileged role always pass; everyone else must
// satisfy at least one predicate from the access table.
func (s *Service) checkAccess(ctx context.Context, kind workflow.Kind, stepID string, actor workflow.Actor, sub accessSubject) error {
	profile, err := s.people.ResolvePerson(ctx, actor.ID.String())
	if err != nil {
		return err
	}
	if profile == nil {
		return &UnauthorizedError{ActorName: actor.Name, Step: stepID}
	}
	if profile.AccountType == people.AccountTypeApplication {
		return nil
	}
	if profile.HasRole(RoleResourcesFullControl) || profile.HasRole(RoleResourcesAdmin) || profile.HasRole(RoleOrgAdmin) {
		return nil
	}

	for _, check := range accessRules[kind][stepID] {
		ok, err := check(ctx, s, profile, sub)
		if err != nil {
			s.logger.Warn("Access predicate failed to evaluate",
				zap.String("step", stepID),
				zap.Error(err))
			continue
		}
		if ok {
			return nil
		}
	}
	return &UnauthorizedError{ActorName: actor.Name, Step: stepID}
}

func isCreator(_ context.Context, _ *Service, actor *people.Person, sub accessSubject) (bool, error) {
	return actor.AzureUniqueID == sub.creatorID, nil
}

func isTaskOwner(ctx context.Context, s *Service, actor *people.Person, sub accessSubject) (bool, error) {
	pos, err := s.org.GetPosition(ctx, sub.projectID, sub.positionID)
	if err != nil {
		return false, err
	}
	if pos.TaskOwner == nil || pos.TaskOwner.AzureUniqueID == nil {
		return false, nil
	}
	return *pos.TaskOwner.AzureUniqueID == actor.AzureUniqueID, nil
}

func hasOrgChartWrite(ctx context.Context, s *Service, actor *people.Person, sub accessSubject) (bool, error) {
	return s.org.HasWriteAccess(ctx, sub.projectID, actor.AzureUniqueID)
}

// isResourceOwner grants the manager of the department owning the position.
func isResourceOwner(ctx context.Context, s *Service, actor *people.Person, sub accessSubject) (bool, error) {
	dept, err := s.positionDepartment(ctx, sub)
	if err != nil || dept == "" {
		return false, err
	}
	return s.managesDepartment(ctx, actor, dept)
}

// isParentResourceOwner grants the manager one level up the department path.
func isParentResourceOwner(ctx context.Context, s *Service, actor *people.Person, sub accessSubject) (bool, error) {
	dept, err := s.positionDepartment(ctx, sub)
	if err != nil || dept == "" {
		return false, err
	}
	parent := parentDepartment(dept)
	if parent == "" {
		return false, nil
	}
	return s.managesDepartment(ctx, actor, parent)
}

// isSiblingResourceOwner grants managers of departments sharing the position
// department's parent. The actor must manage their own department.
func isSiblingResourceOwner(ctx context.Context, s *Service, actor *people.Person, sub accessSubject) (bool, error) {
	dept, err := s.positionDepartment(ctx, sub)
	if err != nil || dept == "" {
		return false, err
	}
	own := actor.FullDepartment
	if own == "" || own == dept {
		return false, nil
	}
	if parentDepartment(own) != parentDepartment(dept) {
		return false, nil
	}
	return s.managesDepartment(ctx, actor, own)
}

func isExternalContractRep(ctx context.Context, s *Service, actor *people.Person, sub accessSubject) (bool, error) {
	if sub.contractID == nil {
		return false, nil
	}
	return s.org.IsExternalContractRep(ctx, sub.projectID, *sub.contractID, actor.AzureUniqueID)
}

// isCompanyContractRep grants internal employees registered on the contract.
func isCompanyContractRep(ctx context.Context, s *Service, actor *people.Person, sub accessSubject) (bool, error) {
	if sub.contractID == nil || actor.AccountType != people.AccountTypeEmployee {
		return false, nil
	}
	return s.org.IsPersonOnContract(ctx, sub.projectID, *sub.contractID, actor.AzureUniqueID)
}

func (s *Service) positionDepartment(ctx context.Context, sub accessSubject) (string, error) {
	pos, err := s.org.GetPosition(ctx, sub.projectID, sub.positionID)
	if err != nil {
		return "", err
	}
	return pos.Department, nil
}

func (s *Service) managesDepartment(ctx context.Context, actor *people.Person, dept string) (bool, error) {
	owner, err := s.lineorg.GetResourceOwner(ctx, dept)
	if err != nil {
		return false, err
	}
	if owner == nil {
		return false, nil
	}
	return owner.AzureUniqueID == actor.AzureUniqueID, nil
}

// parentDepartment strips the last segment of a department path. Paths use
// either space or slash separators depending on the source system.
func parentDepartment(path string) string {
	segs := departmentSegments(path)
	if len(segs) < 2 {
		return ""
	}
	sep := " "
	if strings.Contains(path, "/") {
		sep = "/"
	}
	return strings.Join(segs[:len(segs)-1], sep)
}

func departmentSegments(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if strings.Contains(path, "/") {
		return strings.Split(path, "/")
	}
	return strings.Fields(path)
}
