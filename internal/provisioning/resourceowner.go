package provisioning

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/equinor/fusion-app-resources-sub003/internal/requests"
)

// splitCase classifies how a change window relates to the targeted instance's
// date range.
type splitCase int

const (
	// splitInPlace: the window covers the whole instance, patch it directly.
	splitInPlace splitCase = iota
	// splitAtStart: the window starts at the instance start but ends early.
	splitAtStart
	// splitAtEnd: the window runs to the instance end but starts late.
	splitAtEnd
	// splitCenter: the window lies strictly inside the instance.
	splitCenter
)

// selectSplit is pure so the case selection is deterministic for a given
// snapshot and window; re-running the reconciler yields the same topology.
func selectSplit(instFrom, instTo, changeFrom, changeTo time.Time) splitCase {
	startAligned := sameDay(changeFrom, instFrom)
	endAligned := sameDay(changeTo, instTo)
	switch {
	case startAligned && endAligned:
		return splitInPlace
	case startAligned:
		return splitAtStart
	case endAligned:
		return splitAtEnd
	default:
		return splitCenter
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ProvisionResourceOwnerRequest applies an owner-initiated in-place change
// (adjustment, resource change, resource removal) to the live position. The
// raw JSON is used so attributes this service does not model survive the
// round trip. The whole rebuilt timeline goes out in a single PUT; only the
// full-cover case patches the instance directly.
func (s *Service) ProvisionResourceOwnerRequest(ctx context.Context, req *requests.ResourceAllocationRequest) error {
	raw, err := s.org.GetPositionRaw(ctx, req.ProjectID, req.PositionID)
	if err != nil {
		return provisionError("position fetch", err)
	}
	rawInstances, ok := raw["instances"].([]any)
	if !ok {
		return fmt.Errorf("position %s has no instance list", req.PositionID)
	}

	idx := -1
	var target map[string]any
	for i, v := range rawInstances {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if id, _ := m["id"].(string); id == req.Instance.InstanceID.String() {
			idx, target = i, m
			break
		}
	}
	if target == nil {
		return fmt.Errorf("instance %s no longer exists on position %s", req.Instance.InstanceID, req.PositionID)
	}

	instFrom, err := rawDate(target, "appliesFrom")
	if err != nil {
		return err
	}
	instTo, err := rawDate(target, "appliesTo")
	if err != nil {
		return err
	}

	// The change window is bounded to the instance's own range.
	changeFrom, changeTo := instFrom, instTo
	if req.Proposal.ChangeFrom != nil && req.Proposal.ChangeFrom.After(instFrom) {
		changeFrom = *req.Proposal.ChangeFrom
	}
	if req.Proposal.ChangeTo != nil && req.Proposal.ChangeTo.Before(instTo) {
		changeTo = *req.Proposal.ChangeTo
	}
	if changeTo.Before(changeFrom) {
		return fmt.Errorf("request %s has an inverted change window (%s to %s)",
			req.ID, changeFrom.Format(rawDateLayout), changeTo.Format(rawDateLayout))
	}

	c := selectSplit(instFrom, instTo, changeFrom, changeTo)
	if c == splitInPlace {
		patch := changesFor(req)
		s.logger.Info("Patching instance in place",
			zap.String("requestId", req.ID.String()),
			zap.String("instanceId", req.Instance.InstanceID.String()))
		if err := s.org.PatchPositionInstance(ctx, req.ProjectID, req.PositionID, req.Instance.InstanceID, patch); err != nil {
			return provisionError("instance patch", err)
		}
		return nil
	}

	var replacement []any
	switch c {
	case splitAtStart:
		// Changed head keeps the row identity; the unchanged tail continues
		// as a new instance.
		head := cloneInstance(target)
		setDate(head, "appliesTo", changeTo)
		applyChanges(head, req)

		tail := cloneInstance(target)
		stripIdentity(tail)
		setDate(tail, "appliesFrom", changeTo.AddDate(0, 0, 1))
		setDate(tail, "appliesTo", instTo)
		replacement = []any{head, tail}

	case splitAtEnd:
		head := cloneInstance(target)
		setDate(head, "appliesTo", changeFrom.AddDate(0, 0, -1))

		tail := cloneInstance(target)
		stripIdentity(tail)
		setDate(tail, "appliesFrom", changeFrom)
		setDate(tail, "appliesTo", instTo)
		applyChanges(tail, req)
		replacement = []any{head, tail}

	case splitCenter:
		head := cloneInstance(target)
		setDate(head, "appliesTo", changeFrom.AddDate(0, 0, -1))

		center := cloneInstance(target)
		stripIdentity(center)
		setDate(center, "appliesFrom", changeFrom)
		setDate(center, "appliesTo", changeTo)
		applyChanges(center, req)

		tail := cloneInstance(target)
		stripIdentity(tail)
		setDate(tail, "appliesFrom", changeTo.AddDate(0, 0, 1))
		setDate(tail, "appliesTo", instTo)
		replacement = []any{head, center, tail}
	}

	rebuilt := make([]any, 0, len(rawInstances)+len(replacement)-1)
	rebuilt = append(rebuilt, rawInstances[:idx]...)
	rebuilt = append(rebuilt, replacement...)
	rebuilt = append(rebuilt, rawInstances[idx+1:]...)
	raw["instances"] = rebuilt

	s.logger.Info("Rewriting instance timeline",
		zap.String("requestId", req.ID.String()),
		zap.String("positionId", req.PositionID.String()),
		zap.Int("splits", len(replacement)))
	if err := s.org.PutPositionRaw(ctx, req.ProjectID, req.PositionID, raw); err != nil {
		return provisionError("position put", err)
	}
	return nil
}

// changesFor builds the attribute set a request applies to an instance.
func changesFor(req *requests.ResourceAllocationRequest) map[string]any {
	out := map[string]any{}
	for k, v := range req.ProposedChanges {
		out[k] = v
	}
	if req.Subtype == requests.SubtypeRemoveResource {
		out["assignedPerson"] = nil
	} else if req.ProposedPerson.HasValue() {
		out["assignedPerson"] = map[string]any{
			"azureUniqueId": req.ProposedPerson.PersonID.String(),
			"mail":          req.ProposedPerson.Mail,
			"name":          req.ProposedPerson.Name,
		}
	}
	return out
}

func applyChanges(inst map[string]any, req *requests.ResourceAllocationRequest) {
	for k, v := range changesFor(req) {
		if v == nil {
			delete(inst, k)
			continue
		}
		inst[k] = v
	}
}

func cloneInstance(inst map[string]any) map[string]any {
	out := make(map[string]any, len(inst))
	for k, v := range inst {
		out[k] = v
	}
	return out
}

// stripIdentity clears server-assigned identifiers so the org chart treats
// the entry as a new instance.
func stripIdentity(inst map[string]any) {
	delete(inst, "id")
	delete(inst, "externalId")
}

const rawDateLayout = "2006-01-02"

func rawDate(inst map[string]any, key string) (time.Time, error) {
	str, _ := inst[key].(string)
	if t, err := time.Parse(time.RFC3339, str); err == nil {
		return t, nil
	}
	t, err := time.Parse(rawDateLayout, str)
	if err != nil {
		return time.Time{}, fmt.Errorf("instance has malformed %s %q", key, str)
	}
	return t, nil
}

func setDate(inst map[string]any, key string, t time.Time) {
	inst[key] = t.Format(rawDateLayout)
}
