package workflow

import "fmt"

// Owner-initiated change requests (resource owner or task owner) carry a
// single acceptance step between creation and provisioning. The subtype
// (adjustment, changeResource, removeResource) is validated at initialization
// time by the request handlers, not here.

func ownerChangeSteps() []*Step {
	return chain(
		tmpl(StepCreated, "Created", "The change request was created."),
		tmpl(StepAcceptance, "Acceptance", "Awaiting acceptance of the proposed change."),
		tmpl(StepProvisioning, "Provisioning", "Changes are written to the org chart."),
	)
}

func ownerChangeAdvance(d *Definition, target RequestState, actor Actor) (*Step, error) {
	current := d.Current()
	if current == nil {
		return nil, illegalStateChange("", target)
	}
	switch current.ID {
	case StepAcceptance:
		switch target {
		case StateAccepted:
			return changeAccepted(d, actor), nil
		case StateRejected:
			return rejectAndClose(d, current, actor,
				fmt.Sprintf("%s rejected the proposed change.", actor.Name))
		}
	case StepProvisioning:
		if target == StateCompleted {
			return provisioned(d, actor), nil
		}
	}
	return nil, illegalStateChange(RequestState(current.ID), target)
}

func changeAccepted(d *Definition, actor Actor) *Step {
	step := d.Step(StepAcceptance)
	step.Complete(actor, true)
	step.Description = fmt.Sprintf("%s accepted the proposed change.", actor.Name)
	return d.StartNext(step)
}
