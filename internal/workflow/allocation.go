package workflow

import "fmt"

// Allocation request variants. Direct and normal allocations carry a proposal
// step before approval; joint-venture allocations go straight to approval;
// enterprise allocations collapse to provisioning after creation.

func tmpl(id, name, description string) *Step {
	return &Step{ID: id, Name: name, Description: description, State: StepNotStarted}
}

// chain links the given steps into a single path.
func chain(steps ...*Step) []*Step {
	for i, s := range steps {
		if i > 0 {
			s.PreviousStepID = steps[i-1].ID
		}
		if i < len(steps)-1 {
			s.NextStepID = steps[i+1].ID
		}
	}
	return steps
}

func allocationDirectSteps() []*Step {
	return chain(
		tmpl(StepCreated, "Created", "The request was created."),
		tmpl(StepProposal, "Proposal", "Awaiting a proposed candidate from the resource owner."),
		tmpl(StepApproval, "Approval", "Awaiting approval from the task owner."),
		tmpl(StepProvisioning, "Provisioning", "Changes are written to the org chart."),
	)
}

func allocationNormalSteps() []*Step {
	return chain(
		tmpl(StepCreated, "Created", "The request was created."),
		tmpl(StepProposal, "Proposal", "Awaiting a proposed candidate from the resource owner."),
		tmpl(StepApproval, "Approval", "Awaiting approval from the task owner."),
		tmpl(StepProvisioning, "Provisioning", "Changes are written to the org chart."),
	)
}

func allocationJointVentureSteps() []*Step {
	return chain(
		tmpl(StepCreated, "Created", "The request was created."),
		tmpl(StepApproval, "Approval", "Awaiting approval from the joint venture resource owner."),
		tmpl(StepProvisioning, "Provisioning", "Changes are written to the org chart."),
	)
}

func allocationEnterpriseSteps() []*Step {
	return chain(
		tmpl(StepCreated, "Created", "The request was created."),
		tmpl(StepProvisioning, "Provisioning", "Changes are written to the org chart."),
	)
}

// allocationProposalAdvance drives the direct and normal allocation chains.
func allocationProposalAdvance(d *Definition, target RequestState, actor Actor) (*Step, error) {
	current := d.Current()
	if current == nil {
		return nil, illegalStateChange("", target)
	}
	switch current.ID {
	case StepProposal:
		switch target {
		case StateProposed:
			return allocationProposed(d, actor), nil
		case StateRejected:
			return rejectAndClose(d, current, actor,
				fmt.Sprintf("%s rejected the request.", actor.Name))
		}
	case StepApproval:
		switch target {
		case StateApproved:
			return allocationApproved(d, actor), nil
		case StateRejected:
			return rejectAndClose(d, current, actor,
				fmt.Sprintf("%s rejected the proposed candidate.", actor.Name))
		}
	case StepProvisioning:
		if target == StateCompleted {
			return provisioned(d, actor), nil
		}
	}
	return nil, illegalStateChange(RequestState(current.ID), target)
}

// allocationApprovalAdvance drives the joint venture chain, which has no
// proposal step.
func allocationApprovalAdvance(d *Definition, target RequestState, actor Actor) (*Step, error) {
	current := d.Current()
	if current == nil {
		return nil, illegalStateChange("", target)
	}
	switch current.ID {
	case StepApproval:
		switch target {
		case StateApproved:
			return allocationApproved(d, actor), nil
		case StateRejected:
			return rejectAndClose(d, current, actor,
				fmt.Sprintf("%s rejected the request.", actor.Name))
		}
	case StepProvisioning:
		if target == StateCompleted {
			return provisioned(d, actor), nil
		}
	}
	return nil, illegalStateChange(RequestState(current.ID), target)
}

// allocationEnterpriseAdvance drives the enterprise chain, which has no human
// step at all.
func allocationEnterpriseAdvance(d *Definition, target RequestState, actor Actor) (*Step, error) {
	current := d.Current()
	if current == nil {
		return nil, illegalStateChange("", target)
	}
	if current.ID == StepProvisioning && target == StateCompleted {
		return provisioned(d, actor), nil
	}
	return nil, illegalStateChange(RequestState(current.ID), target)
}

func allocationProposed(d *Definition, actor Actor) *Step {
	step := d.Step(StepProposal)
	step.Complete(actor, true)
	step.Description = fmt.Sprintf("%s proposed a candidate for the position.", actor.Name)
	return d.StartNext(step)
}

func allocationApproved(d *Definition, actor Actor) *Step {
	step := d.Step(StepApproval)
	step.Complete(actor, true)
	step.Description = fmt.Sprintf("%s approved the request.", actor.Name)
	return d.StartNext(step)
}

// rejectAndClose completes the current step as rejected and short-circuits
// every remaining step, bypassing provisioning.
func rejectAndClose(d *Definition, step *Step, actor Actor, description string) (*Step, error) {
	step.Complete(actor, false)
	step.Description = description
	d.SkipRest(&actor)
	d.CompleteWorkflow()
	return nil, nil
}

// provisioned completes the terminal provisioning step and the workflow.
func provisioned(d *Definition, actor Actor) *Step {
	step := d.Step(StepProvisioning)
	step.Complete(actor, true)
	step.Description = "The approved changes were provisioned to the org chart."
	d.CompleteWorkflow()
	return nil
}

// AutoApproveUnchangedRequest skips the approval step of a direct allocation
// whose proposal carried no actual changes, and notes the auto approval on
// the proposal step. Returns the newly started step.
func (d *Definition) AutoApproveUnchangedRequest(actor Actor) *Step {
	if d.Kind != KindAllocationDirect {
		panic(fmt.Sprintf("workflow: auto approval is only defined for %s, got %s", KindAllocationDirect, d.Kind))
	}
	approval := d.Step(StepApproval)
	approval.Skip(&actor)
	d.Step(StepProposal).Amend(
		fmt.Sprintf("The proposal contained no changes and was auto approved on behalf of %s.", actor.Name))
	return d.StartNext(approval)
}

// SkipApproval skips the approval step when it is not applicable, for example
// when no resource owner can be resolved for a joint venture position.
// Returns the newly started step.
func (d *Definition) SkipApproval(reason string) *Step {
	approval := d.Step(StepApproval)
	approval.Skip(nil)
	approval.Amend(reason)
	return d.StartNext(approval)
}
