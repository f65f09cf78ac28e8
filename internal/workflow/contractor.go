package workflow

import "fmt"

// Contractor personnel requests pass through a contractor-side approval and a
// company-side approval. The chain has two distinct terminal rejection exits,
// RejectedByContractor and RejectedByCompany, both of which bypass
// provisioning entirely.

func contractorPersonnelSteps() []*Step {
	return chain(
		tmpl(StepCreated, "Created", "The request was created."),
		tmpl(StepContractorApproval, "Contractor approval", "Awaiting approval from a contract representative."),
		tmpl(StepCompanyApproval, "Company approval", "Awaiting approval from a company representative."),
		tmpl(StepProvisioning, "Provisioning", "Changes are written to the org chart."),
	)
}

func contractorPersonnelAdvance(d *Definition, target RequestState, actor Actor) (*Step, error) {
	current := d.Current()
	if current == nil {
		return nil, illegalStateChange("", target)
	}
	switch current.ID {
	case StepContractorApproval:
		switch target {
		case StateSubmittedToCompany:
			return contractorApproved(d, actor), nil
		case StateRejectedByContractor:
			return rejectAndClose(d, current, actor,
				fmt.Sprintf("%s rejected the request on behalf of the contractor.", actor.Name))
		}
	case StepCompanyApproval:
		switch target {
		case StateApprovedByCompany:
			return companyApproved(d, actor), nil
		case StateRejectedByCompany:
			return rejectAndClose(d, current, actor,
				fmt.Sprintf("%s rejected the request on behalf of the company.", actor.Name))
		}
	case StepProvisioning:
		if target == StateCompleted {
			return provisioned(d, actor), nil
		}
	}
	return nil, illegalStateChange(RequestState(current.ID), target)
}

func contractorApproved(d *Definition, actor Actor) *Step {
	step := d.Step(StepContractorApproval)
	step.Complete(actor, true)
	step.Description = fmt.Sprintf("%s approved on behalf of the contractor and submitted the request to the company.", actor.Name)
	return d.StartNext(step)
}

func companyApproved(d *Definition, actor Actor) *Step {
	step := d.Step(StepCompanyApproval)
	step.Complete(actor, true)
	step.Description = fmt.Sprintf("%s approved the request on behalf of the company.", actor.Name)
	return d.StartNext(step)
}

// SubmitDirectlyToCompany skips the contractor approval step when the request
// was initialized by an external contract representative, whose intent
// already counts as contractor-side approval. Returns the newly started step.
func (d *Definition) SubmitDirectlyToCompany(actor Actor) *Step {
	if d.Kind != KindContractorPersonnel {
		panic(fmt.Sprintf("workflow: direct company submission is only defined for %s, got %s", KindContractorPersonnel, d.Kind))
	}
	step := d.Step(StepContractorApproval)
	step.Skip(&actor)
	step.Amend(fmt.Sprintf("Initialized by external contract representative %s, contractor approval not required.", actor.Name))
	return d.StartNext(step)
}
