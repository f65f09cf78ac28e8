package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepLifecycle(t *testing.T) {
	s := tmpl(StepApproval, "Approval", "Awaiting approval.")
	actor := testActor("Approver")

	s.Start()
	assert.Equal(t, StepRunning, s.State)
	require.NotNil(t, s.StartedAt)

	s.Complete(actor, true)
	assert.Equal(t, StepApproved, s.State)
	require.NotNil(t, s.CompletedAt)
	assert.Equal(t, actor.Name, s.CompletedBy.Name)
	assert.True(t, s.IsCompleted())
}

func TestStepRejectWithReason(t *testing.T) {
	s := tmpl(StepApproval, "Approval", "")
	s.Start()
	s.SetReason("position no longer funded")
	s.Complete(testActor("Approver"), false)

	assert.Equal(t, StepRejected, s.State)
	assert.Equal(t, "position no longer funded", s.Reason)
}

func TestStepCompleteRequiresRunning(t *testing.T) {
	s := tmpl(StepApproval, "Approval", "")
	assert.Panics(t, func() { s.Complete(testActor("x"), true) })

	s.Start()
	s.Complete(testActor("x"), true)
	assert.Panics(t, func() { s.Complete(testActor("x"), true) })
}

func TestStepSkipFromNotStartedAndRunning(t *testing.T) {
	a := tmpl(StepApproval, "Approval", "")
	a.Skip(nil)
	assert.Equal(t, StepSkipped, a.State)
	assert.Nil(t, a.CompletedBy)

	b := tmpl(StepApproval, "Approval", "")
	b.Start()
	actor := testActor("x")
	b.Skip(&actor)
	assert.Equal(t, StepSkipped, b.State)

	assert.Panics(t, func() { a.Skip(nil) })
}

func TestStepAmendAppends(t *testing.T) {
	s := tmpl(StepProposal, "Proposal", "")
	s.Amend("First note.")
	assert.Equal(t, "First note.", s.Description)

	s.Amend("Second note.")
	assert.Equal(t, "First note. Second note.", s.Description)
}
