package orgchart

import (
	"time"

	"github.com/google/uuid"
)

// PersonRef is the org chart's reference to an assigned person.
type PersonRef struct {
	AzureUniqueID *uuid.UUID `json:"azureUniqueId,omitempty"`
	Mail          string     `json:"mail,omitempty"`
	Name          string     `json:"name,omitempty"`
}

// Location is an optional work location on a position instance.
type Location struct {
	ID   *uuid.UUID `json:"id,omitempty"`
	Name string     `json:"name,omitempty"`
	Code string     `json:"code,omitempty"`
}

// PositionInstance is one time-sliced assignment record within a position's
// timeline. Instances sharing a date range but different rotation ids are
// parallel rotation slots, not sequential.
type PositionInstance struct {
	ID             uuid.UUID  `json:"id"`
	ExternalID     string     `json:"externalId,omitempty"`
	AppliesFrom    time.Time  `json:"appliesFrom"`
	AppliesTo      time.Time  `json:"appliesTo"`
	Workload       float64    `json:"workload"`
	Obs            string     `json:"obs,omitempty"`
	RotationID     *string    `json:"rotationId,omitempty"`
	AssignedPerson *PersonRef `json:"assignedPerson,omitempty"`
	Location       *Location  `json:"location,omitempty"`
}

// IsActive reports whether the instance covers the given date.
func (i *PositionInstance) IsActive(at time.Time) bool {
	return !at.Before(i.AppliesFrom) && !at.After(i.AppliesTo)
}

// IsExpired reports whether the instance's applies-to lies in the past.
func (i *PositionInstance) IsExpired(at time.Time) bool {
	return i.AppliesTo.Before(at)
}

// IsFuture reports whether the instance has not yet started.
func (i *PositionInstance) IsFuture(at time.Time) bool {
	return i.AppliesFrom.After(at)
}

// BasePosition is the role template a position is derived from.
type BasePosition struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Discipline  string    `json:"discipline,omitempty"`
	ProjectType string    `json:"projectType,omitempty"`
}

// Position is an org chart position with its instance timeline.
type Position struct {
	ID           uuid.UUID          `json:"id"`
	ExternalID   string             `json:"externalId,omitempty"`
	Name         string             `json:"name"`
	Department   string             `json:"department,omitempty"`
	BasePosition BasePosition       `json:"basePosition"`
	Instances    []PositionInstance `json:"instances"`
	Properties   map[string]any     `json:"properties,omitempty"`
	TaskOwner    *PersonRef         `json:"taskOwner,omitempty"`
}

// Instance locates an instance by id, or nil.
func (p *Position) Instance(id uuid.UUID) *PositionInstance {
	for i := range p.Instances {
		if p.Instances[i].ID == id {
			return &p.Instances[i]
		}
	}
	return nil
}

// Draft is a change set pending publication. The org chart service initializes
// drafts asynchronously; Status becomes "ready" once the draft can be patched.
type Draft struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name,omitempty"`
	Status string    `json:"status"`
}

const (
	DraftInitializing = "initializing"
	DraftReady        = "ready"
	DraftPublished    = "published"
)

// Project is the org chart's view of a project.
type Project struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Domain string    `json:"domainId,omitempty"`
}

// Contract is a contractor agreement registered on a project.
type Contract struct {
	ID             uuid.UUID `json:"id"`
	ContractNumber string    `json:"contractNumber"`
	Name           string    `json:"name"`
}
