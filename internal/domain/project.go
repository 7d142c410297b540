package domain

import (
	"strings"
	"time"
)

const (
	maxProjectNameLength        = 200
	maxProjectDescriptionLength = 1000
)

type ProjectStatus string

const (
	ProjectPlanned   ProjectStatus = "planned"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanned, ProjectActive, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectCompleted || s == ProjectCancelled
}

// projectStatusTransitions is the lifecycle adjacency table. Cancel is the
// universal exit from every non-terminal state.
var projectStatusTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectPlanned:   {ProjectActive, ProjectCancelled},
	ProjectActive:    {ProjectCompleted, ProjectCancelled},
	ProjectCompleted: {},
	ProjectCancelled: {},
}

func (s ProjectStatus) canTransitionTo(next ProjectStatus) bool {
	for _, allowed := range projectStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Project is owned by a team and carries a restricted status lifecycle.
// Name uniqueness within the team is checked at the application layer since
// it needs cross-aggregate visibility.
type Project struct {
	eventRecorder

	ID             ProjectID
	Name           string
	Description    string
	Status         ProjectStatus
	TeamID         TeamID
	StartDate      *time.Time
	EndDate        *time.Time
	PlannedEndDate *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Version is the optimistic-concurrency token managed by the repository.
	Version int64
}

func NewProject(name, description string, teamID TeamID, plannedEnd *time.Time, createdBy UserID, now func() time.Time) (*Project, error) {
	if teamID.IsEmpty() {
		return nil, invalidArgument("team_id", "team is required")
	}
	if createdBy.IsEmpty() {
		return nil, invalidArgument("created_by", "creator is required")
	}
	ts := now().UTC()
	name, description, plannedEnd, err := validateProjectInfo(name, description, plannedEnd, ts)
	if err != nil {
		return nil, err
	}
	p := &Project{
		ID:             NewProjectID(),
		Name:           name,
		Description:    description,
		Status:         ProjectPlanned,
		TeamID:         teamID,
		PlannedEndDate: plannedEnd,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	p.raise(ProjectCreated{
		eventBase: newEventBase(ts),
		ProjectID: p.ID,
		TeamID:    teamID,
		Name:      name,
		CreatedBy: createdBy,
	})
	return p, nil
}

func validateProjectInfo(name, description string, plannedEnd *time.Time, now time.Time) (string, string, *time.Time, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", nil, invalidArgument("name", "name is required")
	}
	if len(name) > maxProjectNameLength {
		return "", "", nil, invalidArgument("name", "name exceeds %d characters", maxProjectNameLength)
	}
	description = strings.TrimSpace(description)
	if len(description) > maxProjectDescriptionLength {
		return "", "", nil, invalidArgument("description", "description exceeds %d characters", maxProjectDescriptionLength)
	}
	if plannedEnd != nil {
		utc := plannedEnd.UTC()
		if !utc.After(now) {
			return "", "", nil, invalidArgument("planned_end_date", "planned end date must be in the future")
		}
		plannedEnd = &utc
	}
	return name, description, plannedEnd, nil
}

// UpdateInfo revalidates the mutable fields; it never touches status, and a
// terminal project rejects it outright.
func (p *Project) UpdateInfo(name, description string, plannedEnd *time.Time, updatedBy UserID, now func() time.Time) error {
	if p.Status.IsTerminal() {
		return ruleViolation("project %s is %s and cannot be modified", p.ID, p.Status)
	}
	ts := now().UTC()
	name, description, plannedEnd, err := validateProjectInfo(name, description, plannedEnd, ts)
	if err != nil {
		return err
	}
	p.Name = name
	p.Description = description
	p.PlannedEndDate = plannedEnd
	p.UpdatedAt = ts
	p.raise(ProjectInfoUpdated{
		eventBase: newEventBase(ts),
		ProjectID: p.ID,
		Name:      name,
		UpdatedBy: updatedBy,
	})
	return nil
}

// ChangeStatus moves the project along the adjacency table. Activation
// stamps the start date, completion the end date.
func (p *Project) ChangeStatus(next ProjectStatus, changedBy UserID, now func() time.Time) error {
	if !next.Valid() {
		return invalidArgument("status", "unknown project status %q", next)
	}
	if next == p.Status {
		return nil
	}
	if !p.Status.canTransitionTo(next) {
		return ruleViolation("invalid project status transition %s -> %s", p.Status, next)
	}
	p.applyStatus(next, changedBy, now().UTC())
	return nil
}

// Cancel transitions to cancelled from any non-terminal state; it is the
// soft-delete used by the archive workflow.
func (p *Project) Cancel(cancelledBy UserID, now func() time.Time) error {
	if p.Status.IsTerminal() {
		return ruleViolation("project %s is already %s", p.ID, p.Status)
	}
	p.applyStatus(ProjectCancelled, cancelledBy, now().UTC())
	return nil
}

func (p *Project) applyStatus(next ProjectStatus, changedBy UserID, ts time.Time) {
	prev := p.Status
	p.Status = next
	p.UpdatedAt = ts
	switch next {
	case ProjectActive:
		if p.StartDate == nil {
			p.StartDate = &ts
		}
	case ProjectCompleted, ProjectCancelled:
		if p.EndDate == nil {
			p.EndDate = &ts
		}
	}
	p.raise(ProjectStatusChanged{
		eventBase:      newEventBase(ts),
		ProjectID:      p.ID,
		PreviousStatus: prev,
		NewStatus:      next,
		ChangedBy:      changedBy,
	})
}
