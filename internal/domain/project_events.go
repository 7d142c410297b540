package domain

type ProjectCreated struct {
	eventBase
	ProjectID ProjectID
	TeamID    TeamID
	Name      string
	CreatedBy UserID
}

func (ProjectCreated) EventName() string { return "project.created" }
func (ProjectCreated) EntityKind() string { return "project" }
func (e ProjectCreated) EntityID() string { return e.ProjectID.String() }
func (e ProjectCreated) Payload() map[string]any {
	return map[string]any{
		"team_id":    e.TeamID.String(),
		"name":       e.Name,
		"created_by": e.CreatedBy.String(),
	}
}

type ProjectInfoUpdated struct {
	eventBase
	ProjectID ProjectID
	Name      string
	UpdatedBy UserID
}

func (ProjectInfoUpdated) EventName() string { return "project.updated" }
func (ProjectInfoUpdated) EntityKind() string { return "project" }
func (e ProjectInfoUpdated) EntityID() string { return e.ProjectID.String() }
func (e ProjectInfoUpdated) Payload() map[string]any {
	return map[string]any{
		"name":       e.Name,
		"updated_by": e.UpdatedBy.String(),
	}
}

type ProjectStatusChanged struct {
	eventBase
	ProjectID      ProjectID
	PreviousStatus ProjectStatus
	NewStatus      ProjectStatus
	ChangedBy      UserID
}

func (ProjectStatusChanged) EventName() string { return "project.status_changed" }
func (ProjectStatusChanged) EntityKind() string { return "project" }
func (e ProjectStatusChanged) EntityID() string { return e.ProjectID.String() }
func (e ProjectStatusChanged) Payload() map[string]any {
	return map[string]any{
		"previous_status": string(e.PreviousStatus),
		"new_status":      string(e.NewStatus),
		"changed_by":      e.ChangedBy.String(),
	}
}
