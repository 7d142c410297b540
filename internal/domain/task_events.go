package domain

type TaskCreated struct {
	eventBase
	TaskID    TaskID
	ProjectID ProjectID
	Title     string
	CreatedBy UserID
}

func (TaskCreated) EventName() string { return "task.created" }
func (TaskCreated) EntityKind() string { return "task" }
func (e TaskCreated) EntityID() string { return e.TaskID.String() }
func (e TaskCreated) Payload() map[string]any {
	return map[string]any{
		"project_id": e.ProjectID.String(),
		"title":      e.Title,
		"created_by": e.CreatedBy.String(),
	}
}

type TaskInfoUpdated struct {
	eventBase
	TaskID    TaskID
	Title     string
	UpdatedBy UserID
}

func (TaskInfoUpdated) EventName() string { return "task.updated" }
func (TaskInfoUpdated) EntityKind() string { return "task" }
func (e TaskInfoUpdated) EntityID() string { return e.TaskID.String() }
func (e TaskInfoUpdated) Payload() map[string]any {
	return map[string]any{
		"title":      e.Title,
		"updated_by": e.UpdatedBy.String(),
	}
}

type TaskAssigned struct {
	eventBase
	TaskID     TaskID
	AssigneeID UserID
	AssignedBy UserID
}

func (TaskAssigned) EventName() string { return "task.assigned" }
func (TaskAssigned) EntityKind() string { return "task" }
func (e TaskAssigned) EntityID() string { return e.TaskID.String() }
func (e TaskAssigned) Payload() map[string]any {
	return map[string]any{
		"assignee_id": e.AssigneeID.String(),
		"assigned_by": e.AssignedBy.String(),
	}
}

type TaskUnassigned struct {
	eventBase
	TaskID       TaskID
	AssigneeID   UserID
	UnassignedBy UserID
}

func (TaskUnassigned) EventName() string { return "task.unassigned" }
func (TaskUnassigned) EntityKind() string { return "task" }
func (e TaskUnassigned) EntityID() string { return e.TaskID.String() }
func (e TaskUnassigned) Payload() map[string]any {
	return map[string]any{
		"assignee_id":   e.AssigneeID.String(),
		"unassigned_by": e.UnassignedBy.String(),
	}
}

type TaskStatusChanged struct {
	eventBase
	TaskID         TaskID
	PreviousStatus TaskStatus
	NewStatus      TaskStatus
	ChangedBy      UserID
}

func (TaskStatusChanged) EventName() string { return "task.status_changed" }
func (TaskStatusChanged) EntityKind() string { return "task" }
func (e TaskStatusChanged) EntityID() string { return e.TaskID.String() }
func (e TaskStatusChanged) Payload() map[string]any {
	return map[string]any{
		"previous_status": string(e.PreviousStatus),
		"new_status":      string(e.NewStatus),
		"changed_by":      e.ChangedBy.String(),
	}
}

type TaskHoursLogged struct {
	eventBase
	TaskID   TaskID
	Hours    float64
	LoggedBy UserID
}

func (TaskHoursLogged) EventName() string { return "task.hours_logged" }
func (TaskHoursLogged) EntityKind() string { return "task" }
func (e TaskHoursLogged) EntityID() string { return e.TaskID.String() }
func (e TaskHoursLogged) Payload() map[string]any {
	return map[string]any{
		"hours":     e.Hours,
		"logged_by": e.LoggedBy.String(),
	}
}
