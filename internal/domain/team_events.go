package domain

type TeamCreated struct {
	eventBase
	TeamID    TeamID
	Name      string
	CreatedBy UserID
}

func (TeamCreated) EventName() string { return "team.created" }
func (TeamCreated) EntityKind() string { return "team" }
func (e TeamCreated) EntityID() string { return e.TeamID.String() }
func (e TeamCreated) Payload() map[string]any {
	return map[string]any{
		"name":       e.Name,
		"created_by": e.CreatedBy.String(),
	}
}

type UserJoinedTeam struct {
	eventBase
	TeamID  TeamID
	UserID  UserID
	Role    TeamRole
	AddedBy UserID
}

func (UserJoinedTeam) EventName() string { return "team.member_joined" }
func (UserJoinedTeam) EntityKind() string { return "team" }
func (e UserJoinedTeam) EntityID() string { return e.TeamID.String() }
func (e UserJoinedTeam) Payload() map[string]any {
	return map[string]any{
		"user_id":  e.UserID.String(),
		"role":     string(e.Role),
		"added_by": e.AddedBy.String(),
	}
}

type UserLeftTeam struct {
	eventBase
	TeamID    TeamID
	UserID    UserID
	RemovedBy UserID
}

func (UserLeftTeam) EventName() string { return "team.member_left" }
func (UserLeftTeam) EntityKind() string { return "team" }
func (e UserLeftTeam) EntityID() string { return e.TeamID.String() }
func (e UserLeftTeam) Payload() map[string]any {
	return map[string]any{
		"user_id":    e.UserID.String(),
		"removed_by": e.RemovedBy.String(),
	}
}

type TeamMemberRoleChanged struct {
	eventBase
	TeamID       TeamID
	UserID       UserID
	PreviousRole TeamRole
	NewRole      TeamRole
	ChangedBy    UserID
}

func (TeamMemberRoleChanged) EventName() string { return "team.member_role_changed" }
func (TeamMemberRoleChanged) EntityKind() string { return "team" }
func (e TeamMemberRoleChanged) EntityID() string { return e.TeamID.String() }
func (e TeamMemberRoleChanged) Payload() map[string]any {
	return map[string]any{
		"user_id":       e.UserID.String(),
		"previous_role": string(e.PreviousRole),
		"new_role":      string(e.NewRole),
		"changed_by":    e.ChangedBy.String(),
	}
}

// TeamStatusChanged carries routing metadata for downstream notification:
// the aggregate classifies its own transitions, it performs no side effects.
type TeamStatusChanged struct {
	eventBase
	TeamID         TeamID
	PreviousStatus TeamStatus
	NewStatus      TeamStatus
	ChangedBy      UserID
}

func (TeamStatusChanged) EventName() string { return "team.status_changed" }
func (TeamStatusChanged) EntityKind() string { return "team" }
func (e TeamStatusChanged) EntityID() string { return e.TeamID.String() }
func (e TeamStatusChanged) Payload() map[string]any {
	return map[string]any{
		"previous_status": string(e.PreviousStatus),
		"new_status":      string(e.NewStatus),
		"changed_by":      e.ChangedBy.String(),
		"significant":     e.IsSignificantChange(),
		"priority":        e.NotificationPriority(),
	}
}

// IsSignificantChange reports whether the transition crosses the archived
// boundary or suspends a working team.
func (e TeamStatusChanged) IsSignificantChange() bool {
	return e.NewStatus == TeamArchived || e.PreviousStatus == TeamArchived ||
		(e.PreviousStatus == TeamActive && e.NewStatus == TeamInactive)
}

// RequiresNotification reports whether members should be told about the
// change.
func (e TeamStatusChanged) RequiresNotification() bool {
	return e.IsSignificantChange() || e.NewStatus == TeamActive
}

// NotificationPriority is "high" for significant changes, "normal" otherwise.
func (e TeamStatusChanged) NotificationPriority() string {
	if e.IsSignificantChange() {
		return "high"
	}
	return "normal"
}

type TeamInfoUpdated struct {
	eventBase
	TeamID    TeamID
	Name      string
	UpdatedBy UserID
}

func (TeamInfoUpdated) EventName() string { return "team.updated" }
func (TeamInfoUpdated) EntityKind() string { return "team" }
func (e TeamInfoUpdated) EntityID() string { return e.TeamID.String() }
func (e TeamInfoUpdated) Payload() map[string]any {
	return map[string]any{
		"name":       e.Name,
		"updated_by": e.UpdatedBy.String(),
	}
}
