package domain

// UserCreated is raised once when a user enters the system.
type UserCreated struct {
	eventBase
	UserID    UserID
	Email     EmailAddress
	Role      UserRole
	CreatedBy UserID
}

func (UserCreated) EventName() string { return "user.created" }
func (UserCreated) EntityKind() string { return "user" }
func (e UserCreated) EntityID() string { return e.UserID.String() }
func (e UserCreated) Payload() map[string]any {
	p := map[string]any{
		"email": e.Email.String(),
		"role":  string(e.Role),
	}
	if !e.CreatedBy.IsEmpty() {
		p["created_by"] = e.CreatedBy.String()
	}
	return p
}

type UserStatusChanged struct {
	eventBase
	UserID         UserID
	PreviousStatus UserStatus
	NewStatus      UserStatus
	ChangedBy      UserID
}

func (UserStatusChanged) EventName() string { return "user.status_changed" }
func (UserStatusChanged) EntityKind() string { return "user" }
func (e UserStatusChanged) EntityID() string { return e.UserID.String() }
func (e UserStatusChanged) Payload() map[string]any {
	return map[string]any{
		"previous_status": string(e.PreviousStatus),
		"new_status":      string(e.NewStatus),
		"changed_by":      e.ChangedBy.String(),
	}
}

type UserProfileUpdated struct {
	eventBase
	UserID UserID
	Name   string
	Email  EmailAddress
}

func (UserProfileUpdated) EventName() string { return "user.profile_updated" }
func (UserProfileUpdated) EntityKind() string { return "user" }
func (e UserProfileUpdated) EntityID() string { return e.UserID.String() }
func (e UserProfileUpdated) Payload() map[string]any {
	return map[string]any{
		"name":  e.Name,
		"email": e.Email.String(),
	}
}

type UserRoleChanged struct {
	eventBase
	UserID       UserID
	PreviousRole UserRole
	NewRole      UserRole
	ChangedBy    UserID
}

func (UserRoleChanged) EventName() string { return "user.role_changed" }
func (UserRoleChanged) EntityKind() string { return "user" }
func (e UserRoleChanged) EntityID() string { return e.UserID.String() }
func (e UserRoleChanged) Payload() map[string]any {
	return map[string]any{
		"previous_role": string(e.PreviousRole),
		"new_role":      string(e.NewRole),
		"changed_by":    e.ChangedBy.String(),
	}
}
