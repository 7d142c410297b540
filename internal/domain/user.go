package domain

import (
	"strings"
	"time"
)

const maxUserNameLength = 100

type UserRole string

const (
	RoleAdmin          UserRole = "admin"
	RoleProjectManager UserRole = "project_manager"
	RoleDeveloper      UserRole = "developer"
	RoleViewer         UserRole = "viewer"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleDeveloper, RoleViewer:
		return true
	}
	return false
}

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
	UserPending   UserStatus = "pending"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserActive, UserInactive, UserSuspended, UserPending:
		return true
	}
	return false
}

// User is the identity aggregate. Users are never hard-deleted; deactivation
// is the terminal lifecycle step reachable from the model.
type User struct {
	eventRecorder

	ID        UserID
	Name      string
	Email     EmailAddress
	Role      UserRole
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time

	// Version is the optimistic-concurrency token managed by the repository.
	Version int64
}

// NewUser creates a user in the active state. createdBy may be empty for
// self-registration; when present it is recorded on the creation event.
func NewUser(name string, email EmailAddress, role UserRole, createdBy UserID, now func() time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArgument("name", "name is required")
	}
	if len(name) > maxUserNameLength {
		return nil, invalidArgument("name", "name exceeds %d characters", maxUserNameLength)
	}
	if email.IsEmpty() {
		return nil, invalidArgument("email", "email is required")
	}
	if !role.Valid() {
		return nil, invalidArgument("role", "unknown user role %q", role)
	}
	ts := now().UTC()
	u := &User{
		ID:        NewUserID(),
		Name:      name,
		Email:     email,
		Role:      role,
		Status:    UserActive,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	u.raise(UserCreated{
		eventBase: newEventBase(ts),
		UserID:    u.ID,
		Email:     email,
		Role:      role,
		CreatedBy: createdBy,
	})
	return u, nil
}

// Activate is a silent no-op when the user is already active.
func (u *User) Activate(activatedBy UserID, now func() time.Time) error {
	if !u.Status.Valid() {
		return ruleViolation("user %s has invalid status %q", u.ID, u.Status)
	}
	if u.Status == UserActive {
		return nil
	}
	prev := u.Status
	ts := now().UTC()
	u.Status = UserActive
	u.UpdatedAt = ts
	u.raise(UserStatusChanged{
		eventBase:      newEventBase(ts),
		UserID:         u.ID,
		PreviousStatus: prev,
		NewStatus:      UserActive,
		ChangedBy:      activatedBy,
	})
	return nil
}

// Deactivate is a silent no-op when the user is already inactive.
func (u *User) Deactivate(deactivatedBy UserID, now func() time.Time) error {
	if !u.Status.Valid() {
		return ruleViolation("user %s has invalid status %q", u.ID, u.Status)
	}
	if u.Status == UserInactive {
		return nil
	}
	prev := u.Status
	ts := now().UTC()
	u.Status = UserInactive
	u.UpdatedAt = ts
	u.raise(UserStatusChanged{
		eventBase:      newEventBase(ts),
		UserID:         u.ID,
		PreviousStatus: prev,
		NewStatus:      UserInactive,
		ChangedBy:      deactivatedBy,
	})
	return nil
}

// Suspend blocks an account without ending its lifecycle.
func (u *User) Suspend(suspendedBy UserID, now func() time.Time) error {
	if !u.Status.Valid() {
		return ruleViolation("user %s has invalid status %q", u.ID, u.Status)
	}
	if u.Status == UserSuspended {
		return nil
	}
	prev := u.Status
	ts := now().UTC()
	u.Status = UserSuspended
	u.UpdatedAt = ts
	u.raise(UserStatusChanged{
		eventBase:      newEventBase(ts),
		UserID:         u.ID,
		PreviousStatus: prev,
		NewStatus:      UserSuspended,
		ChangedBy:      suspendedBy,
	})
	return nil
}

// UpdateProfile re-validates both fields and raises an event only when at
// least one value actually changed.
func (u *User) UpdateProfile(name string, email EmailAddress, now func() time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalidArgument("name", "name is required")
	}
	if len(name) > maxUserNameLength {
		return invalidArgument("name", "name exceeds %d characters", maxUserNameLength)
	}
	if email.IsEmpty() {
		return invalidArgument("email", "email is required")
	}
	if name == u.Name && email == u.Email {
		return nil
	}
	ts := now().UTC()
	u.Name = name
	u.Email = email
	u.UpdatedAt = ts
	u.raise(UserProfileUpdated{
		eventBase: newEventBase(ts),
		UserID:    u.ID,
		Name:      name,
		Email:     email,
	})
	return nil
}

// UpdateRole reassigns the role directly; any role may move to any other.
// Who may call this is an authorization concern outside the domain layer.
func (u *User) UpdateRole(role UserRole, changedBy UserID, now func() time.Time) error {
	if !role.Valid() {
		return invalidArgument("role", "unknown user role %q", role)
	}
	if role == u.Role {
		return nil
	}
	prev := u.Role
	ts := now().UTC()
	u.Role = role
	u.UpdatedAt = ts
	u.raise(UserRoleChanged{
		eventBase:    newEventBase(ts),
		UserID:       u.ID,
		PreviousRole: prev,
		NewRole:      role,
		ChangedBy:    changedBy,
	})
	return nil
}

// CanManageTeams reports whether this user may create or mutate teams.
func (u *User) CanManageTeams() bool {
	return u.Role == RoleAdmin || u.Role == RoleProjectManager
}

func (u *User) IsActive() bool { return u.Status == UserActive }
