package domain

import (
	"strings"
	"time"
)

const (
	// MaxTeamMembers caps the owned membership collection.
	MaxTeamMembers = 50

	maxTeamNameLength        = 100
	maxTeamDescriptionLength = 500
)

type TeamStatus string

const (
	TeamActive   TeamStatus = "active"
	TeamInactive TeamStatus = "inactive"
	TeamArchived TeamStatus = "archived"
	TeamPending  TeamStatus = "pending"
)

func (s TeamStatus) Valid() bool {
	switch s {
	case TeamActive, TeamInactive, TeamArchived, TeamPending:
		return true
	}
	return false
}

// AllowsMemberAddition reports whether new members may join.
func (s TeamStatus) AllowsMemberAddition() bool { return s == TeamActive }

// AllowsProjectCreation reports whether new projects may be started.
func (s TeamStatus) AllowsProjectCreation() bool { return s == TeamActive }

// AllowsOperations reports whether existing members may keep working.
func (s TeamStatus) AllowsOperations() bool {
	return s == TeamActive || s == TeamInactive
}

// teamStatusTransitions is the directed adjacency table for team lifecycle
// changes. A transition to the current status is a no-op, not an error.
var teamStatusTransitions = map[TeamStatus][]TeamStatus{
	TeamActive:   {TeamInactive, TeamArchived},
	TeamInactive: {TeamActive, TeamArchived},
	TeamArchived: {},
	TeamPending:  {TeamActive, TeamInactive},
}

func (s TeamStatus) canTransitionTo(next TeamStatus) bool {
	for _, allowed := range teamStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type TeamRole string

const (
	TeamRoleDeveloper      TeamRole = "developer"
	TeamRoleProjectManager TeamRole = "project_manager"
	TeamRoleTeamLead       TeamRole = "team_lead"
	TeamRoleViewer         TeamRole = "viewer"
)

func (r TeamRole) Valid() bool {
	switch r {
	case TeamRoleDeveloper, TeamRoleProjectManager, TeamRoleTeamLead, TeamRoleViewer:
		return true
	}
	return false
}

// TeamMember is owned exclusively by its Team: it has no repository of its
// own and is created, mutated and removed only through Team methods.
type TeamMember struct {
	ID       MemberID
	UserID   UserID
	Role     TeamRole
	JoinedAt time.Time
}

// Team owns its membership collection and enforces capacity, uniqueness and
// lifecycle rules over it.
type Team struct {
	eventRecorder

	ID          TeamID
	Name        string
	Description string
	Status      TeamStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time

	members []TeamMember

	// Version is the optimistic-concurrency token managed by the repository.
	Version int64
}

func NewTeam(name, description string, createdBy UserID, now func() time.Time) (*Team, error) {
	if createdBy.IsEmpty() {
		return nil, invalidArgument("created_by", "creator is required")
	}
	name, description, err := validateTeamInfo(name, description)
	if err != nil {
		return nil, err
	}
	ts := now().UTC()
	t := &Team{
		ID:          NewTeamID(),
		Name:        name,
		Description: description,
		Status:      TeamActive,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	t.raise(TeamCreated{
		eventBase: newEventBase(ts),
		TeamID:    t.ID,
		Name:      name,
		CreatedBy: createdBy,
	})
	return t, nil
}

func validateTeamInfo(name, description string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", invalidArgument("name", "name is required")
	}
	if len(name) > maxTeamNameLength {
		return "", "", invalidArgument("name", "name exceeds %d characters", maxTeamNameLength)
	}
	description = strings.TrimSpace(description)
	if len(description) > maxTeamDescriptionLength {
		return "", "", invalidArgument("description", "description exceeds %d characters", maxTeamDescriptionLength)
	}
	return name, description, nil
}

// RestoreMembers rehydrates the owned collection from persistence. It must
// not be used to mutate a live aggregate.
func (t *Team) RestoreMembers(members []TeamMember) {
	t.members = append([]TeamMember(nil), members...)
}

// Members returns a read-only view of the membership collection.
func (t *Team) Members() []TeamMember {
	return append([]TeamMember(nil), t.members...)
}

func (t *Team) MemberCount() int { return len(t.members) }

// HasRoom reports whether the capacity limit leaves space for one more.
func (t *Team) HasRoom() bool { return len(t.members) < MaxTeamMembers }

// CanAcceptNewMembers combines the status gate with the capacity check.
func (t *Team) CanAcceptNewMembers() bool {
	return t.Status.AllowsMemberAddition() && t.HasRoom()
}

// Member finds a member by user id.
func (t *Team) Member(userID UserID) (TeamMember, bool) {
	for _, m := range t.members {
		if m.UserID == userID {
			return m, true
		}
	}
	return TeamMember{}, false
}

// MembersByRole returns all members holding the given role.
func (t *Team) MembersByRole(role TeamRole) []TeamMember {
	var res []TeamMember
	for _, m := range t.members {
		if m.Role == role {
			res = append(res, m)
		}
	}
	return res
}

// AddMember appends a new member. It fails when the team is full, the user
// already belongs to the team, or the team status forbids additions.
func (t *Team) AddMember(userID UserID, role TeamRole, addedBy UserID, now func() time.Time) error {
	if userID.IsEmpty() {
		return invalidArgument("user_id", "user is required")
	}
	if !role.Valid() {
		return invalidArgument("role", "unknown team role %q", role)
	}
	if !t.Status.AllowsMemberAddition() {
		return ruleViolation("team %s status %q does not allow adding members", t.ID, t.Status)
	}
	if !t.HasRoom() {
		return ruleViolation("team %s is at capacity (%d members)", t.ID, MaxTeamMembers)
	}
	if _, ok := t.Member(userID); ok {
		return ruleViolation("user %s is already a member of team %s", userID, t.ID)
	}
	ts := now().UTC()
	t.members = append(t.members, TeamMember{
		ID:       NewMemberID(),
		UserID:   userID,
		Role:     role,
		JoinedAt: ts,
	})
	t.UpdatedAt = ts
	t.raise(UserJoinedTeam{
		eventBase: newEventBase(ts),
		TeamID:    t.ID,
		UserID:    userID,
		Role:      role,
		AddedBy:   addedBy,
	})
	return nil
}

// RemoveMember removes an existing member; it fails when the user does not
// belong to the team.
func (t *Team) RemoveMember(userID UserID, removedBy UserID, now func() time.Time) error {
	idx := -1
	for i, m := range t.members {
		if m.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ruleViolation("user %s is not a member of team %s", userID, t.ID)
	}
	ts := now().UTC()
	t.members = append(t.members[:idx], t.members[idx+1:]...)
	t.UpdatedAt = ts
	t.raise(UserLeftTeam{
		eventBase: newEventBase(ts),
		TeamID:    t.ID,
		UserID:    userID,
		RemovedBy: removedBy,
	})
	return nil
}

// ChangeMemberRole mutates a member's role in place. Team roles have no
// adjacency restriction between each other.
func (t *Team) ChangeMemberRole(userID UserID, role TeamRole, changedBy UserID, now func() time.Time) error {
	if !role.Valid() {
		return invalidArgument("role", "unknown team role %q", role)
	}
	for i, m := range t.members {
		if m.UserID != userID {
			continue
		}
		if m.Role == role {
			return nil
		}
		ts := now().UTC()
		prev := m.Role
		t.members[i].Role = role
		t.UpdatedAt = ts
		t.raise(TeamMemberRoleChanged{
			eventBase:    newEventBase(ts),
			TeamID:       t.ID,
			UserID:       userID,
			PreviousRole: prev,
			NewRole:      role,
			ChangedBy:    changedBy,
		})
		return nil
	}
	return ruleViolation("user %s is not a member of team %s", userID, t.ID)
}

// ChangeStatus moves the team along the lifecycle adjacency table.
func (t *Team) ChangeStatus(next TeamStatus, changedBy UserID, now func() time.Time) error {
	if !next.Valid() {
		return invalidArgument("status", "unknown team status %q", next)
	}
	if next == t.Status {
		return nil
	}
	if !t.Status.canTransitionTo(next) {
		return ruleViolation("invalid team status transition %s -> %s", t.Status, next)
	}
	prev := t.Status
	ts := now().UTC()
	t.Status = next
	t.UpdatedAt = ts
	t.raise(TeamStatusChanged{
		eventBase:      newEventBase(ts),
		TeamID:         t.ID,
		PreviousStatus: prev,
		NewStatus:      next,
		ChangedBy:      changedBy,
	})
	return nil
}

// UpdateInfo revalidates name and description and raises an event when a
// value actually changed.
func (t *Team) UpdateInfo(name, description string, updatedBy UserID, now func() time.Time) error {
	name, description, err := validateTeamInfo(name, description)
	if err != nil {
		return err
	}
	if name == t.Name && description == t.Description {
		return nil
	}
	ts := now().UTC()
	t.Name = name
	t.Description = description
	t.UpdatedAt = ts
	t.raise(TeamInfoUpdated{
		eventBase: newEventBase(ts),
		TeamID:    t.ID,
		Name:      name,
		UpdatedBy: updatedBy,
	})
	return nil
}
