package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Identifiers are distinct wrapper types around a UUID so a TeamID can never
// be passed where a UserID is expected. The zero value is the empty sentinel.

type UserID struct {
	value uuid.UUID
}

func NewUserID() UserID { return UserID{value: uuid.New()} }

func ParseUserID(s string) (UserID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, invalidArgument("user_id", "invalid user id %q", s)
	}
	return UserID{value: v}, nil
}

func (id UserID) String() string { return id.value.String() }
func (id UserID) IsEmpty() bool  { return id.value == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error) { return []byte(id.value.String()), nil }

type TeamID struct {
	value uuid.UUID
}

func NewTeamID() TeamID { return TeamID{value: uuid.New()} }

func ParseTeamID(s string) (TeamID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return TeamID{}, invalidArgument("team_id", "invalid team id %q", s)
	}
	return TeamID{value: v}, nil
}

func (id TeamID) String() string { return id.value.String() }
func (id TeamID) IsEmpty() bool  { return id.value == uuid.Nil }

func (id TeamID) MarshalText() ([]byte, error) { return []byte(id.value.String()), nil }

type ProjectID struct {
	value uuid.UUID
}

func NewProjectID() ProjectID { return ProjectID{value: uuid.New()} }

func ParseProjectID(s string) (ProjectID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return ProjectID{}, invalidArgument("project_id", "invalid project id %q", s)
	}
	return ProjectID{value: v}, nil
}

func (id ProjectID) String() string { return id.value.String() }
func (id ProjectID) IsEmpty() bool  { return id.value == uuid.Nil }

func (id ProjectID) MarshalText() ([]byte, error) { return []byte(id.value.String()), nil }

type TaskID struct {
	value uuid.UUID
}

func NewTaskID() TaskID { return TaskID{value: uuid.New()} }

func ParseTaskID(s string) (TaskID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return TaskID{}, invalidArgument("task_id", "invalid task id %q", s)
	}
	return TaskID{value: v}, nil
}

func (id TaskID) String() string { return id.value.String() }
func (id TaskID) IsEmpty() bool  { return id.value == uuid.Nil }

func (id TaskID) MarshalText() ([]byte, error) { return []byte(id.value.String()), nil }

// MemberID identifies a TeamMember row inside its owning Team. It never
// crosses the aggregate boundary except for persistence.
type MemberID struct {
	value uuid.UUID
}

func NewMemberID() MemberID { return MemberID{value: uuid.New()} }

func ParseMemberID(s string) (MemberID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return MemberID{}, invalidArgument("member_id", "invalid member id %q", s)
	}
	return MemberID{value: v}, nil
}

func (id MemberID) String() string { return id.value.String() }
func (id MemberID) IsEmpty() bool  { return id.value == uuid.Nil }

func (id MemberID) MarshalText() ([]byte, error) { return []byte(id.value.String()), nil }

func invalidArgument(field, format string, args ...any) *ArgumentError {
	return &ArgumentError{Field: field, message: fmt.Sprintf(format, args...)}
}
