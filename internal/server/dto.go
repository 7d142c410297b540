package server

import (
	"encoding/json"

	"taskboard/internal/domain"
	"taskboard/internal/repo"
)

// Request payloads

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" format:"email"`
	Role  string `json:"role,omitempty" enum:"admin,project_manager,developer,viewer"`
}

type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty" format:"email"`
}

type SetUserRoleRequest struct {
	Role string `json:"role" enum:"admin,project_manager,developer,viewer"`
}

type SetUserStatusRequest struct {
	Status string `json:"status" enum:"active,inactive,suspended"`
}

type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type SetTeamStatusRequest struct {
	Status string `json:"status" enum:"active,inactive,archived"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty" enum:"developer,project_manager,team_lead,viewer"`
}

type SetMemberRoleRequest struct {
	Role string `json:"role" enum:"developer,project_manager,team_lead,viewer"`
}

type CreateProjectRequest struct {
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	TeamID         string  `json:"team_id"`
	PlannedEndDate *string `json:"planned_end_date,omitempty" format:"date-time"`
}

type UpdateProjectRequest struct {
	Name           *string `json:"name,omitempty"`
	Description    *string `json:"description,omitempty"`
	PlannedEndDate *string `json:"planned_end_date,omitempty" format:"date-time"`
}

type SetProjectStatusRequest struct {
	Status string `json:"status" enum:"planned,active,completed,cancelled"`
}

type CreateTaskRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Priority       string  `json:"priority,omitempty" enum:"low,medium,high,critical"`
	EstimatedHours float64 `json:"estimated_hours,omitempty"`
	DueDate        *string `json:"due_date,omitempty" format:"date-time"`
}

type UpdateTaskRequest struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Priority       *string  `json:"priority,omitempty" enum:"low,medium,high,critical"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	DueDate        *string  `json:"due_date,omitempty" format:"date-time"`
}

type SetTaskStatusRequest struct {
	Status string `json:"status" enum:"todo,in_progress,in_review,done,cancelled"`
}

type AssignTaskRequest struct {
	AssigneeID string `json:"assignee_id"`
}

type LogHoursRequest struct {
	Hours float64 `json:"hours"`
}

type CreateAPIKeyRequest struct {
	Name    string `json:"name"`
	ActorID string `json:"actor_id"`
}

type DevLoginRequest struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles,omitempty"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// Response payloads

type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email" format:"email"`
	Role      string `json:"role" enum:"admin,project_manager,developer,viewer"`
	Status    string `json:"status" enum:"active,inactive,suspended,pending"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
	Version   int64  `json:"version"`
}

type MemberResponse struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role" enum:"developer,project_manager,team_lead,viewer"`
	JoinedAt string `json:"joined_at" format:"date-time"`
}

type TeamResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Status      string           `json:"status" enum:"active,inactive,archived,pending"`
	Members     []MemberResponse `json:"members"`
	CreatedAt   string           `json:"created_at" format:"date-time"`
	UpdatedAt   string           `json:"updated_at" format:"date-time"`
	Version     int64            `json:"version"`
}

type ProjectResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	Status         string  `json:"status" enum:"planned,active,completed,cancelled"`
	TeamID         string  `json:"team_id"`
	StartDate      *string `json:"start_date,omitempty" format:"date-time"`
	EndDate        *string `json:"end_date,omitempty" format:"date-time"`
	PlannedEndDate *string `json:"planned_end_date,omitempty" format:"date-time"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
	Version        int64   `json:"version"`
}

type TaskResponse struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Status         string  `json:"status" enum:"todo,in_progress,in_review,done,cancelled"`
	Priority       string  `json:"priority" enum:"low,medium,high,critical"`
	ProjectID      string  `json:"project_id"`
	ParentID       *string `json:"parent_id,omitempty"`
	AssigneeID     *string `json:"assignee_id,omitempty"`
	EstimatedHours float64 `json:"estimated_hours,omitempty"`
	ActualHours    float64 `json:"actual_hours,omitempty"`
	DueDate        *string `json:"due_date,omitempty" format:"date-time"`
	StartedAt      *string `json:"started_at,omitempty" format:"date-time"`
	CompletedAt    *string `json:"completed_at,omitempty" format:"date-time"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
	Version        int64   `json:"version"`

	Completion float64        `json:"completion"`
	Subtasks   []TaskResponse `json:"subtasks,omitempty"`
}

type EventResponse struct {
	ID            int64          `json:"id"`
	TS            string         `json:"ts" format:"date-time"`
	Type          string         `json:"type"`
	EntityKind    string         `json:"entity_kind"`
	EntityID      string         `json:"entity_id,omitempty"`
	ActorID       string         `json:"actor_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

type APIKeyResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ActorID   string  `json:"actor_id"`
	Key       string  `json:"key,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	RevokedAt *string `json:"revoked_at,omitempty" format:"date-time"`
}

type paginatedTasks struct {
	Items      []TaskResponse `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Mappers

func userResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email.String(),
		Role:      string(u.Role),
		Status:    string(u.Status),
		CreatedAt: formatTS(u.CreatedAt),
		UpdatedAt: formatTS(u.UpdatedAt),
		Version:   u.Version,
	}
}

func teamResponse(t *domain.Team) TeamResponse {
	members := make([]MemberResponse, 0, t.MemberCount())
	for _, m := range t.Members() {
		members = append(members, MemberResponse{
			ID:       m.ID.String(),
			UserID:   m.UserID.String(),
			Role:     string(m.Role),
			JoinedAt: formatTS(m.JoinedAt),
		})
	}
	return TeamResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		Status:      string(t.Status),
		Members:     members,
		CreatedAt:   formatTS(t.CreatedAt),
		UpdatedAt:   formatTS(t.UpdatedAt),
		Version:     t.Version,
	}
}

func projectResponse(p *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:             p.ID.String(),
		Name:           p.Name,
		Description:    p.Description,
		Status:         string(p.Status),
		TeamID:         p.TeamID.String(),
		StartDate:      formatTSPtr(p.StartDate),
		EndDate:        formatTSPtr(p.EndDate),
		PlannedEndDate: formatTSPtr(p.PlannedEndDate),
		CreatedAt:      formatTS(p.CreatedAt),
		UpdatedAt:      formatTS(p.UpdatedAt),
		Version:        p.Version,
	}
}

func taskResponse(t *domain.Task) TaskResponse {
	res := TaskResponse{
		ID:             t.ID.String(),
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		ProjectID:      t.ProjectID.String(),
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		DueDate:        formatTSPtr(t.DueDate),
		StartedAt:      formatTSPtr(t.StartedAt),
		CompletedAt:    formatTSPtr(t.CompletedAt),
		CreatedAt:      formatTS(t.CreatedAt),
		UpdatedAt:      formatTS(t.UpdatedAt),
		Version:        t.Version,
		Completion:     t.CompletionPercentage(),
	}
	if !t.ParentID.IsEmpty() {
		parent := t.ParentID.String()
		res.ParentID = &parent
	}
	if !t.AssigneeID.IsEmpty() {
		assignee := t.AssigneeID.String()
		res.AssigneeID = &assignee
	}
	for _, sub := range t.Subtasks() {
		res.Subtasks = append(res.Subtasks, taskResponse(sub))
	}
	return res
}

func eventResponse(evt repo.Event) EventResponse {
	res := EventResponse{
		ID:            evt.ID,
		TS:            evt.TS,
		Type:          evt.Type,
		EntityKind:    evt.EntityKind,
		EntityID:      evt.EntityID,
		ActorID:       evt.ActorID,
		CorrelationID: evt.CorrelationID,
	}
	if evt.Payload != "" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(evt.Payload), &payload); err == nil {
			res.Payload = payload
		}
	}
	return res
}

func apiKeyResponse(k repo.APIKey) APIKeyResponse {
	res := APIKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		ActorID:   k.ActorID,
		CreatedAt: k.CreatedAt,
	}
	if k.RevokedAt != "" {
		revoked := k.RevokedAt
		res.RevokedAt = &revoked
	}
	return res
}

func mapUsers(items []*domain.User) []UserResponse {
	res := make([]UserResponse, 0, len(items))
	for _, u := range items {
		res = append(res, userResponse(u))
	}
	return res
}

func mapTeams(items []*domain.Team) []TeamResponse {
	res := make([]TeamResponse, 0, len(items))
	for _, t := range items {
		res = append(res, teamResponse(t))
	}
	return res
}

func mapProjects(items []*domain.Project) []ProjectResponse {
	res := make([]ProjectResponse, 0, len(items))
	for _, p := range items {
		res = append(res, projectResponse(p))
	}
	return res
}
