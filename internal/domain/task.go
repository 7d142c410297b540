package domain

import (
	"strings"
	"time"
)

const (
	// MaxTaskDepth bounds subtask nesting: a root task, its subtasks, and
	// their subtasks. Keeps cascade cancellation and completion math cheap.
	MaxTaskDepth = 3

	maxTaskTitleLength       = 200
	maxTaskDescriptionLength = 2000
)

type TaskStatus string

const (
	TaskToDo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskInReview   TaskStatus = "in_review"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskToDo, TaskInProgress, TaskInReview, TaskDone, TaskCancelled:
		return true
	}
	return false
}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskDone || s == TaskCancelled
}

// taskStatusTransitions is the canonical workflow adjacency table. Done and
// cancelled are terminal; done tasks are immutable to non-status fields too.
var taskStatusTransitions = map[TaskStatus][]TaskStatus{
	TaskToDo:       {TaskInProgress, TaskCancelled},
	TaskInProgress: {TaskInReview, TaskToDo, TaskCancelled},
	TaskInReview:   {TaskDone, TaskInProgress, TaskCancelled},
	TaskDone:       {},
	TaskCancelled:  {},
}

func (s TaskStatus) canTransitionTo(next TaskStatus) bool {
	for _, allowed := range taskStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task is a hierarchical work item: subtasks are owned children mutated only
// through their parent or through the application layer loading the tree.
type Task struct {
	eventRecorder

	ID          TaskID
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	ProjectID   ProjectID
	ParentID    TaskID
	AssigneeID  UserID

	EstimatedHours float64
	ActualHours    float64
	DueDate        *time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	depth    int
	subtasks []*Task

	// Version is the optimistic-concurrency token managed by the repository.
	Version int64
}

// TaskSpec carries the validated creation inputs.
type TaskSpec struct {
	Title          string
	Description    string
	Priority       TaskPriority
	EstimatedHours float64
	DueDate        *time.Time
}

func NewTask(spec TaskSpec, projectID ProjectID, createdBy UserID, now func() time.Time) (*Task, error) {
	if projectID.IsEmpty() {
		return nil, invalidArgument("project_id", "project is required")
	}
	ts := now().UTC()
	spec, err := validateTaskSpec(spec, ts)
	if err != nil {
		return nil, err
	}
	t := &Task{
		ID:             NewTaskID(),
		Title:          spec.Title,
		Description:    spec.Description,
		Status:         TaskToDo,
		Priority:       spec.Priority,
		ProjectID:      projectID,
		EstimatedHours: spec.EstimatedHours,
		DueDate:        spec.DueDate,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	t.raise(TaskCreated{
		eventBase: newEventBase(ts),
		TaskID:    t.ID,
		ProjectID: projectID,
		Title:     spec.Title,
		CreatedBy: createdBy,
	})
	return t, nil
}

func validateTaskSpec(spec TaskSpec, now time.Time) (TaskSpec, error) {
	spec.Title = strings.TrimSpace(spec.Title)
	if spec.Title == "" {
		return spec, invalidArgument("title", "title is required")
	}
	if len(spec.Title) > maxTaskTitleLength {
		return spec, invalidArgument("title", "title exceeds %d characters", maxTaskTitleLength)
	}
	spec.Description = strings.TrimSpace(spec.Description)
	if len(spec.Description) > maxTaskDescriptionLength {
		return spec, invalidArgument("description", "description exceeds %d characters", maxTaskDescriptionLength)
	}
	if spec.Priority == "" {
		spec.Priority = PriorityMedium
	}
	if !spec.Priority.Valid() {
		return spec, invalidArgument("priority", "unknown task priority %q", spec.Priority)
	}
	// Zero means no estimate; only negatives are rejected.
	if spec.EstimatedHours < 0 {
		return spec, invalidArgument("estimated_hours", "estimated hours must not be negative")
	}
	if spec.DueDate != nil {
		utc := spec.DueDate.UTC()
		if !utc.After(now) {
			return spec, invalidArgument("due_date", "due date must be in the future")
		}
		spec.DueDate = &utc
	}
	return spec, nil
}

// NewSubtask creates a child task under this one, enforcing the depth bound
// and the parent's lifecycle gate.
func (t *Task) NewSubtask(spec TaskSpec, createdBy UserID, now func() time.Time) (*Task, error) {
	if t.Status.IsTerminal() {
		return nil, ruleViolation("task %s is %s and cannot take subtasks", t.ID, t.Status)
	}
	if t.depth+1 >= MaxTaskDepth {
		return nil, ruleViolation("task %s is nested at the maximum depth of %d", t.ID, MaxTaskDepth)
	}
	sub, err := NewTask(spec, t.ProjectID, createdBy, now)
	if err != nil {
		return nil, err
	}
	sub.ParentID = t.ID
	sub.depth = t.depth + 1
	t.subtasks = append(t.subtasks, sub)
	return sub, nil
}

// RestoreDepth rehydrates the tree level from persistence for a task loaded
// in isolation from its ancestors.
func (t *Task) RestoreDepth(depth int) {
	t.depth = depth
	for _, sub := range t.subtasks {
		sub.RestoreDepth(depth + 1)
	}
}

// RestoreSubtasks rehydrates the owned tree from persistence and fixes
// relative depths. It must not be used to mutate a live aggregate.
func (t *Task) RestoreSubtasks(subs []*Task) {
	t.subtasks = subs
	for _, sub := range subs {
		sub.depth = t.depth + 1
		sub.RestoreSubtasks(sub.subtasks)
	}
}

func (t *Task) Subtasks() []*Task { return append([]*Task(nil), t.subtasks...) }
func (t *Task) HasSubtasks() bool { return len(t.subtasks) > 0 }
func (t *Task) SubtaskCount() int { return len(t.subtasks) }

// Walk visits the task and every descendant in pre-order.
func (t *Task) Walk(fn func(*Task)) {
	fn(t)
	for _, sub := range t.subtasks {
		sub.Walk(fn)
	}
}

// UpdateInfo mutates the non-status fields. Finished work is immutable.
func (t *Task) UpdateInfo(spec TaskSpec, updatedBy UserID, now func() time.Time) error {
	if t.Status.IsTerminal() {
		return ruleViolation("task %s is %s and cannot be modified", t.ID, t.Status)
	}
	ts := now().UTC()
	spec, err := validateTaskSpec(spec, ts)
	if err != nil {
		return err
	}
	t.Title = spec.Title
	t.Description = spec.Description
	t.Priority = spec.Priority
	t.EstimatedHours = spec.EstimatedHours
	t.DueDate = spec.DueDate
	t.UpdatedAt = ts
	t.raise(TaskInfoUpdated{
		eventBase: newEventBase(ts),
		TaskID:    t.ID,
		Title:     spec.Title,
		UpdatedBy: updatedBy,
	})
	return nil
}

// AssignTo sets the assignee. Whether the target user is active is checked
// by the caller, which has repository visibility.
func (t *Task) AssignTo(assignee UserID, assignedBy UserID, now func() time.Time) error {
	if assignee.IsEmpty() {
		return invalidArgument("assignee_id", "assignee is required")
	}
	if t.Status.IsTerminal() {
		return ruleViolation("task %s is %s and cannot be assigned", t.ID, t.Status)
	}
	if t.AssigneeID == assignee {
		return nil
	}
	ts := now().UTC()
	t.AssigneeID = assignee
	t.UpdatedAt = ts
	t.raise(TaskAssigned{
		eventBase:  newEventBase(ts),
		TaskID:     t.ID,
		AssigneeID: assignee,
		AssignedBy: assignedBy,
	})
	return nil
}

// Unassign clears the assignee; clearing an unassigned task is a no-op.
func (t *Task) Unassign(unassignedBy UserID, now func() time.Time) error {
	if t.Status.IsTerminal() {
		return ruleViolation("task %s is %s and cannot be unassigned", t.ID, t.Status)
	}
	if t.AssigneeID.IsEmpty() {
		return nil
	}
	ts := now().UTC()
	prev := t.AssigneeID
	t.AssigneeID = UserID{}
	t.UpdatedAt = ts
	t.raise(TaskUnassigned{
		eventBase:    newEventBase(ts),
		TaskID:       t.ID,
		AssigneeID:   prev,
		UnassignedBy: unassignedBy,
	})
	return nil
}

// ChangeStatus moves the task along the workflow adjacency table.
// Completion is blocked while any subtask is still open.
func (t *Task) ChangeStatus(next TaskStatus, changedBy UserID, now func() time.Time) error {
	if !next.Valid() {
		return invalidArgument("status", "unknown task status %q", next)
	}
	if next == t.Status {
		return nil
	}
	if !t.Status.canTransitionTo(next) {
		return ruleViolation("invalid task status transition %s -> %s", t.Status, next)
	}
	if next == TaskDone {
		for _, sub := range t.subtasks {
			if !sub.Status.IsTerminal() {
				return ruleViolation("task %s has open subtask %s", t.ID, sub.ID)
			}
		}
	}
	t.applyStatus(next, changedBy, now().UTC())
	return nil
}

// Cancel is the soft delete: it cancels this task and, recursively, every
// subtask that is still open. A cancelled task never retains active children.
func (t *Task) Cancel(cancelledBy UserID, now func() time.Time) error {
	if t.Status.IsTerminal() {
		return ruleViolation("task %s is already %s", t.ID, t.Status)
	}
	t.cancelTree(cancelledBy, now().UTC())
	return nil
}

func (t *Task) cancelTree(cancelledBy UserID, ts time.Time) {
	t.applyStatus(TaskCancelled, cancelledBy, ts)
	for _, sub := range t.subtasks {
		if sub.Status.IsTerminal() {
			continue
		}
		sub.cancelTree(cancelledBy, ts)
	}
}

func (t *Task) applyStatus(next TaskStatus, changedBy UserID, ts time.Time) {
	prev := t.Status
	t.Status = next
	t.UpdatedAt = ts
	switch next {
	case TaskInProgress:
		if t.StartedAt == nil {
			t.StartedAt = &ts
		}
	case TaskDone:
		t.CompletedAt = &ts
	}
	t.raise(TaskStatusChanged{
		eventBase:      newEventBase(ts),
		TaskID:         t.ID,
		PreviousStatus: prev,
		NewStatus:      next,
		ChangedBy:      changedBy,
	})
}

// LogHours adds worked time to the running total.
func (t *Task) LogHours(hours float64, loggedBy UserID, now func() time.Time) error {
	if hours <= 0 {
		return invalidArgument("hours", "hours must be greater than zero")
	}
	if t.Status.IsTerminal() {
		return ruleViolation("task %s is %s and cannot log hours", t.ID, t.Status)
	}
	ts := now().UTC()
	t.ActualHours += hours
	t.UpdatedAt = ts
	t.raise(TaskHoursLogged{
		eventBase: newEventBase(ts),
		TaskID:    t.ID,
		Hours:     hours,
		LoggedBy:  loggedBy,
	})
	return nil
}

// IsOverdue reports whether the due date has passed while the task is open.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status.IsTerminal() {
		return false
	}
	return now.UTC().After(*t.DueDate)
}

// CompletionPercentage is 100 for a finished leaf, otherwise the fraction of
// direct subtasks already done.
func (t *Task) CompletionPercentage() float64 {
	if len(t.subtasks) == 0 {
		if t.Status == TaskDone {
			return 100
		}
		return 0
	}
	done := 0
	for _, sub := range t.subtasks {
		if sub.Status == TaskDone {
			done++
		}
	}
	return 100 * float64(done) / float64(len(t.subtasks))
}

// Duration is the wall time between start and completion, when both exist.
func (t *Task) Duration() (time.Duration, bool) {
	if t.StartedAt == nil || t.CompletedAt == nil {
		return 0, false
	}
	return t.CompletedAt.Sub(*t.StartedAt), true
}

// Depth is this task's level in the tree; a root task is at depth 0.
func (t *Task) Depth() int { return t.depth }
