package engine

import (
	"context"

	"taskboard/internal/domain"
	"taskboard/internal/repo"
)

// TaskCreateOptions are parameters for creating a root task.
type TaskCreateOptions struct {
	Spec      domain.TaskSpec
	ProjectID domain.ProjectID
	ActorID   domain.UserID
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (*domain.Task, error) {
	p, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, domain.NewRuleViolation("project %s is %s and cannot take new tasks", p.ID, p.Status)
	}
	t, err := domain.NewTask(opts.Spec, opts.ProjectID, opts.ActorID, e.now)
	if err != nil {
		return nil, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := e.Events.AppendAll(ctx, tx, opts.ActorID.String(), t); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateSubtask loads the parent with its tree so depth and lifecycle gates
// see the real nesting level.
func (e Engine) CreateSubtask(ctx context.Context, parentID domain.TaskID, spec domain.TaskSpec, actorID domain.UserID) (*domain.Task, error) {
	parent, err := e.Repo.GetTask(ctx, parentID)
	if err != nil {
		return nil, err
	}
	sub, err := parent.NewSubtask(spec, actorID, e.now)
	if err != nil {
		return nil, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTask(ctx, tx, sub); err != nil {
		return nil, err
	}
	// The child row is part of the parent aggregate: bump the parent version
	// so writers holding a pre-subtask copy conflict and reload.
	if err := e.Repo.TouchTask(ctx, tx, parent.ID, parent.Version, e.now()); err != nil {
		return nil, err
	}
	if err := e.Events.AppendAll(ctx, tx, actorID.String(), sub); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sub, nil
}

// saveTaskTree persists the aggregate, including subtasks touched by a
// cascade, and drains events from every node.
func (e Engine) saveTaskTree(ctx context.Context, root *domain.Task, actorID domain.UserID) error {
	pending := 0
	root.Walk(func(t *domain.Task) { pending += len(t.PendingEvents()) })
	if pending == 0 {
		return nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.SaveTaskTree(ctx, tx, root); err != nil {
		return err
	}
	var appendErr error
	root.Walk(func(t *domain.Task) {
		if appendErr != nil {
			return
		}
		appendErr = e.Events.AppendAll(ctx, tx, actorID.String(), t)
	})
	if appendErr != nil {
		return appendErr
	}
	return tx.Commit()
}

func (e Engine) UpdateTaskInfo(ctx context.Context, id domain.TaskID, spec domain.TaskSpec, actorID domain.UserID) (*domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.UpdateInfo(spec, actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveTaskTree(ctx, t, actorID); err != nil {
		return nil, err
	}
	return t, nil
}

// AssignTask requires an active assignee; membership in the owning team is
// not checked, matching the flat assignment model.
func (e Engine) AssignTask(ctx context.Context, id domain.TaskID, assignee domain.UserID, actorID domain.UserID) (*domain.Task, error) {
	u, err := e.Repo.GetUser(ctx, assignee)
	if err != nil {
		return nil, err
	}
	if !u.IsActive() {
		return nil, domain.NewRuleViolation("user %s is %s and cannot be assigned work", u.ID, u.Status)
	}
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.AssignTo(assignee, actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveTaskTree(ctx, t, actorID); err != nil {
		return nil, err
	}
	return t, nil
}

func (e Engine) UnassignTask(ctx context.Context, id domain.TaskID, actorID domain.UserID) (*domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.Unassign(actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveTaskTree(ctx, t, actorID); err != nil {
		return nil, err
	}
	return t, nil
}

func (e Engine) ChangeTaskStatus(ctx context.Context, id domain.TaskID, status string, actorID domain.UserID) (*domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.ChangeStatus(domain.TaskStatus(status), actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveTaskTree(ctx, t, actorID); err != nil {
		return nil, err
	}
	return t, nil
}

// CancelTask cancels the task and cascades through its open subtasks in the
// same transaction.
func (e Engine) CancelTask(ctx context.Context, id domain.TaskID, actorID domain.UserID) (*domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.Cancel(actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveTaskTree(ctx, t, actorID); err != nil {
		return nil, err
	}
	return t, nil
}

func (e Engine) LogTaskHours(ctx context.Context, id domain.TaskID, hours float64, actorID domain.UserID) (*domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.LogHours(hours, actorID, e.now); err != nil {
		return nil, err
	}
	if err := e.saveTaskTree(ctx, t, actorID); err != nil {
		return nil, err
	}
	return t, nil
}

func (e Engine) GetTask(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	return e.Repo.GetTask(ctx, id)
}

func (e Engine) ListTasks(ctx context.Context, f repo.TaskFilters) ([]*domain.Task, error) {
	return e.Repo.ListTasks(ctx, f)
}
