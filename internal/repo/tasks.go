package repo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"taskboard/internal/domain"
)

const taskColumns = `id,title,description,status,priority,project_id,parent_id,assignee_id,estimated_hours,actual_hours,due_date,started_at,completed_at,created_at,updated_at,version`

func taskArgs(t *domain.Task) []any {
	var parent any
	if !t.ParentID.IsEmpty() {
		parent = t.ParentID.String()
	}
	var assignee any
	if !t.AssigneeID.IsEmpty() {
		assignee = t.AssigneeID.String()
	}
	return []any{
		t.Title, t.Description, string(t.Status), string(t.Priority),
		t.ProjectID.String(), parent, assignee,
		t.EstimatedHours, t.ActualHours,
		formatTimePtr(t.DueDate), formatTimePtr(t.StartedAt), formatTimePtr(t.CompletedAt),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	}
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t *domain.Task) error {
	args := append([]any{t.ID.String()}, taskArgs(t)...)
	args = append(args, 1)
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	return err
}

func (r Repo) updateTaskRow(ctx context.Context, tx *sql.Tx, t *domain.Task) error {
	args := taskArgs(t)
	args = append(args, t.ID.String(), t.Version)
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, priority=?, project_id=?, parent_id=?, assignee_id=?, estimated_hours=?, actual_hours=?, due_date=?, started_at=?, completed_at=?, created_at=?, updated_at=?, version=version+1 WHERE id=? AND version=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id=?`, t.ID.String()).Scan(&exists); err == sql.ErrNoRows {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// TouchTask bumps a task row's version without rewriting its fields. Adding
// a child row changes the aggregate, so writers holding a copy loaded before
// the child existed must fail their version check and reload.
func (r Repo) TouchTask(ctx context.Context, tx *sql.Tx, id domain.TaskID, version int64, updatedAt time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET version=version+1, updated_at=? WHERE id=? AND version=?`,
		formatTime(updatedAt), id.String(), version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id=?`, id.String()).Scan(&exists); err == sql.ErrNoRows {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// SaveTaskTree persists the task and every descendant. Nodes created inside
// the transaction carry version zero and are inserted; all others are
// updated with their loaded version.
func (r Repo) SaveTaskTree(ctx context.Context, tx *sql.Tx, root *domain.Task) error {
	var saveErr error
	root.Walk(func(t *domain.Task) {
		if saveErr != nil {
			return
		}
		if t.Version == 0 {
			saveErr = r.InsertTask(ctx, tx, t)
			return
		}
		saveErr = r.updateTaskRow(ctx, tx, t)
	})
	return saveErr
}

func scanTask(scan func(dest ...any) error) (*domain.Task, error) {
	var t domain.Task
	var id, status, priority, projectID, createdAt, updatedAt string
	var description, parentID, assigneeID, dueDate, startedAt, completedAt sql.NullString
	err := scan(&id, &t.Title, &description, &status, &priority, &projectID, &parentID, &assigneeID,
		&t.EstimatedHours, &t.ActualHours, &dueDate, &startedAt, &completedAt, &createdAt, &updatedAt, &t.Version)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.ID, err = domain.ParseTaskID(id); err != nil {
		return nil, err
	}
	if description.Valid {
		t.Description = description.String
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.TaskPriority(priority)
	if t.ProjectID, err = domain.ParseProjectID(projectID); err != nil {
		return nil, err
	}
	if parentID.Valid {
		if t.ParentID, err = domain.ParseTaskID(parentID.String); err != nil {
			return nil, err
		}
	}
	if assigneeID.Valid {
		if t.AssigneeID, err = domain.ParseUserID(assigneeID.String); err != nil {
			return nil, err
		}
	}
	if t.DueDate, err = parseTimePtr(dueDate); err != nil {
		return nil, err
	}
	if t.StartedAt, err = parseTimePtr(startedAt); err != nil {
		return nil, err
	}
	if t.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) getTaskNode(ctx context.Context, q querier, id domain.TaskID) (*domain.Task, error) {
	return scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id.String()).Scan)
}

func (r Repo) loadSubtasks(ctx context.Context, q querier, parent *domain.Task) error {
	rows, err := q.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE parent_id=? ORDER BY created_at ASC, id ASC`, parent.ID.String())
	if err != nil {
		return err
	}
	var subs []*domain.Task
	for rows.Next() {
		sub, err := scanTask(rows.Scan)
		if err != nil {
			rows.Close()
			return err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	for _, sub := range subs {
		if err := r.loadSubtasks(ctx, q, sub); err != nil {
			return err
		}
	}
	parent.RestoreSubtasks(subs)
	return nil
}

// taskDepth counts ancestors so a subtask loaded as the aggregate root still
// knows its level in the tree.
func (r Repo) taskDepth(ctx context.Context, q querier, t *domain.Task) (int, error) {
	depth := 0
	parent := t.ParentID
	for !parent.IsEmpty() {
		var next sql.NullString
		err := q.QueryRowContext(ctx, `SELECT parent_id FROM tasks WHERE id=?`, parent.String()).Scan(&next)
		if err == sql.ErrNoRows {
			break
		}
		if err != nil {
			return 0, err
		}
		depth++
		if !next.Valid {
			break
		}
		var perr error
		if parent, perr = domain.ParseTaskID(next.String); perr != nil {
			return 0, perr
		}
	}
	return depth, nil
}

func (r Repo) getTask(ctx context.Context, q querier, id domain.TaskID) (*domain.Task, error) {
	t, err := r.getTaskNode(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadSubtasks(ctx, q, t); err != nil {
		return nil, err
	}
	depth, err := r.taskDepth(ctx, q, t)
	if err != nil {
		return nil, err
	}
	t.RestoreDepth(depth)
	return t, nil
}

// GetTask loads the task together with its full subtask tree.
func (r Repo) GetTask(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	return r.getTask(ctx, r.DB, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id domain.TaskID) (*domain.Task, error) {
	return r.getTask(ctx, tx, id)
}

type TaskFilters struct {
	ProjectID       string
	Status          string
	AssigneeID      string
	Parent          string
	RootsOnly       bool
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

// ListTasks returns flat rows without subtree hydration; listing is a read
// surface, not an aggregate load.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]*domain.Task, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.AssigneeID != "" {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	if f.Parent != "" {
		clauses = append(clauses, "parent_id=?")
		args = append(args, f.Parent)
	}
	if f.RootsOnly {
		clauses = append(clauses, "parent_id IS NULL")
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
